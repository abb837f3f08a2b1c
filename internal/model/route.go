package model

import (
	"bytes"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// LegsPerRoute is the fixed number of hops in a triad.
const LegsPerRoute = 3

// RouteLeg is one hop of a triad. Token0/Token1 copy the pool's canonical
// ordering so evaluation never has to resolve it again.
type RouteLeg struct {
	Pool     common.Address
	TokenIn  string
	TokenOut string
	Fee      uint32
	Token0   string
	Token1   string
}

// NewRouteLeg builds a leg swapping tokenIn for the other token of pool.
func NewRouteLeg(pool Pool, tokenIn string) (RouteLeg, error) {
	var tokenOut string
	switch tokenIn {
	case pool.Token0.Symbol:
		tokenOut = pool.Token1.Symbol
	case pool.Token1.Symbol:
		tokenOut = pool.Token0.Symbol
	default:
		return RouteLeg{}, fmt.Errorf("token %s not in pool %s", tokenIn, pool.Address.Hex())
	}
	return RouteLeg{
		Pool:     pool.Address,
		TokenIn:  tokenIn,
		TokenOut: tokenOut,
		Fee:      pool.Fee,
		Token0:   pool.Token0.Symbol,
		Token1:   pool.Token1.Symbol,
	}, nil
}

// Validate checks the leg's token invariants.
func (l RouteLeg) Validate() error {
	if l.TokenIn == "" || l.TokenOut == "" || l.Token0 == "" || l.Token1 == "" {
		return errors.New("empty token symbol")
	}
	if l.TokenIn == l.TokenOut {
		return fmt.Errorf("token in equals token out (%s)", l.TokenIn)
	}
	if l.Token0 == l.Token1 {
		return fmt.Errorf("token0 equals token1 (%s)", l.Token0)
	}
	inOrder := l.TokenIn == l.Token0 && l.TokenOut == l.Token1
	reversed := l.TokenIn == l.Token1 && l.TokenOut == l.Token0
	if !inOrder && !reversed {
		return fmt.Errorf("tokens %s/%s do not match pool tokens %s/%s", l.TokenIn, l.TokenOut, l.Token0, l.Token1)
	}
	if l.Pool == (common.Address{}) {
		return errors.New("zero pool address")
	}
	return nil
}

// TriadRoute is a closed three-hop cycle through three distinct tokens.
type TriadRoute struct {
	Legs [LegsPerRoute]RouteLeg
}

// Validate checks leg invariants, closure and token distinctness.
func (r TriadRoute) Validate() error {
	for i, leg := range r.Legs {
		if err := leg.Validate(); err != nil {
			return fmt.Errorf("leg %d: %w", i+1, err)
		}
	}
	for i := range r.Legs {
		next := r.Legs[(i+1)%LegsPerRoute]
		if r.Legs[i].TokenOut != next.TokenIn {
			return fmt.Errorf("leg %d outputs %s but leg %d takes %s", i+1, r.Legs[i].TokenOut, (i+1)%LegsPerRoute+1, next.TokenIn)
		}
	}
	a, b, c := r.Legs[0].TokenIn, r.Legs[1].TokenIn, r.Legs[2].TokenIn
	if a == b || b == c || a == c {
		return fmt.Errorf("route tokens not distinct: %s, %s, %s", a, b, c)
	}
	return nil
}

// Start returns the token the route starts and ends with.
func (r TriadRoute) Start() string {
	return r.Legs[0].TokenIn
}

// Description renders the token path, e.g. WETH→USDC→DAI→WETH.
func (r TriadRoute) Description() string {
	parts := make([]string, 0, LegsPerRoute+1)
	parts = append(parts, r.Legs[0].TokenIn)
	for _, leg := range r.Legs {
		parts = append(parts, leg.TokenOut)
	}
	return strings.Join(parts, "→")
}

// Pools returns the pool addresses of the route in leg order.
func (r TriadRoute) Pools() [LegsPerRoute]common.Address {
	var pools [LegsPerRoute]common.Address
	for i, leg := range r.Legs {
		pools[i] = leg.Pool
	}
	return pools
}

// DistinctPools returns every pool referenced by routes once, sorted by address.
func DistinctPools(routes []TriadRoute) []common.Address {
	seen := make(map[common.Address]struct{})
	out := make([]common.Address, 0)
	for _, route := range routes {
		for _, leg := range route.Legs {
			if _, ok := seen[leg.Pool]; ok {
				continue
			}
			seen[leg.Pool] = struct{}{}
			out = append(out, leg.Pool)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return bytes.Compare(out[i].Bytes(), out[j].Bytes()) < 0
	})
	return out
}
