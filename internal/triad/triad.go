// Package triad enumerates closed three-hop token cycles over discovered pools.
package triad

import (
	"bytes"
	"context"
	"fmt"
	"sort"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"triarb/internal/model"
)

// PoolOracle resolves pool queries, typically through a factory contract.
type PoolOracle interface {
	FindPools(ctx context.Context, queries []model.PoolQuery) ([]model.PoolQueryResult, error)
}

// PoolIndex groups pools by unordered token pair. A pair may hold one pool
// per fee tier.
type PoolIndex map[model.PairKey][]model.Pool

// Lookup returns the pools between two tokens in either order.
func (idx PoolIndex) Lookup(a, b common.Address) []model.Pool {
	return idx[model.NewPairKey(a, b)]
}

// Result is the output of one discovery run.
type Result struct {
	Pools   []model.Pool
	Index   PoolIndex
	Routes  []model.TriadRoute
	Queried int
}

// BuildQueries returns one query per unordered pair of distinct tokens per
// fee tier, in token order then fee order.
func BuildQueries(tokens []model.Token, fees []uint32) []model.PoolQuery {
	queries := make([]model.PoolQuery, 0, len(tokens)*(len(tokens)-1)/2*len(fees))
	for i := 0; i < len(tokens); i++ {
		for j := i + 1; j < len(tokens); j++ {
			if tokens[i].Address == tokens[j].Address {
				continue
			}
			for _, fee := range fees {
				queries = append(queries, model.PoolQuery{TokenA: tokens[i], TokenB: tokens[j], Fee: fee})
			}
		}
	}
	return queries
}

// Discover queries every pair and fee tier in one batch, indexes the pools
// that exist and enumerates every triad they form.
func Discover(ctx context.Context, oracle PoolOracle, tokens []model.Token, fees []uint32, logger *zap.Logger) (*Result, error) {
	if oracle == nil {
		return nil, fmt.Errorf("pool oracle is nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	queries := BuildQueries(tokens, fees)
	results, err := oracle.FindPools(ctx, queries)
	if err != nil {
		return nil, fmt.Errorf("query pools: %w", err)
	}

	pools := make([]model.Pool, 0, len(results))
	seen := make(map[common.Address]struct{}, len(results))
	for _, res := range results {
		query := res.Query
		if res.Err != nil {
			logger.Warn("pool query failed",
				zap.String("token_a", query.TokenA.Symbol),
				zap.String("token_b", query.TokenB.Symbol),
				zap.Uint32("fee", query.Fee),
				zap.Error(res.Err),
			)
			continue
		}
		if res.Pool == (common.Address{}) {
			logger.Debug("no pool",
				zap.String("token_a", query.TokenA.Symbol),
				zap.String("token_b", query.TokenB.Symbol),
				zap.Uint32("fee", query.Fee),
			)
			continue
		}
		if _, ok := seen[res.Pool]; ok {
			continue
		}
		pool, err := model.NewPool(res.Pool, query.TokenA, query.TokenB, query.Fee)
		if err != nil {
			logger.Warn("invalid pool", zap.String("pool", res.Pool.Hex()), zap.Error(err))
			continue
		}
		seen[res.Pool] = struct{}{}
		pools = append(pools, pool)
	}

	index := NewPoolIndex(pools)
	routes := BuildRoutes(tokens, index)

	logger.Info("discovery completed",
		zap.Int("queries", len(queries)),
		zap.Int("pools", len(pools)),
		zap.Int("pairs", len(index)),
		zap.Int("routes", len(routes)),
	)

	return &Result{
		Pools:   pools,
		Index:   index,
		Routes:  routes,
		Queried: len(queries),
	}, nil
}

// NewPoolIndex groups pools by pair, each group sorted by fee then address.
func NewPoolIndex(pools []model.Pool) PoolIndex {
	index := make(PoolIndex)
	for _, pool := range pools {
		key := pool.Key()
		index[key] = append(index[key], pool)
	}
	for _, group := range index {
		sort.Slice(group, func(i, j int) bool {
			if group[i].Fee != group[j].Fee {
				return group[i].Fee < group[j].Fee
			}
			return bytes.Compare(group[i].Address.Bytes(), group[j].Address.Bytes()) < 0
		})
	}
	return index
}

// BuildRoutes emits every route A→B→C→A over ordered distinct triples of
// tokens whose three edges all hold pools, one route per combination of
// pools. Both directions of a cycle and every rotation are emitted.
func BuildRoutes(tokens []model.Token, index PoolIndex) []model.TriadRoute {
	routes := make([]model.TriadRoute, 0)
	for _, a := range tokens {
		for _, b := range tokens {
			if b.Address == a.Address {
				continue
			}
			ab := index.Lookup(a.Address, b.Address)
			if len(ab) == 0 {
				continue
			}
			for _, c := range tokens {
				if c.Address == a.Address || c.Address == b.Address {
					continue
				}
				bc := index.Lookup(b.Address, c.Address)
				ca := index.Lookup(c.Address, a.Address)
				if len(bc) == 0 || len(ca) == 0 {
					continue
				}
				for _, p1 := range ab {
					for _, p2 := range bc {
						for _, p3 := range ca {
							route, err := newRoute(a.Symbol, b.Symbol, c.Symbol, p1, p2, p3)
							if err != nil {
								continue
							}
							routes = append(routes, route)
						}
					}
				}
			}
		}
	}
	return routes
}

func newRoute(a, b, c string, p1, p2, p3 model.Pool) (model.TriadRoute, error) {
	var route model.TriadRoute
	var err error
	if route.Legs[0], err = model.NewRouteLeg(p1, a); err != nil {
		return route, err
	}
	if route.Legs[1], err = model.NewRouteLeg(p2, b); err != nil {
		return route, err
	}
	if route.Legs[2], err = model.NewRouteLeg(p3, c); err != nil {
		return route, err
	}
	return route, route.Validate()
}
