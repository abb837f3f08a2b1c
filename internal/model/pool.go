package model

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// Pool is a discovered pool with a canonical token0/token1 assignment.
type Pool struct {
	Address common.Address
	Token0  Token
	Token1  Token
	Fee     uint32
}

// NewPool builds a Pool, ordering the tokens by address regardless of the
// order in which the pair was queried.
func NewPool(address common.Address, a, b Token, fee uint32) (Pool, error) {
	if a.Address == b.Address {
		return Pool{}, fmt.Errorf("pool %s: token0 and token1 are the same token %s", address.Hex(), a.Symbol)
	}
	token0, token1 := CanonicalOrder(a, b)
	return Pool{Address: address, Token0: token0, Token1: token1, Fee: fee}, nil
}

// CanonicalOrder returns the two tokens ordered by address as unsigned integers.
func CanonicalOrder(a, b Token) (Token, Token) {
	if AddressLess(b.Address, a.Address) {
		return b, a
	}
	return a, b
}

// AddressLess compares two addresses as big-endian unsigned integers.
func AddressLess(a, b common.Address) bool {
	return bytes.Compare(a.Bytes(), b.Bytes()) < 0
}

// Key returns the pair key of the pool's tokens.
func (p Pool) Key() PairKey {
	return NewPairKey(p.Token0.Address, p.Token1.Address)
}

// HasToken reports whether symbol is one of the pool's tokens.
func (p Pool) HasToken(symbol string) bool {
	return p.Token0.Symbol == symbol || p.Token1.Symbol == symbol
}

// PairKey identifies an unordered token pair.
type PairKey struct {
	Lo common.Address
	Hi common.Address
}

// NewPairKey builds the same key for (a, b) and (b, a).
func NewPairKey(a, b common.Address) PairKey {
	if AddressLess(b, a) {
		a, b = b, a
	}
	return PairKey{Lo: a, Hi: b}
}

func (k PairKey) String() string {
	return strings.ToLower(k.Lo.Hex()) + ":" + strings.ToLower(k.Hi.Hex())
}

// PoolQuery asks whether a pool exists for a token pair at a fee tier.
type PoolQuery struct {
	TokenA Token
	TokenB Token
	Fee    uint32
}

// PoolQueryResult is the answer to a PoolQuery. Pool is the zero address when
// no pool exists; Err is set when the sub-call failed.
type PoolQueryResult struct {
	Query PoolQuery
	Pool  common.Address
	Err   error
}
