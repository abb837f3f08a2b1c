package model

import (
	"math/big"

	"github.com/cockroachdb/apd/v3"
	"github.com/ethereum/go-ethereum/common"
)

// PoolState is the live state of a pool read for one evaluation run.
type PoolState struct {
	Pool         common.Address
	SqrtPriceX96 *big.Int
	Liquidity    *big.Int
}

// PoolStateResult carries either a PoolState or the reason it could not be read.
type PoolStateResult struct {
	Pool  common.Address
	State *PoolState
	Err   error
}

// PriceData is the normalized price of a pool.
//
// RawRatio is token1 per token0 in smallest units. HumanPrice is the same
// ratio scaled by the decimal difference of the two tokens.
type PriceData struct {
	Pool       common.Address
	Token0     string
	Token1     string
	RawRatio   *apd.Decimal
	HumanPrice *apd.Decimal
	Liquidity  *big.Int
}
