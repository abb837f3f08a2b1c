package dex

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"triarb/internal/chain"
	"triarb/internal/model"
)

// StateReader reads slot0 and liquidity for a set of pools.
type StateReader struct {
	caller chain.BatchCaller
	logger *zap.Logger
}

// NewStateReader creates a StateReader on top of a batch caller.
func NewStateReader(caller chain.BatchCaller, logger *zap.Logger) *StateReader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StateReader{caller: caller, logger: logger}
}

// FetchPoolStates reads every distinct pool in one batch, two calls per pool.
// Results follow the first-seen order of pools. A pool with any failed call
// carries Err and no State.
func (r *StateReader) FetchPoolStates(ctx context.Context, pools []common.Address) ([]model.PoolStateResult, error) {
	if r.caller == nil {
		return nil, fmt.Errorf("batch caller is nil")
	}

	poolABI, err := V3PoolABI()
	if err != nil {
		return nil, fmt.Errorf("parse pool abi: %w", err)
	}
	slot0Data, err := poolABI.Pack("slot0")
	if err != nil {
		return nil, fmt.Errorf("pack slot0: %w", err)
	}
	liquidityData, err := poolABI.Pack("liquidity")
	if err != nil {
		return nil, fmt.Errorf("pack liquidity: %w", err)
	}

	unique := make([]common.Address, 0, len(pools))
	seen := make(map[common.Address]struct{}, len(pools))
	for _, pool := range pools {
		if _, ok := seen[pool]; ok {
			continue
		}
		seen[pool] = struct{}{}
		unique = append(unique, pool)
	}

	calls := make([]chain.Call, 0, len(unique)*2)
	for _, pool := range unique {
		calls = append(calls,
			chain.Call{To: pool, Data: slot0Data},
			chain.Call{To: pool, Data: liquidityData},
		)
	}

	results, err := r.caller.BatchCall(ctx, calls)
	if err != nil {
		return nil, fmt.Errorf("fetch pool states: %w", err)
	}
	if len(results) != len(calls) {
		return nil, fmt.Errorf("fetch pool states: expected %d results, got %d", len(calls), len(results))
	}

	out := make([]model.PoolStateResult, len(unique))
	for i, pool := range unique {
		out[i].Pool = pool

		values, err := unpackResult(poolABI, "slot0", results[2*i])
		if err != nil {
			out[i].Err = err
			continue
		}
		sqrtPrice, err := asBigInt(values[0])
		if err != nil {
			out[i].Err = fmt.Errorf("slot0 sqrtPriceX96: %w", err)
			continue
		}

		values, err = unpackResult(poolABI, "liquidity", results[2*i+1])
		if err != nil {
			out[i].Err = err
			continue
		}
		liquidity, err := asBigInt(values[0])
		if err != nil {
			out[i].Err = fmt.Errorf("liquidity: %w", err)
			continue
		}

		out[i].State = &model.PoolState{
			Pool:         pool,
			SqrtPriceX96: sqrtPrice,
			Liquidity:    liquidity,
		}
	}

	r.logger.Debug("pool states fetched", zap.Int("pools", len(unique)), zap.Int("calls", len(calls)))
	return out, nil
}
