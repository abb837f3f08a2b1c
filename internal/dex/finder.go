package dex

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"triarb/internal/chain"
	"triarb/internal/model"
)

// PoolFinder resolves token pairs to pool addresses through factory getPool.
type PoolFinder struct {
	caller  chain.BatchCaller
	factory common.Address
	logger  *zap.Logger
}

// NewPoolFinder creates a PoolFinder for the given factory.
func NewPoolFinder(caller chain.BatchCaller, factory common.Address, logger *zap.Logger) *PoolFinder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PoolFinder{caller: caller, factory: factory, logger: logger}
}

// FindPools asks the factory for every query in a single batch. A failed
// sub-call is reported in the result's Err; only transport failures are
// returned as an error.
func (f *PoolFinder) FindPools(ctx context.Context, queries []model.PoolQuery) ([]model.PoolQueryResult, error) {
	if f.caller == nil {
		return nil, fmt.Errorf("batch caller is nil")
	}

	factoryABI, err := V3FactoryABI()
	if err != nil {
		return nil, fmt.Errorf("parse factory abi: %w", err)
	}

	calls := make([]chain.Call, len(queries))
	for i, query := range queries {
		data, err := factoryABI.Pack("getPool", query.TokenA.Address, query.TokenB.Address, new(big.Int).SetUint64(uint64(query.Fee)))
		if err != nil {
			return nil, fmt.Errorf("pack getPool %s/%s: %w", query.TokenA.Symbol, query.TokenB.Symbol, err)
		}
		calls[i] = chain.Call{To: f.factory, Data: data}
	}

	results, err := f.caller.BatchCall(ctx, calls)
	if err != nil {
		return nil, fmt.Errorf("find pools: %w", err)
	}
	if len(results) != len(calls) {
		return nil, fmt.Errorf("find pools: expected %d results, got %d", len(calls), len(results))
	}

	out := make([]model.PoolQueryResult, len(queries))
	for i, query := range queries {
		out[i].Query = query
		values, err := unpackResult(factoryABI, "getPool", results[i])
		if err != nil {
			out[i].Err = err
			continue
		}
		pool, err := asAddress(values[0])
		if err != nil {
			out[i].Err = fmt.Errorf("getPool: %w", err)
			continue
		}
		out[i].Pool = pool
	}

	f.logger.Debug("factory queries completed", zap.Int("queries", len(queries)))
	return out, nil
}
