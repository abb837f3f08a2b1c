package dex

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"triarb/internal/chain"
	"triarb/internal/model"
)

// TokenReader reads ERC20 metadata for the configured token universe.
type TokenReader struct {
	caller chain.BatchCaller
	logger *zap.Logger
}

// NewTokenReader creates a TokenReader on top of a batch caller.
func NewTokenReader(caller chain.BatchCaller, logger *zap.Logger) *TokenReader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TokenReader{caller: caller, logger: logger}
}

// VerifyTokens reads decimals() and symbol() for every token in one batch and
// fails when an on-chain decimals value differs from the configured one.
// Failed reads and symbol differences are only logged.
func (r *TokenReader) VerifyTokens(ctx context.Context, tokens []model.Token) error {
	if r.caller == nil {
		return fmt.Errorf("batch caller is nil")
	}
	if len(tokens) == 0 {
		return nil
	}

	erc20, err := erc20ABIInstance()
	if err != nil {
		return fmt.Errorf("parse erc20 abi: %w", err)
	}

	decimalsData, err := erc20.Pack("decimals")
	if err != nil {
		return fmt.Errorf("pack decimals: %w", err)
	}
	symbolData, err := erc20.Pack("symbol")
	if err != nil {
		return fmt.Errorf("pack symbol: %w", err)
	}

	calls := make([]chain.Call, 0, len(tokens)*2)
	for _, token := range tokens {
		calls = append(calls,
			chain.Call{To: token.Address, Data: decimalsData},
			chain.Call{To: token.Address, Data: symbolData},
		)
	}

	results, err := r.caller.BatchCall(ctx, calls)
	if err != nil {
		return fmt.Errorf("read token metadata: %w", err)
	}
	if len(results) != len(calls) {
		return fmt.Errorf("read token metadata: expected %d results, got %d", len(calls), len(results))
	}

	var mismatches []string
	for i, token := range tokens {
		values, err := unpackResult(erc20, "decimals", results[2*i])
		if err != nil {
			r.logger.Warn("token decimals read failed", zap.String("token", token.Symbol), zap.String("address", token.Address.Hex()), zap.Error(err))
			continue
		}
		decimals, err := asUint8(values[0])
		if err != nil {
			r.logger.Warn("token decimals read failed", zap.String("token", token.Symbol), zap.Error(err))
			continue
		}
		if decimals != token.Decimals {
			mismatches = append(mismatches, fmt.Sprintf("%s configured %d on-chain %d", token.Symbol, token.Decimals, decimals))
		}

		if values, err := unpackResult(erc20, "symbol", results[2*i+1]); err == nil {
			if symbol, ok := values[0].(string); ok && symbol != token.Symbol {
				r.logger.Warn("token symbol differs from configuration", zap.String("token", token.Symbol), zap.String("onchain", symbol))
			}
		} else {
			r.logger.Debug("symbol call failed", zap.String("token", token.Symbol), zap.Error(err))
		}
	}

	if len(mismatches) > 0 {
		return fmt.Errorf("token decimals mismatch: %v", mismatches)
	}
	return nil
}

func unpackResult(parsed abi.ABI, method string, result chain.CallResult) ([]interface{}, error) {
	if result.Err != nil {
		return nil, fmt.Errorf("call %s: %w", method, result.Err)
	}
	values, err := parsed.Unpack(method, result.Data)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", method, err)
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("unpack %s: no values", method)
	}
	return values, nil
}

func asAddress(value interface{}) (common.Address, error) {
	switch v := value.(type) {
	case common.Address:
		return v, nil
	case *common.Address:
		return *v, nil
	default:
		return common.Address{}, fmt.Errorf("unsupported address type %T", value)
	}
}

func asBigInt(value interface{}) (*big.Int, error) {
	switch v := value.(type) {
	case *big.Int:
		return new(big.Int).Set(v), nil
	case big.Int:
		return new(big.Int).Set(&v), nil
	case uint8:
		return new(big.Int).SetUint64(uint64(v)), nil
	case uint16:
		return new(big.Int).SetUint64(uint64(v)), nil
	case uint32:
		return new(big.Int).SetUint64(uint64(v)), nil
	case uint64:
		return new(big.Int).SetUint64(v), nil
	default:
		return nil, fmt.Errorf("unsupported int type %T", value)
	}
}

func asUint8(value interface{}) (uint8, error) {
	switch v := value.(type) {
	case uint8:
		return v, nil
	case *big.Int:
		if !v.IsUint64() || v.Uint64() > 255 {
			return 0, fmt.Errorf("uint8 overflow: %s", v.String())
		}
		return uint8(v.Uint64()), nil
	default:
		return 0, fmt.Errorf("unsupported uint8 type %T", value)
	}
}
