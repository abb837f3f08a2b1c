// Package pricing turns raw pool state into normalized prices and filters
// out pools that cannot be trusted for evaluation.
package pricing

import (
	"fmt"
	"math/big"

	"github.com/cockroachdb/apd/v3"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"triarb/internal/model"
	"triarb/internal/numeric"
)

// Reason explains why a pool was excluded.
type Reason string

const (
	ReasonFetchFailed   Reason = "fetch_failed"
	ReasonUninitialized Reason = "uninitialized"
	ReasonLowLiquidity  Reason = "low_liquidity"
	ReasonStableDepeg   Reason = "stable_depeg"
	ReasonArithmetic    Reason = "arithmetic"
)

// DefaultStableTolerance is the allowed deviation from 1 for stable pairs.
const DefaultStableTolerance = "0.01"

// Config controls pool filtering.
type Config struct {
	// MinLiquidity excludes pools whose in-range liquidity is below it. Nil
	// disables the check.
	MinLiquidity *big.Int
	// StableTokens lists the symbols expected to trade at parity.
	StableTokens []string
	// StableTolerance bounds |price - 1| for pools of two stable tokens.
	StableTolerance *apd.Decimal
}

// PoolInput is a pool together with the outcome of its state read.
type PoolInput struct {
	Pool  model.Pool
	State *model.PoolState
	Err   error
}

// Exclusion records a pool dropped from evaluation.
type Exclusion struct {
	Pool   common.Address
	Reason Reason
	Err    error
}

// Normalizer converts pool state into PriceData.
type Normalizer struct {
	minLiquidity *big.Int
	stable       map[string]struct{}
	lower        *apd.Decimal
	upper        *apd.Decimal
	logger       *zap.Logger
}

// NewNormalizer validates cfg and builds a Normalizer.
func NewNormalizer(cfg Config, logger *zap.Logger) (*Normalizer, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MinLiquidity != nil && cfg.MinLiquidity.Sign() < 0 {
		return nil, fmt.Errorf("min liquidity must not be negative")
	}

	tolerance := cfg.StableTolerance
	if tolerance == nil {
		tolerance = numeric.MustParse(DefaultStableTolerance)
	}
	if tolerance.Negative {
		return nil, fmt.Errorf("stable tolerance must not be negative")
	}

	ctx := numeric.NewContext()
	one := apd.New(1, 0)
	lower, upper := new(apd.Decimal), new(apd.Decimal)
	if _, err := ctx.Sub(lower, one, tolerance); err != nil {
		return nil, fmt.Errorf("stable band: %w", err)
	}
	if _, err := ctx.Add(upper, one, tolerance); err != nil {
		return nil, fmt.Errorf("stable band: %w", err)
	}

	stable := make(map[string]struct{}, len(cfg.StableTokens))
	for _, symbol := range cfg.StableTokens {
		stable[symbol] = struct{}{}
	}

	return &Normalizer{
		minLiquidity: cfg.MinLiquidity,
		stable:       stable,
		lower:        lower,
		upper:        upper,
		logger:       logger,
	}, nil
}

// Normalize derives PriceData for every usable pool. Pools that fail a gate
// are reported as exclusions; the remaining pools are keyed by address.
func (n *Normalizer) Normalize(inputs []PoolInput) (map[common.Address]model.PriceData, []Exclusion) {
	prices := make(map[common.Address]model.PriceData, len(inputs))
	var exclusions []Exclusion

	for _, input := range inputs {
		price, reason, err := n.normalize(input)
		if reason != "" {
			exclusions = append(exclusions, Exclusion{Pool: input.Pool.Address, Reason: reason, Err: err})
			fields := []zap.Field{
				zap.String("pool", input.Pool.Address.Hex()),
				zap.String("pair", input.Pool.Token0.Symbol+"/"+input.Pool.Token1.Symbol),
				zap.String("reason", string(reason)),
			}
			if err != nil {
				fields = append(fields, zap.Error(err))
			}
			n.logger.Warn("pool excluded", fields...)
			continue
		}
		prices[input.Pool.Address] = price
	}

	return prices, exclusions
}

func (n *Normalizer) normalize(input PoolInput) (model.PriceData, Reason, error) {
	pool := input.Pool
	if input.Err != nil {
		return model.PriceData{}, ReasonFetchFailed, input.Err
	}
	state := input.State
	if state == nil || state.SqrtPriceX96 == nil || state.Liquidity == nil {
		return model.PriceData{}, ReasonFetchFailed, fmt.Errorf("incomplete pool state")
	}
	if state.SqrtPriceX96.Sign() == 0 {
		return model.PriceData{}, ReasonUninitialized, nil
	}

	if n.minLiquidity != nil && state.Liquidity.Cmp(n.minLiquidity) < 0 {
		return model.PriceData{}, ReasonLowLiquidity, fmt.Errorf("liquidity %s below %s", state.Liquidity, n.minLiquidity)
	}

	ctx := numeric.NewContext()
	raw, err := numeric.SqrtPriceX96ToRatio(ctx, state.SqrtPriceX96)
	if err != nil {
		return model.PriceData{}, ReasonArithmetic, err
	}
	human, err := numeric.ScaleDecimals(ctx, raw, pool.Token0.Decimals, pool.Token1.Decimals)
	if err != nil {
		return model.PriceData{}, ReasonArithmetic, err
	}

	if n.isStablePair(pool) && (human.Cmp(n.lower) < 0 || human.Cmp(n.upper) > 0) {
		return model.PriceData{}, ReasonStableDepeg, fmt.Errorf("price %s outside [%s, %s]", numeric.Round(human, 6), n.lower.Text('f'), n.upper.Text('f'))
	}

	return model.PriceData{
		Pool:       pool.Address,
		Token0:     pool.Token0.Symbol,
		Token1:     pool.Token1.Symbol,
		RawRatio:   raw,
		HumanPrice: human,
		Liquidity:  new(big.Int).Set(state.Liquidity),
	}, "", nil
}

func (n *Normalizer) isStablePair(pool model.Pool) bool {
	_, ok0 := n.stable[pool.Token0.Symbol]
	_, ok1 := n.stable[pool.Token1.Symbol]
	return ok0 && ok1
}
