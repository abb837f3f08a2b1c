package config

import (
	"fmt"
	"math/big"

	"github.com/cockroachdb/apd/v3"
	"github.com/spf13/pflag"

	"triarb/internal/model"
	"triarb/internal/numeric"
)

// DefaultStableTokens are treated as pegged to each other when configured.
var DefaultStableTokens = []string{"USDC", "USDT", "DAI"}

// EvaluateConfig holds configuration for the evaluate command.
type EvaluateConfig struct {
	Common
	BaseToken       string
	TestAmount      *apd.Decimal
	MinProfit       *apd.Decimal
	MinLiquidity    *big.Int
	StableTokens    []string
	StableTolerance *apd.Decimal
	Top             int
}

// LoadEvaluate merges config file, environment variables, and flags into EvaluateConfig.
func LoadEvaluate(cfgFile string, flags *pflag.FlagSet) (EvaluateConfig, error) {
	v, err := newViper(cfgFile, flags)
	if err != nil {
		return EvaluateConfig{}, err
	}
	v.SetDefault("base-token", "WETH")
	v.SetDefault("test-amount", "1")
	v.SetDefault("min-profit", "0")
	v.SetDefault("min-liquidity", "0")
	v.SetDefault("stable-tolerance", "0.01")
	v.SetDefault("top", 0)

	shared, err := loadCommon(v)
	if err != nil {
		return EvaluateConfig{}, err
	}
	if err := shared.requireChain(); err != nil {
		return EvaluateConfig{}, err
	}
	tokens := model.NewTokenSet(shared.Tokens)

	cfg := EvaluateConfig{
		Common:    shared,
		BaseToken: v.GetString("base-token"),
		Top:       v.GetInt("top"),
	}
	if _, ok := tokens[cfg.BaseToken]; !ok {
		return EvaluateConfig{}, fmt.Errorf("base token %q is not in the token list", cfg.BaseToken)
	}
	if cfg.Top < 0 {
		return EvaluateConfig{}, fmt.Errorf("top must not be negative")
	}

	if cfg.TestAmount, err = numeric.Parse(v.GetString("test-amount")); err != nil {
		return EvaluateConfig{}, fmt.Errorf("test-amount: %w", err)
	}
	if cfg.TestAmount.Sign() <= 0 {
		return EvaluateConfig{}, fmt.Errorf("test-amount must be positive")
	}
	if cfg.MinProfit, err = numeric.Parse(v.GetString("min-profit")); err != nil {
		return EvaluateConfig{}, fmt.Errorf("min-profit: %w", err)
	}
	if cfg.StableTolerance, err = numeric.Parse(v.GetString("stable-tolerance")); err != nil {
		return EvaluateConfig{}, fmt.Errorf("stable-tolerance: %w", err)
	}
	if cfg.StableTolerance.Sign() < 0 {
		return EvaluateConfig{}, fmt.Errorf("stable-tolerance must not be negative")
	}

	minLiquidity, ok := new(big.Int).SetString(v.GetString("min-liquidity"), 10)
	if !ok || minLiquidity.Sign() < 0 {
		return EvaluateConfig{}, fmt.Errorf("min-liquidity must be a non-negative integer, got %q", v.GetString("min-liquidity"))
	}
	cfg.MinLiquidity = minLiquidity

	stable := getStringSlice(v, "stable-tokens")
	if stable == nil {
		// Defaults apply only to the stablecoins actually configured.
		for _, symbol := range DefaultStableTokens {
			if _, ok := tokens[symbol]; ok {
				stable = append(stable, symbol)
			}
		}
	} else {
		for _, symbol := range stable {
			if _, ok := tokens[symbol]; !ok {
				return EvaluateConfig{}, fmt.Errorf("stable token %q is not in the token list", symbol)
			}
		}
	}
	cfg.StableTokens = stable

	return cfg, nil
}
