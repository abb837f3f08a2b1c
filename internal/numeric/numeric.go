// Package numeric holds the arbitrary-precision decimal helpers used for
// price derivation and rate chaining.
package numeric

import (
	"fmt"
	"math/big"

	"github.com/cockroachdb/apd/v3"
)

const (
	// Precision is the number of significant digits kept by every operation.
	Precision = 60
	// MaxExponent bounds the decimal exponent of any intermediate value.
	MaxExponent = 2000
	// MinExponent bounds the decimal exponent of any intermediate value.
	MinExponent = -2000

	feeDenominator = 1_000_000
)

var q192 = new(big.Int).Lsh(big.NewInt(1), 192)

// NewContext returns the decimal context for price math. Overflow, underflow
// and division by zero trap and surface as errors.
func NewContext() *apd.Context {
	return &apd.Context{
		Precision:   Precision,
		MaxExponent: MaxExponent,
		MinExponent: MinExponent,
		Traps:       apd.DefaultTraps,
		Rounding:    apd.RoundHalfEven,
	}
}

// Parse parses a decimal string such as "1", "0.01" or "1e-3".
func Parse(s string) (*apd.Decimal, error) {
	d, _, err := apd.NewFromString(s)
	if err != nil {
		return nil, fmt.Errorf("parse decimal %q: %w", s, err)
	}
	return d, nil
}

// MustParse is Parse for constants.
func MustParse(s string) *apd.Decimal {
	d, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return d
}

// FromBigInt converts an integer exactly.
func FromBigInt(x *big.Int) *apd.Decimal {
	coeff := new(apd.BigInt).SetMathBigInt(x)
	return apd.NewWithBigInt(coeff, 0)
}

// Pow10 returns 10^exp exactly.
func Pow10(exp int) *apd.Decimal {
	return apd.New(1, int32(exp))
}

// SqrtPriceX96ToRatio converts a Q64.96 square-root price into the raw
// token1-per-token0 ratio (sqrtPrice / 2^96)^2. The square is taken exactly
// so the division is the only rounded step.
func SqrtPriceX96ToRatio(ctx *apd.Context, sqrtPriceX96 *big.Int) (*apd.Decimal, error) {
	if sqrtPriceX96 == nil || sqrtPriceX96.Sign() < 0 {
		return nil, fmt.Errorf("invalid sqrt price %v", sqrtPriceX96)
	}
	squared := new(big.Int).Mul(sqrtPriceX96, sqrtPriceX96)

	ratio := new(apd.Decimal)
	if _, err := ctx.Quo(ratio, FromBigInt(squared), FromBigInt(q192)); err != nil {
		return nil, fmt.Errorf("divide by 2^192: %w", err)
	}
	return ratio, nil
}

// ScaleDecimals multiplies value by 10^(from-to), converting a smallest-unit
// ratio into whole units.
func ScaleDecimals(ctx *apd.Context, value *apd.Decimal, from, to uint8) (*apd.Decimal, error) {
	out := new(apd.Decimal)
	if _, err := ctx.Mul(out, value, Pow10(int(from)-int(to))); err != nil {
		return nil, fmt.Errorf("scale by 10^(%d-%d): %w", from, to, err)
	}
	return out, nil
}

// Inverse returns 1/value.
func Inverse(ctx *apd.Context, value *apd.Decimal) (*apd.Decimal, error) {
	out := new(apd.Decimal)
	if _, err := ctx.Quo(out, apd.New(1, 0), value); err != nil {
		return nil, fmt.Errorf("invert %s: %w", value.Text('f'), err)
	}
	return out, nil
}

// FeeMultiplier returns 1 - fee/1e6 for a fee in parts per million. The
// result is exact.
func FeeMultiplier(fee uint32) (*apd.Decimal, error) {
	if fee > feeDenominator {
		return nil, fmt.Errorf("fee %d exceeds %d ppm", fee, feeDenominator)
	}
	return apd.New(int64(feeDenominator-fee), -6), nil
}

// FeePercent renders a ppm fee as a percentage string: 500 -> "0.05".
func FeePercent(fee uint32) string {
	d := apd.New(int64(fee), -4)
	d.Reduce(d)
	return d.Text('f')
}

// Round rounds value to places fractional digits for display.
func Round(value *apd.Decimal, places int32) string {
	if value == nil {
		return ""
	}
	ctx := NewContext()
	out := new(apd.Decimal)
	if _, err := ctx.Quantize(out, value, -places); err != nil {
		return value.Text('f')
	}
	return out.Text('f')
}
