// Package evaluate chains fee-adjusted exchange rates along triad routes and
// keeps the routes whose round trip beats a profit threshold.
package evaluate

import (
	"fmt"
	"sort"

	"github.com/cockroachdb/apd/v3"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"triarb/internal/model"
	"triarb/internal/numeric"
)

// Rejection is the reason a route was not accepted.
type Rejection string

const (
	RejectWrongStart            Rejection = "wrong_start"
	RejectMissingPrice          Rejection = "missing_price"
	RejectTokenMismatch         Rejection = "token_mismatch"
	RejectUnresolvableDirection Rejection = "unresolvable_direction"
	RejectUnknownToken          Rejection = "unknown_token"
	RejectNotClosed             Rejection = "not_closed"
	RejectBelowThreshold        Rejection = "below_threshold"
	RejectArithmetic            Rejection = "arithmetic"
)

// Config controls route evaluation.
type Config struct {
	// Base is the symbol every accepted route starts and ends with.
	Base string
	// TestAmount is the notional amount of Base pushed through each route.
	// Defaults to 1.
	TestAmount *apd.Decimal
	// MinProfit is the exclusive profit threshold in Base units. Defaults to 0.
	MinProfit *apd.Decimal
	Tokens    model.TokenSet
}

// Opportunity is an accepted route with its quoted outcome.
type Opportunity struct {
	Route         model.TriadRoute
	Legs          []string
	Pools         []string
	StartToken    string
	StartAmount   *apd.Decimal
	FinalAmount   *apd.Decimal
	Profit        *apd.Decimal
	ProfitRatio   *apd.Decimal
	ProfitPercent *apd.Decimal
}

// Result is the outcome of evaluating a set of routes.
type Result struct {
	Accepted  []Opportunity
	Rejected  map[Rejection]int
	Evaluated int
}

// Evaluator scores routes against normalized prices.
type Evaluator struct {
	base       string
	testAmount *apd.Decimal
	minProfit  *apd.Decimal
	tokens     model.TokenSet
	logger     *zap.Logger
}

// NewEvaluator validates cfg and builds an Evaluator.
func NewEvaluator(cfg Config, logger *zap.Logger) (*Evaluator, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if _, ok := cfg.Tokens[cfg.Base]; !ok {
		return nil, fmt.Errorf("base token %q is not configured", cfg.Base)
	}

	testAmount := cfg.TestAmount
	if testAmount == nil {
		testAmount = apd.New(1, 0)
	}
	if testAmount.Sign() <= 0 {
		return nil, fmt.Errorf("test amount must be positive, got %s", testAmount.Text('f'))
	}
	minProfit := cfg.MinProfit
	if minProfit == nil {
		minProfit = apd.New(0, 0)
	}

	return &Evaluator{
		base:       cfg.Base,
		testAmount: testAmount,
		minProfit:  minProfit,
		tokens:     cfg.Tokens,
		logger:     logger,
	}, nil
}

// Evaluate scores every route. Accepted opportunities are sorted by profit,
// highest first.
func (e *Evaluator) Evaluate(routes []model.TriadRoute, prices map[common.Address]model.PriceData) Result {
	result := Result{
		Accepted:  make([]Opportunity, 0),
		Rejected:  make(map[Rejection]int),
		Evaluated: len(routes),
	}

	for _, route := range routes {
		opportunity, rejection := e.EvaluateRoute(route, prices)
		if rejection != "" {
			result.Rejected[rejection]++
			e.logger.Debug("route rejected",
				zap.String("route", route.Description()),
				zap.String("reason", string(rejection)),
			)
			continue
		}
		result.Accepted = append(result.Accepted, opportunity)
	}

	sort.SliceStable(result.Accepted, func(i, j int) bool {
		return result.Accepted[i].Profit.Cmp(result.Accepted[j].Profit) > 0
	})

	return result
}

// EvaluateRoute quotes a single route. A non-empty Rejection means the route
// was not accepted and the Opportunity is zero.
func (e *Evaluator) EvaluateRoute(route model.TriadRoute, prices map[common.Address]model.PriceData) (Opportunity, Rejection) {
	if route.Legs[0].TokenIn != e.base {
		return Opportunity{}, RejectWrongStart
	}
	for _, leg := range route.Legs {
		if _, ok := prices[leg.Pool]; !ok {
			return Opportunity{}, RejectMissingPrice
		}
	}

	ctx := numeric.NewContext()
	amount := new(apd.Decimal).Set(e.testAmount)
	current := e.base

	for _, leg := range route.Legs {
		if leg.TokenIn != current {
			return Opportunity{}, RejectTokenMismatch
		}
		rate, rejection := legRate(ctx, leg, prices[leg.Pool], e.tokens)
		if rejection != "" {
			return Opportunity{}, rejection
		}
		if _, err := ctx.Mul(amount, amount, rate); err != nil {
			return Opportunity{}, RejectArithmetic
		}
		current = leg.TokenOut
	}

	if current != e.base {
		return Opportunity{}, RejectNotClosed
	}

	profit := new(apd.Decimal)
	if _, err := ctx.Sub(profit, amount, e.testAmount); err != nil {
		return Opportunity{}, RejectArithmetic
	}
	if profit.Cmp(e.minProfit) <= 0 {
		return Opportunity{}, RejectBelowThreshold
	}

	ratio, percent := new(apd.Decimal), new(apd.Decimal)
	if _, err := ctx.Quo(ratio, profit, e.testAmount); err != nil {
		return Opportunity{}, RejectArithmetic
	}
	if _, err := ctx.Mul(percent, ratio, apd.New(100, 0)); err != nil {
		return Opportunity{}, RejectArithmetic
	}

	return Opportunity{
		Route:         route,
		Legs:          describeLegs(route),
		Pools:         poolLabels(route),
		StartToken:    e.base,
		StartAmount:   new(apd.Decimal).Set(e.testAmount),
		FinalAmount:   amount,
		Profit:        profit,
		ProfitRatio:   ratio,
		ProfitPercent: percent,
	}, ""
}

// legRate returns the fee-adjusted amount of TokenOut received per whole
// unit of TokenIn.
func legRate(ctx *apd.Context, leg model.RouteLeg, price model.PriceData, tokens model.TokenSet) (*apd.Decimal, Rejection) {
	var raw *apd.Decimal
	switch {
	case leg.TokenIn == price.Token0 && leg.TokenOut == price.Token1:
		raw = price.RawRatio
	case leg.TokenIn == price.Token1 && leg.TokenOut == price.Token0:
		inverse, err := numeric.Inverse(ctx, price.RawRatio)
		if err != nil {
			return nil, RejectArithmetic
		}
		raw = inverse
	default:
		return nil, RejectUnresolvableDirection
	}

	tokenIn, okIn := tokens[leg.TokenIn]
	tokenOut, okOut := tokens[leg.TokenOut]
	if !okIn || !okOut {
		return nil, RejectUnknownToken
	}

	human, err := numeric.ScaleDecimals(ctx, raw, tokenIn.Decimals, tokenOut.Decimals)
	if err != nil {
		return nil, RejectArithmetic
	}
	fee, err := numeric.FeeMultiplier(leg.Fee)
	if err != nil {
		return nil, RejectArithmetic
	}
	rate := new(apd.Decimal)
	if _, err := ctx.Mul(rate, human, fee); err != nil {
		return nil, RejectArithmetic
	}
	return rate, ""
}

func describeLegs(route model.TriadRoute) []string {
	out := make([]string, 0, len(route.Legs))
	for _, leg := range route.Legs {
		out = append(out, fmt.Sprintf("%s→%s (%s%%)", leg.TokenIn, leg.TokenOut, numeric.FeePercent(leg.Fee)))
	}
	return out
}

func poolLabels(route model.TriadRoute) []string {
	out := make([]string, 0, len(route.Legs))
	for _, leg := range route.Legs {
		out = append(out, ShortAddress(leg.Pool))
	}
	return out
}

// ShortAddress renders an address as 0x88e6…5640.
func ShortAddress(address common.Address) string {
	hex := address.Hex()
	return hex[:6] + "…" + hex[len(hex)-4:]
}
