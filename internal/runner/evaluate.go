package runner

import (
	"context"
	"fmt"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"triarb/internal/evaluate"
	"triarb/internal/metrics"
	"triarb/internal/model"
	"triarb/internal/pricing"
	"triarb/internal/storage"
)

// EvaluationConfig holds runtime settings for an evaluation run.
type EvaluationConfig struct {
	RoutesKey string
	Pricing   pricing.Config
	Evaluate  evaluate.Config
}

// Evaluation loads stored routes, prices their pools and scores them.
type Evaluation struct {
	cfg        EvaluationConfig
	states     StateFetcher
	store      storage.SetStore
	normalizer *pricing.Normalizer
	evaluator  *evaluate.Evaluator
	metrics    *metrics.Metrics
	logger     *zap.Logger
}

// NewEvaluation validates cfg and builds an Evaluation.
func NewEvaluation(cfg EvaluationConfig, states StateFetcher, store storage.SetStore, m *metrics.Metrics, logger *zap.Logger) (*Evaluation, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if m == nil {
		m = metrics.New()
	}
	normalizer, err := pricing.NewNormalizer(cfg.Pricing, logger)
	if err != nil {
		return nil, err
	}
	evaluator, err := evaluate.NewEvaluator(cfg.Evaluate, logger)
	if err != nil {
		return nil, err
	}
	return &Evaluation{
		cfg:        cfg,
		states:     states,
		store:      store,
		normalizer: normalizer,
		evaluator:  evaluator,
		metrics:    m,
		logger:     logger,
	}, nil
}

// Run executes one evaluation pass. It returns ErrNoRoutes when nothing has
// been discovered yet.
func (e *Evaluation) Run(ctx context.Context) (evaluate.Result, error) {
	if e.states == nil {
		return evaluate.Result{}, fmt.Errorf("state fetcher is nil")
	}
	if e.store == nil {
		return evaluate.Result{}, fmt.Errorf("store is nil")
	}

	routes, skipped, err := storage.LoadRoutes(ctx, e.store, e.cfg.RoutesKey, e.logger)
	if err != nil {
		return evaluate.Result{}, err
	}
	if len(routes) == 0 {
		return evaluate.Result{}, ErrNoRoutes
	}
	e.logger.Info("routes loaded", zap.Int("routes", len(routes)), zap.Int("skipped", skipped))

	pools := e.poolsFromRoutes(routes)
	addresses := make([]common.Address, 0, len(pools))
	for _, address := range model.DistinctPools(routes) {
		if _, ok := pools[address]; ok {
			addresses = append(addresses, address)
		}
	}

	states, err := e.states.FetchPoolStates(ctx, addresses)
	if err != nil {
		return evaluate.Result{}, err
	}

	inputs := make([]pricing.PoolInput, 0, len(states))
	for _, state := range states {
		pool, ok := pools[state.Pool]
		if !ok {
			continue
		}
		inputs = append(inputs, pricing.PoolInput{Pool: pool, State: state.State, Err: state.Err})
	}

	prices, exclusions := e.normalizer.Normalize(inputs)
	for _, exclusion := range exclusions {
		e.metrics.PoolsExcluded.WithLabelValues(string(exclusion.Reason)).Inc()
	}

	result := e.evaluator.Evaluate(routes, prices)
	for reason, count := range result.Rejected {
		e.metrics.RoutesRejected.WithLabelValues(string(reason)).Add(float64(count))
	}
	e.metrics.RoutesAccepted.Add(float64(len(result.Accepted)))
	if len(result.Accepted) > 0 {
		if best, err := strconv.ParseFloat(result.Accepted[0].ProfitRatio.Text('f'), 64); err == nil {
			e.metrics.BestProfitRatio.Set(best)
		}
	}

	e.logger.Info("evaluation completed",
		zap.Int("routes", len(routes)),
		zap.Int("pools", len(addresses)),
		zap.Int("priced", len(prices)),
		zap.Int("excluded", len(exclusions)),
		zap.Int("accepted", len(result.Accepted)),
	)
	return result, nil
}

// poolsFromRoutes rebuilds pools from the token0/token1 order stored on each
// leg. Pools whose legs name unknown tokens, disagree with each other on
// order, or whose configured addresses no longer sort in the stored order are
// left out and their routes end up without a price.
func (e *Evaluation) poolsFromRoutes(routes []model.TriadRoute) map[common.Address]model.Pool {
	tokens := e.cfg.Evaluate.Tokens
	pools := make(map[common.Address]model.Pool)
	dropped := make(map[common.Address]struct{})
	for _, route := range routes {
		for _, leg := range route.Legs {
			if _, ok := dropped[leg.Pool]; ok {
				continue
			}
			if seen, ok := pools[leg.Pool]; ok {
				if seen.Token0.Symbol != leg.Token0 || seen.Token1.Symbol != leg.Token1 || seen.Fee != leg.Fee {
					e.logger.Warn("routes disagree on pool order",
						zap.String("pool", leg.Pool.Hex()),
						zap.String("token0", seen.Token0.Symbol+"/"+leg.Token0),
						zap.String("token1", seen.Token1.Symbol+"/"+leg.Token1),
					)
					delete(pools, leg.Pool)
					dropped[leg.Pool] = struct{}{}
				}
				continue
			}

			token0, ok0 := tokens[leg.Token0]
			token1, ok1 := tokens[leg.Token1]
			if !ok0 || !ok1 {
				e.logger.Warn("route references unknown token",
					zap.String("pool", leg.Pool.Hex()),
					zap.String("token0", leg.Token0),
					zap.String("token1", leg.Token1),
				)
				dropped[leg.Pool] = struct{}{}
				continue
			}
			if !model.AddressLess(token0.Address, token1.Address) {
				e.logger.Warn("configured token addresses disagree with stored pool order",
					zap.String("pool", leg.Pool.Hex()),
					zap.String("token0", leg.Token0),
					zap.String("token1", leg.Token1),
				)
				dropped[leg.Pool] = struct{}{}
				continue
			}
			pools[leg.Pool] = model.Pool{Address: leg.Pool, Token0: token0, Token1: token1, Fee: leg.Fee}
		}
	}
	return pools
}
