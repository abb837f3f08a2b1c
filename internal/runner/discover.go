package runner

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"triarb/internal/metrics"
	"triarb/internal/model"
	"triarb/internal/storage"
	"triarb/internal/triad"
)

// DiscoveryConfig holds runtime settings for a discovery run.
type DiscoveryConfig struct {
	Tokens    []model.Token
	FeeTiers  []uint32
	RoutesKey string
	PoolsKey  string
}

// Discovery finds every triad over the token universe and replaces the
// stored pool registry and route set.
type Discovery struct {
	cfg      DiscoveryConfig
	oracle   triad.PoolOracle
	verifier TokenVerifier
	store    storage.SetStore
	metrics  *metrics.Metrics
	logger   *zap.Logger
}

// NewDiscovery builds a Discovery. A nil verifier skips token verification.
func NewDiscovery(cfg DiscoveryConfig, oracle triad.PoolOracle, verifier TokenVerifier, store storage.SetStore, m *metrics.Metrics, logger *zap.Logger) *Discovery {
	if logger == nil {
		logger = zap.NewNop()
	}
	if m == nil {
		m = metrics.New()
	}
	return &Discovery{
		cfg:      cfg,
		oracle:   oracle,
		verifier: verifier,
		store:    store,
		metrics:  m,
		logger:   logger,
	}
}

// Run executes one discovery pass.
func (d *Discovery) Run(ctx context.Context) (*triad.Result, error) {
	if d.oracle == nil {
		return nil, fmt.Errorf("pool oracle is nil")
	}
	if d.store == nil {
		return nil, fmt.Errorf("store is nil")
	}
	if len(d.cfg.FeeTiers) == 0 {
		return nil, fmt.Errorf("at least one fee tier is required")
	}

	if d.verifier != nil {
		if err := d.verifier.VerifyTokens(ctx, d.cfg.Tokens); err != nil {
			return nil, fmt.Errorf("verify tokens: %w", err)
		}
		d.logger.Info("token decimals verified", zap.Int("tokens", len(d.cfg.Tokens)))
	}

	result, err := triad.Discover(ctx, d.oracle, d.cfg.Tokens, d.cfg.FeeTiers, d.logger)
	if err != nil {
		return nil, err
	}

	d.metrics.PoolQueries.Add(float64(result.Queried))
	d.metrics.PoolsDiscovered.Set(float64(len(result.Pools)))
	d.metrics.RoutesDiscovered.Set(float64(len(result.Routes)))

	// Routes first: the pool registry is informational and is only
	// replaced once the route set it describes is stored.
	if err := storage.SaveRoutes(ctx, d.store, d.cfg.RoutesKey, result.Routes); err != nil {
		return nil, err
	}
	if err := storage.SavePools(ctx, d.store, d.cfg.PoolsKey, result.Pools); err != nil {
		return nil, err
	}

	d.logger.Info("routes stored",
		zap.String("routes_key", d.cfg.RoutesKey),
		zap.String("pools_key", d.cfg.PoolsKey),
		zap.Int("pools", len(result.Pools)),
		zap.Int("routes", len(result.Routes)),
	)
	return result, nil
}
