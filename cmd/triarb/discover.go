package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"triarb/internal/chain"
	"triarb/internal/config"
	"triarb/internal/dex"
	"triarb/internal/metrics"
	"triarb/internal/report"
	"triarb/internal/runner"
)

func runDiscover(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadDiscover(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	chainClient, err := chain.NewClient(ctx, cfg.RPCURL, cfg.BatchSize)
	if err != nil {
		return fmt.Errorf("connect rpc: %w", err)
	}
	defer chainClient.Close()
	chainClient.WithRetry(cfg.MaxRetries, cfg.RetryBackoff).WithRateLimit(cfg.RateLimit)

	store, closeStore, err := openStore(ctx, cfg.Store)
	if err != nil {
		return err
	}
	defer closeStore()

	var verifier runner.TokenVerifier
	if cfg.VerifyDecimals {
		verifier = dex.NewTokenReader(chainClient, logger)
	}

	m := metrics.New()
	discovery := runner.NewDiscovery(runner.DiscoveryConfig{
		Tokens:    cfg.Tokens,
		FeeTiers:  cfg.FeeTiers,
		RoutesKey: cfg.RoutesKey,
		PoolsKey:  cfg.PoolsKey,
	}, dex.NewPoolFinder(chainClient, cfg.Factory, logger), verifier, store, m, logger)

	logger.Info("discover start", append(storeFields(cfg.Store),
		zap.String("rpc", cfg.RPCURL),
		zap.String("factory", cfg.Factory.Hex()),
		zap.Int("tokens", len(cfg.Tokens)),
		zap.Uint32s("fee_tiers", cfg.FeeTiers),
		zap.Int("batch_size", cfg.BatchSize),
		zap.Bool("verify_decimals", cfg.VerifyDecimals),
	)...)

	result, err := discovery.Run(ctx)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "discovered %d pools and %d routes over %d tokens\n",
		len(result.Pools), len(result.Routes), len(cfg.Tokens))
	report.Pools(out, result.Pools)

	if err := m.WriteTextfile(cfg.MetricsFile); err != nil {
		logger.Warn("write metrics failed", zap.String("path", cfg.MetricsFile), zap.Error(err))
	}
	return nil
}
