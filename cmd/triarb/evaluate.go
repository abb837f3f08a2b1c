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
	"triarb/internal/evaluate"
	"triarb/internal/metrics"
	"triarb/internal/model"
	"triarb/internal/pricing"
	"triarb/internal/report"
	"triarb/internal/runner"
)

func runEvaluate(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadEvaluate(cfgFile, cmd.Flags())
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

	m := metrics.New()
	evaluation, err := runner.NewEvaluation(runner.EvaluationConfig{
		RoutesKey: cfg.RoutesKey,
		Pricing: pricing.Config{
			MinLiquidity:    cfg.MinLiquidity,
			StableTokens:    cfg.StableTokens,
			StableTolerance: cfg.StableTolerance,
		},
		Evaluate: evaluate.Config{
			Base:       cfg.BaseToken,
			TestAmount: cfg.TestAmount,
			MinProfit:  cfg.MinProfit,
			Tokens:     model.NewTokenSet(cfg.Tokens),
		},
	}, dex.NewStateReader(chainClient, logger), store, m, logger)
	if err != nil {
		return err
	}

	logger.Info("evaluate start", append(storeFields(cfg.Store),
		zap.String("rpc", cfg.RPCURL),
		zap.String("base_token", cfg.BaseToken),
		zap.String("test_amount", cfg.TestAmount.Text('f')),
		zap.String("min_profit", cfg.MinProfit.Text('f')),
		zap.String("min_liquidity", cfg.MinLiquidity.String()),
		zap.Strings("stable_tokens", cfg.StableTokens),
	)...)

	result, err := evaluation.Run(ctx)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "evaluated %d routes starting from %s %s\n",
		result.Evaluated, cfg.TestAmount.Text('f'), cfg.BaseToken)
	report.Opportunities(out, result.Accepted, cfg.Top)
	report.Rejections(out, result.Rejected)

	if err := m.WriteTextfile(cfg.MetricsFile); err != nil {
		logger.Warn("write metrics failed", zap.String("path", cfg.MetricsFile), zap.Error(err))
	}
	return nil
}
