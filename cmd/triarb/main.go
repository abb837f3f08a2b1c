package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"triarb/internal/config"
	"triarb/internal/storage"
	"triarb/internal/storage/postgres"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "load .env: %v\n", err)
		os.Exit(1)
	}

	root := &cobra.Command{
		Use:          "triarb",
		Short:        "Uniswap V3 triangular arbitrage scanner",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	discoverCmd := &cobra.Command{
		Use:   "discover",
		Short: "Discover pools and store every triangular route",
		RunE:  runDiscover,
	}

	addCommonFlags(discoverCmd.Flags())
	discoverCmd.Flags().String("factory", config.DefaultFactory, "Uniswap V3 factory address")
	discoverCmd.Flags().StringSlice("fee-tiers", config.DefaultFeeTiers, "fee tiers in ppm (comma-separated)")
	discoverCmd.Flags().Bool("verify-decimals", true, "check configured token decimals on-chain")

	root.AddCommand(discoverCmd)

	evaluateCmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Price stored routes and report profitable cycles",
		RunE:  runEvaluate,
	}

	addCommonFlags(evaluateCmd.Flags())
	evaluateCmd.Flags().String("base-token", "WETH", "symbol every route starts and ends with")
	evaluateCmd.Flags().String("test-amount", "1", "amount of the base token pushed through each route")
	evaluateCmd.Flags().String("min-profit", "0", "minimum profit in base token units (exclusive)")
	evaluateCmd.Flags().String("min-liquidity", "0", "minimum in-range pool liquidity")
	evaluateCmd.Flags().StringSlice("stable-tokens", nil, "stablecoin symbols checked for depeg (comma-separated)")
	evaluateCmd.Flags().String("stable-tolerance", "0.01", "allowed deviation from 1 for stable pairs")
	evaluateCmd.Flags().Int("top", 0, "print at most N opportunities, 0 means all")

	root.AddCommand(evaluateCmd)

	routesCmd := &cobra.Command{
		Use:   "routes",
		Short: "List stored routes",
		RunE:  runRoutes,
	}

	addStoreFlags(routesCmd.Flags())
	routesCmd.Flags().Bool("pools", false, "list the stored pool registry instead")

	root.AddCommand(routesCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func addStoreFlags(flags *pflag.FlagSet) {
	flags.String("store", config.StorePostgres, "route store (postgres, file, memory)")
	flags.String("pg-dsn", "", "Postgres DSN")
	flags.String("store-path", "./data", "directory for the file store")
	flags.String("routes-key", "triarb:routes", "key of the stored route set")
	flags.String("pools-key", "triarb:pools", "key of the stored pool registry")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")
}

func addCommonFlags(flags *pflag.FlagSet) {
	addStoreFlags(flags)
	flags.String("rpc", "", "Ethereum RPC URL")
	flags.Int("batch-size", 500, "calls per JSON-RPC batch")
	flags.Int("max-retries", 0, "retry a failed batch request up to N times, 0 disables retries")
	flags.Duration("retry-backoff", config.DefaultRetryBackoff, "initial retry backoff")
	flags.Float64("rpc-rate-limit", 0, "maximum batch requests per second, 0 means unlimited")
	flags.String("metrics-file", "", "write Prometheus metrics to this textfile after the run")
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}

// openStore returns the configured set store and a function releasing it.
func openStore(ctx context.Context, cfg config.StoreConfig) (storage.SetStore, func(), error) {
	switch cfg.Kind {
	case config.StorePostgres:
		store, err := postgres.NewStore(ctx, cfg.PGDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("connect postgres: %w", err)
		}
		if err := store.EnsureSchema(ctx); err != nil {
			store.Close()
			return nil, nil, err
		}
		return store, store.Close, nil
	case config.StoreFile:
		store, err := storage.NewFileStore(cfg.Path)
		if err != nil {
			return nil, nil, err
		}
		return store, func() {}, nil
	case config.StoreMemory:
		return storage.NewMemoryStore(), func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown store %q", cfg.Kind)
	}
}

func storeFields(cfg config.StoreConfig) []zap.Field {
	fields := []zap.Field{zap.String("store", cfg.Kind)}
	switch cfg.Kind {
	case config.StorePostgres:
		fields = append(fields, zap.String("pg_dsn", redactDSN(cfg.PGDSN)))
	case config.StoreFile:
		fields = append(fields, zap.String("store_path", cfg.Path))
	}
	return fields
}

func redactDSN(dsn string) string {
	if dsn == "" {
		return dsn
	}
	return "***"
}
