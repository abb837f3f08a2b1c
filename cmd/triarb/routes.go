package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"triarb/internal/config"
	"triarb/internal/report"
	"triarb/internal/storage"
)

func runRoutes(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadRoutes(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx := context.Background()
	store, closeStore, err := openStore(ctx, cfg.Store)
	if err != nil {
		return err
	}
	defer closeStore()

	out := cmd.OutOrStdout()
	if showPools, _ := cmd.Flags().GetBool("pools"); showPools {
		pools, err := storage.LoadPools(ctx, store, cfg.PoolsKey, logger)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%d pools under %s\n", len(pools), cfg.PoolsKey)
		report.Pools(out, pools)
		return nil
	}

	routes, skipped, err := storage.LoadRoutes(ctx, store, cfg.RoutesKey, logger)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "%d routes under %s", len(routes), cfg.RoutesKey)
	if skipped > 0 {
		fmt.Fprintf(out, " (%d malformed records skipped)", skipped)
	}
	fmt.Fprintln(out)
	report.Routes(out, routes)
	return nil
}
