package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"feeTierScope/internal/storage/postgres"
)

func runRecent(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.PgDSN == "" {
		return fmt.Errorf("pg dsn is required")
	}
	limit, _ := cmd.Flags().GetInt("limit")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tokenA, tokenB, err := pairAddresses(cfg)
	if err != nil {
		return err
	}
	store, err := postgres.NewStore(ctx, cfg.PgDSN, tokenA, tokenB)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer store.Close()

	records, err := store.ListRecent(ctx, limit)
	if err != nil {
		return err
	}
	logger.Debug("recent opportunities", zap.Int("rows", len(records)))

	out := cmd.OutOrStdout()
	for _, rec := range records {
		opp := rec.Opportunity
		fmt.Fprintf(out, "%s  %d/%d  a=%s b=%s diff=%s pct=%s pnl=%s\n",
			rec.DetectedAt.Format("2006-01-02T15:04:05Z07:00"),
			opp.FeeTierA, opp.FeeTierB,
			opp.PriceA, opp.PriceB,
			opp.PriceDifference, opp.PercentArbitrage, opp.PotentialPnL,
		)
	}
	return nil
}
