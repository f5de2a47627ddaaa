package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"feeTierScope/internal/config"
	"feeTierScope/internal/scanner"
)

func main() {
	root := &cobra.Command{
		Use:          "scanner",
		Short:        "Uniswap V3 fee-tier arbitrage scanner",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Poll pools continuously and record opportunities",
		RunE:  runScanner,
	}
	addScanFlags(runCmd.Flags())
	root.AddCommand(runCmd)

	onceCmd := &cobra.Command{
		Use:   "once",
		Short: "Run a single cycle and print the result",
		RunE:  runOnce,
	}
	addScanFlags(onceCmd.Flags())
	root.AddCommand(onceCmd)

	recentCmd := &cobra.Command{
		Use:   "recent",
		Short: "List recently recorded opportunities from Postgres",
		RunE:  runRecent,
	}
	recentCmd.Flags().String("pg-dsn", "", "Postgres DSN")
	recentCmd.Flags().Int("limit", 20, "number of rows to show")
	recentCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")
	root.AddCommand(recentCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func addScanFlags(flags *pflag.FlagSet) {
	flags.String("rpc", "", "Polygon RPC URL (falls back to RPC_URL)")
	flags.String("factory", config.DefaultFactory, "Uniswap V3 factory address")
	flags.String("token-a", config.DefaultTokenA, "first token of the pair")
	flags.String("token-b", config.DefaultTokenB, "second token of the pair")
	flags.StringSlice("fee-tiers", []string{"500", "3000"}, "fee tiers to compare (comma-separated)")
	flags.String("threshold", "0.0000005", "minimum absolute price difference")
	flags.String("trade-amount", "1000", "notional trade amount")
	flags.String("combined-fee", "0.05", "combined fee deducted from pnl")
	flags.String("max-slippage", "0.01", "slippage fraction applied to the trade amount")
	flags.String("pair-policy", "first-two", "tier pair selection (first-two, max-divergence)")
	flags.Duration("interval", 2*time.Second, "poll interval")
	flags.Duration("cycle-timeout", 10*time.Second, "timeout for a single cycle")
	flags.Int("max-concurrency", 4, "concurrent fee tier reads")
	flags.Int("pool-cache-size", 64, "pool address cache size")
	flags.String("out", "./data/arbitrage_opportunities.jsonl", "output JSONL path")
	flags.String("pg-dsn", "", "optional Postgres DSN for recording opportunities")
	flags.String("redis-addr", "", "optional Redis address for persisting token decimals")
	flags.String("redis-password", "", "Redis password")
	flags.Int("redis-db", 0, "Redis database")
	flags.Int("max-retries", 3, "maximum record retry attempts")
	flags.Duration("retry-backoff", 200*time.Millisecond, "initial retry backoff")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")
}

func runScanner(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer app.Close()

	return app.runner.Run(ctx)
}

func runOnce(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer app.Close()

	result := app.runner.RunCycle(ctx)
	if err := printResult(cmd, result); err != nil {
		return err
	}
	if result.Err != nil {
		return result.Err
	}
	return nil
}

func loadConfig(cmd *cobra.Command) (config.Config, *zap.Logger, error) {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return config.Config{}, nil, err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return config.Config{}, nil, err
	}
	return cfg, logger, nil
}

type cycleOutput struct {
	Kind        string            `json:"kind"`
	Reason      string            `json:"reason,omitempty"`
	Prices      map[string]string `json:"prices"`
	Missing     []uint32          `json:"missing_tiers,omitempty"`
	Opportunity any               `json:"opportunity,omitempty"`
	Error       string            `json:"error,omitempty"`
	DurationMS  int64             `json:"duration_ms"`
}

func printResult(cmd *cobra.Command, result scanner.CycleResult) error {
	out := cycleOutput{
		Kind:       string(result.Kind),
		Reason:     string(result.Decision.Reason),
		Prices:     make(map[string]string, result.Snapshot.Len()),
		DurationMS: result.Duration.Milliseconds(),
	}
	for _, p := range result.Snapshot.Prices {
		out.Prices[fmt.Sprintf("%d", p.Fee)] = p.Price.String()
	}
	for _, fee := range result.Snapshot.Missing {
		out.Missing = append(out.Missing, uint32(fee))
	}
	if result.Decision.Opportunity != nil {
		out.Opportunity = result.Decision.Opportunity
	}
	if result.Err != nil {
		out.Error = result.Err.Error()
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(out)
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
