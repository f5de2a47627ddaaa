package main

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"feeTierScope/internal/aggregate"
	"feeTierScope/internal/arbitrage"
	"feeTierScope/internal/chain"
	"feeTierScope/internal/config"
	"feeTierScope/internal/dex"
	"feeTierScope/internal/scanner"
	"feeTierScope/internal/storage"
	"feeTierScope/internal/storage/postgres"
	redisstore "feeTierScope/internal/storage/redis"
)

type app struct {
	runner  *scanner.Runner
	closers []func()
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

func newApp(ctx context.Context, cfg config.Config, logger *zap.Logger) (_ *app, err error) {
	a := &app{}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	if cfg.RPCURL == "" {
		return nil, fmt.Errorf("rpc url is required")
	}
	factory, err := scanner.ParseAddress("factory", cfg.Factory)
	if err != nil {
		return nil, err
	}
	tokenA, tokenB, err := pairAddresses(cfg)
	if err != nil {
		return nil, err
	}
	tiers, err := scanner.ParseFeeTiers(cfg.FeeTiers)
	if err != nil {
		return nil, err
	}
	policy, err := arbitrage.ParsePairPolicy(cfg.PairPolicy)
	if err != nil {
		return nil, err
	}

	evaluator, err := arbitrage.NewEvaluator(arbitrage.Params{
		TradeAmount: cfg.TradeAmount,
		CombinedFee: cfg.CombinedFee,
		MaxSlippage: cfg.MaxSlippage,
		Threshold:   cfg.Threshold,
		Policy:      policy,
	})
	if err != nil {
		return nil, err
	}

	chainClient, err := chain.NewClient(ctx, cfg.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("connect rpc: %w", err)
	}
	a.closers = append(a.closers, chainClient.Close)

	chainID, err := chainClient.GetChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("get chain id: %w", err)
	}
	if !chainID.IsUint64() {
		return nil, fmt.Errorf("chain id does not fit in uint64: %s", chainID)
	}
	block, err := chainClient.LatestBlockNumber(ctx)
	if err != nil {
		return nil, fmt.Errorf("get latest block: %w", err)
	}

	reader := dex.NewReader(chainClient, factory)

	var decimalsStore aggregate.DecimalsStore
	if cfg.RedisAddr != "" {
		store, err := redisstore.NewDecimalsStore(ctx, redisstore.ClientConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		}, chainID.Uint64())
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() { _ = store.Close() })
		decimalsStore = store
	}
	decimals := aggregate.NewDecimalsCache(reader, decimalsStore, logger)

	symbols := make([]string, 0, 2)
	for _, token := range []common.Address{tokenA, tokenB} {
		meta, err := reader.ReadTokenMeta(ctx, token)
		if err != nil {
			logger.Warn("token metadata unavailable", zap.String("token", token.Hex()), zap.Error(err))
			symbols = append(symbols, token.Hex())
			continue
		}
		decimals.Put(meta.Address, meta.Decimals)
		symbols = append(symbols, meta.Symbol)
	}

	aggregator, err := aggregate.NewAggregator(aggregate.Config{
		TokenA:         tokenA,
		TokenB:         tokenB,
		FeeTiers:       tiers,
		MaxConcurrency: cfg.MaxConcurrency,
		PoolCacheSize:  cfg.PoolCacheSize,
	}, reader, decimals, logger)
	if err != nil {
		return nil, err
	}

	sinks := []storage.Sink{{Name: "jsonl", Recorder: storage.NewJsonlStorage(cfg.Out)}}
	if cfg.PgDSN != "" {
		pgStore, err := postgres.NewStore(ctx, cfg.PgDSN, tokenA, tokenB)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		a.closers = append(a.closers, pgStore.Close)
		if err := pgStore.EnsureSchema(ctx); err != nil {
			return nil, err
		}
		sinks = append(sinks, storage.Sink{Name: "postgres", Recorder: pgStore})
	}
	recorders := storage.NewMulti(storage.RetryPolicy{
		MaxRetries: cfg.MaxRetries,
		Backoff:    cfg.RetryBackoff,
	}, logger, sinks...)

	runner, err := scanner.NewRunner(scanner.RunConfig{
		Interval:     cfg.Interval,
		CycleTimeout: cfg.CycleTimeout,
	}, aggregator, evaluator, recorders, logger)
	if err != nil {
		return nil, err
	}
	a.runner = runner

	logger.Info("scanner start",
		zap.Uint64("chain_id", chainID.Uint64()),
		zap.Uint64("block", block),
		zap.String("factory", factory.Hex()),
		zap.Strings("pair", symbols),
		zap.String("token_a", tokenA.Hex()),
		zap.String("token_b", tokenB.Hex()),
		zap.Any("fee_tiers", tiers),
		zap.String("threshold", cfg.Threshold.String()),
		zap.String("pair_policy", string(policy)),
		zap.Duration("interval", cfg.Interval),
		zap.String("out", cfg.Out),
		zap.Bool("postgres", cfg.PgDSN != ""),
		zap.Bool("redis", cfg.RedisAddr != ""),
	)

	return a, nil
}

func pairAddresses(cfg config.Config) (common.Address, common.Address, error) {
	tokenA, err := scanner.ParseAddress("token-a", cfg.TokenA)
	if err != nil {
		return common.Address{}, common.Address{}, err
	}
	tokenB, err := scanner.ParseAddress("token-b", cfg.TokenB)
	if err != nil {
		return common.Address{}, common.Address{}, err
	}
	if tokenA == tokenB {
		return common.Address{}, common.Address{}, fmt.Errorf("token-a and token-b must differ")
	}
	return tokenA, tokenB, nil
}
