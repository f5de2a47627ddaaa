package aggregate

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"feeTierScope/internal/model"
	"feeTierScope/internal/pricing"
)

// PoolSource resolves and reads V3 pools.
type PoolSource interface {
	ResolvePool(ctx context.Context, tokenA, tokenB common.Address, fee model.FeeTier) (common.Address, error)
	ReadPoolState(ctx context.Context, pool common.Address) (model.RawPoolState, error)
}

// Config controls snapshot collection.
type Config struct {
	TokenA         common.Address
	TokenB         common.Address
	FeeTiers       []model.FeeTier
	MaxConcurrency int
	PoolCacheSize  int
}

// Aggregator collects one normalized price per configured fee tier.
type Aggregator struct {
	cfg      Config
	source   PoolSource
	decimals *DecimalsCache
	pools    *PoolCache
	logger   *zap.Logger
}

type tierResult struct {
	missing bool
	price   model.TierPrice
}

func NewAggregator(cfg Config, source PoolSource, decimals *DecimalsCache, logger *zap.Logger) (*Aggregator, error) {
	if source == nil {
		return nil, fmt.Errorf("pool source is nil")
	}
	if decimals == nil {
		return nil, fmt.Errorf("decimals cache is nil")
	}
	if len(cfg.FeeTiers) == 0 {
		return nil, fmt.Errorf("at least one fee tier is required")
	}
	if cfg.MaxConcurrency <= 0 {
		cfg.MaxConcurrency = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	pools, err := NewPoolCache(cfg.PoolCacheSize)
	if err != nil {
		return nil, err
	}

	return &Aggregator{
		cfg:      cfg,
		source:   source,
		decimals: decimals,
		pools:    pools,
		logger:   logger,
	}, nil
}

// Collect reads every configured tier and returns the snapshot in tier order.
// Tiers without a pool are reported in Missing; any read failure aborts the
// whole collection.
func (a *Aggregator) Collect(ctx context.Context) (model.PriceSnapshot, error) {
	results := make([]tierResult, len(a.cfg.FeeTiers))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.cfg.MaxConcurrency)
	for i, fee := range a.cfg.FeeTiers {
		i, fee := i, fee
		g.Go(func() error {
			res, err := a.collectTier(gctx, fee)
			if err != nil {
				return fmt.Errorf("fee tier %d: %w", fee, err)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return model.PriceSnapshot{}, err
	}

	var snapshot model.PriceSnapshot
	for i, res := range results {
		if res.missing {
			snapshot.Missing = append(snapshot.Missing, a.cfg.FeeTiers[i])
			continue
		}
		snapshot.Add(res.price)
	}
	return snapshot, nil
}

func (a *Aggregator) collectTier(ctx context.Context, fee model.FeeTier) (tierResult, error) {
	pool, err := a.resolvePool(ctx, fee)
	if err != nil {
		return tierResult{}, err
	}
	if pool == (common.Address{}) {
		a.logger.Info("no pool found for fee tier", zap.Uint32("fee", uint32(fee)))
		return tierResult{missing: true}, nil
	}

	state, err := a.source.ReadPoolState(ctx, pool)
	if err != nil {
		return tierResult{}, fmt.Errorf("read pool %s: %w", pool.Hex(), err)
	}

	decimals0, err := a.decimals.Get(ctx, state.Token0)
	if err != nil {
		return tierResult{}, fmt.Errorf("token0 decimals: %w", err)
	}
	decimals1, err := a.decimals.Get(ctx, state.Token1)
	if err != nil {
		return tierResult{}, fmt.Errorf("token1 decimals: %w", err)
	}

	price := pricing.NormalizeSqrtPriceX96(state.SqrtPriceX96, decimals0, decimals1)
	if price.IsZero() {
		a.logger.Warn("degenerate pool price", zap.Uint32("fee", uint32(fee)), zap.String("pool", pool.Hex()))
	}

	a.logger.Debug("tier price",
		zap.Uint32("fee", uint32(fee)),
		zap.String("pool", pool.Hex()),
		zap.String("price", price.String()),
	)

	return tierResult{price: model.TierPrice{Fee: fee, Pool: pool, Price: price}}, nil
}

func (a *Aggregator) resolvePool(ctx context.Context, fee model.FeeTier) (common.Address, error) {
	if pool, ok := a.pools.Get(a.cfg.TokenA, a.cfg.TokenB, fee); ok {
		return pool, nil
	}
	pool, err := a.source.ResolvePool(ctx, a.cfg.TokenA, a.cfg.TokenB, fee)
	if err != nil {
		return common.Address{}, fmt.Errorf("resolve pool: %w", err)
	}
	a.pools.Add(a.cfg.TokenA, a.cfg.TokenB, fee, pool)
	return pool, nil
}
