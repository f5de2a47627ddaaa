package aggregate

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// DecimalsFetcher reads a token's decimals from chain.
type DecimalsFetcher interface {
	ReadTokenDecimals(ctx context.Context, token common.Address) (uint8, error)
}

// DecimalsStore is an optional persistent tier consulted before the fetcher.
type DecimalsStore interface {
	LoadDecimals(ctx context.Context, token common.Address) (uint8, bool, error)
	SaveDecimals(ctx context.Context, token common.Address, decimals uint8) error
}

// DefaultFetchTimeout bounds a shared decimals fetch.
const DefaultFetchTimeout = 10 * time.Second

// DecimalsCache caches token decimals by address. A token's value is written
// once and never replaced; concurrent misses for the same token share one fetch.
type DecimalsCache struct {
	mu   sync.RWMutex
	data map[common.Address]uint8

	fetcher      DecimalsFetcher
	store        DecimalsStore
	group        singleflight.Group
	fetchTimeout time.Duration
	logger       *zap.Logger
}

func NewDecimalsCache(fetcher DecimalsFetcher, store DecimalsStore, logger *zap.Logger) *DecimalsCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DecimalsCache{
		data:         make(map[common.Address]uint8),
		fetcher:      fetcher,
		store:        store,
		fetchTimeout: DefaultFetchTimeout,
		logger:       logger,
	}
}

// SetFetchTimeout changes the bound on a shared fetch. Non-positive values are ignored.
func (c *DecimalsCache) SetFetchTimeout(timeout time.Duration) {
	if timeout > 0 {
		c.fetchTimeout = timeout
	}
}

// Peek returns the cached value without fetching.
func (c *DecimalsCache) Peek(token common.Address) (uint8, bool) {
	c.mu.RLock()
	decimals, ok := c.data[token]
	c.mu.RUnlock()
	return decimals, ok
}

// Put records decimals for a token unless already present and returns the
// value held by the cache afterwards.
func (c *DecimalsCache) Put(token common.Address, decimals uint8) uint8 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if existing, ok := c.data[token]; ok {
		return existing
	}
	c.data[token] = decimals
	return decimals
}

// Len returns the number of cached tokens.
func (c *DecimalsCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.data)
}

// Get returns the decimals for a token, loading them on first use. The shared
// fetch is detached from the caller's cancellation so one cancelled caller does
// not fail the others waiting on it; it is bounded by the fetch timeout instead.
func (c *DecimalsCache) Get(ctx context.Context, token common.Address) (uint8, error) {
	if decimals, ok := c.Peek(token); ok {
		return decimals, nil
	}

	ch := c.group.DoChan(token.Hex(), func() (interface{}, error) {
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.fetchTimeout)
		defer cancel()
		return c.load(fetchCtx, token)
	})

	select {
	case <-ctx.Done():
		return 0, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return 0, res.Err
		}
		return res.Val.(uint8), nil
	}
}

func (c *DecimalsCache) load(ctx context.Context, token common.Address) (uint8, error) {
	if decimals, ok := c.Peek(token); ok {
		return decimals, nil
	}

	if c.store != nil {
		decimals, ok, err := c.store.LoadDecimals(ctx, token)
		if err != nil {
			c.logger.Warn("decimals store load failed", zap.String("token", token.Hex()), zap.Error(err))
		} else if ok {
			return c.Put(token, decimals), nil
		}
	}

	if c.fetcher == nil {
		return 0, fmt.Errorf("decimals fetcher is nil")
	}
	decimals, err := c.fetcher.ReadTokenDecimals(ctx, token)
	if err != nil {
		return 0, fmt.Errorf("fetch decimals %s: %w", token.Hex(), err)
	}
	stored := c.Put(token, decimals)

	if c.store != nil {
		if err := c.store.SaveDecimals(ctx, token, stored); err != nil {
			c.logger.Warn("decimals store save failed", zap.String("token", token.Hex()), zap.Error(err))
		}
	}
	return stored, nil
}
