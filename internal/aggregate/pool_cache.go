package aggregate

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	lru "github.com/hashicorp/golang-lru/v2"

	"feeTierScope/internal/model"
)

const defaultPoolCacheSize = 64

type poolKey struct {
	tokenA common.Address
	tokenB common.Address
	fee    model.FeeTier
}

// PoolCache remembers factory pool addresses. Only existing pools are cached
// since a missing pool can be deployed later.
type PoolCache struct {
	entries *lru.Cache[poolKey, common.Address]
}

func NewPoolCache(size int) (*PoolCache, error) {
	if size <= 0 {
		size = defaultPoolCacheSize
	}
	entries, err := lru.New[poolKey, common.Address](size)
	if err != nil {
		return nil, fmt.Errorf("create pool cache: %w", err)
	}
	return &PoolCache{entries: entries}, nil
}

func (c *PoolCache) Get(tokenA, tokenB common.Address, fee model.FeeTier) (common.Address, bool) {
	return c.entries.Get(poolKey{tokenA: tokenA, tokenB: tokenB, fee: fee})
}

func (c *PoolCache) Add(tokenA, tokenB common.Address, fee model.FeeTier, pool common.Address) {
	if pool == (common.Address{}) {
		return
	}
	c.entries.Add(poolKey{tokenA: tokenA, tokenB: tokenB, fee: fee}, pool)
}

func (c *PoolCache) Len() int {
	return c.entries.Len()
}
