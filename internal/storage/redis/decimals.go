// Package redis persists token decimals using go-redis/v9.
package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/redis/go-redis/v9"
)

const defaultNamespace = "feetierscope"

// ClientConfig holds connection parameters for the Redis client.
type ClientConfig struct {
	Addr     string
	Password string
	DB       int
}

// DecimalsStore keeps token decimals keyed by chain and address. Entries are
// written once and have no expiry.
type DecimalsStore struct {
	rdb       *redis.Client
	namespace string
}

// NewDecimalsStore connects to Redis and verifies the connection.
func NewDecimalsStore(ctx context.Context, cfg ClientConfig, chainID uint64) (*DecimalsStore, error) {
	if cfg.Addr == "" {
		return nil, fmt.Errorf("redis addr is required")
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis: ping: %w", err)
	}
	return NewDecimalsStoreFromClient(rdb, chainID), nil
}

func NewDecimalsStoreFromClient(rdb *redis.Client, chainID uint64) *DecimalsStore {
	return &DecimalsStore{
		rdb:       rdb,
		namespace: fmt.Sprintf("%s:%d", defaultNamespace, chainID),
	}
}

func (s *DecimalsStore) key(token common.Address) string {
	return s.namespace + ":decimals:" + strings.ToLower(token.Hex())
}

// LoadDecimals returns the stored decimals and whether the token was found.
func (s *DecimalsStore) LoadDecimals(ctx context.Context, token common.Address) (uint8, bool, error) {
	value, err := s.rdb.Get(ctx, s.key(token)).Int()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("redis: get decimals %s: %w", token.Hex(), err)
	}
	if value < 0 || value > 255 {
		return 0, false, fmt.Errorf("redis: decimals out of range for %s: %d", token.Hex(), value)
	}
	return uint8(value), true, nil
}

// SaveDecimals stores decimals unless the token already has a value.
func (s *DecimalsStore) SaveDecimals(ctx context.Context, token common.Address, decimals uint8) error {
	if err := s.rdb.SetNX(ctx, s.key(token), int(decimals), 0).Err(); err != nil {
		return fmt.Errorf("redis: set decimals %s: %w", token.Hex(), err)
	}
	return nil
}

// Close closes the Redis connection.
func (s *DecimalsStore) Close() error {
	return s.rdb.Close()
}
