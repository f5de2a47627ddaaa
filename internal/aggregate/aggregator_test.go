package aggregate

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"feeTierScope/internal/model"
)

type fakeSource struct {
	mu         sync.Mutex
	pools      map[model.FeeTier]common.Address
	states     map[common.Address]model.RawPoolState
	resolveN   map[model.FeeTier]int
	readErr    error
	resolveErr error
}

func (s *fakeSource) ResolvePool(ctx context.Context, tokenA, tokenB common.Address, fee model.FeeTier) (common.Address, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.resolveN == nil {
		s.resolveN = make(map[model.FeeTier]int)
	}
	s.resolveN[fee]++
	if s.resolveErr != nil {
		return common.Address{}, s.resolveErr
	}
	return s.pools[fee], nil
}

func (s *fakeSource) ReadPoolState(ctx context.Context, pool common.Address) (model.RawPoolState, error) {
	if s.readErr != nil {
		return model.RawPoolState{}, s.readErr
	}
	state, ok := s.states[pool]
	if !ok {
		return model.RawPoolState{}, errors.New("unknown pool")
	}
	return state, nil
}

var (
	pool500  = common.HexToAddress("0x0000000000000000000000000000000000000500")
	pool3000 = common.HexToAddress("0x0000000000000000000000000000000000003000")
)

// 2^96 encodes a raw price of exactly 1.
func unitSqrtPrice() *uint256.Int {
	return new(uint256.Int).Lsh(uint256.NewInt(1), 96)
}

func newTestAggregator(t *testing.T, source PoolSource, tiers ...model.FeeTier) *Aggregator {
	t.Helper()
	decimals := NewDecimalsCache(&countingFetcher{decimals: map[common.Address]uint8{usdc: 6, weth: 6}}, nil, nil)
	agg, err := NewAggregator(Config{
		TokenA:         usdc,
		TokenB:         weth,
		FeeTiers:       tiers,
		MaxConcurrency: 2,
	}, source, decimals, nil)
	require.NoError(t, err)
	return agg
}

func TestCollectOrdersByConfiguredTier(t *testing.T) {
	double := new(uint256.Int).Lsh(uint256.NewInt(2), 96)
	source := &fakeSource{
		pools: map[model.FeeTier]common.Address{500: pool500, 3000: pool3000},
		states: map[common.Address]model.RawPoolState{
			pool500:  {Pool: pool500, SqrtPriceX96: unitSqrtPrice(), Token0: usdc, Token1: weth},
			pool3000: {Pool: pool3000, SqrtPriceX96: double, Token0: usdc, Token1: weth},
		},
	}
	agg := newTestAggregator(t, source, 3000, 500)

	snapshot, err := agg.Collect(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, snapshot.Len())
	assert.Empty(t, snapshot.Missing)

	assert.Equal(t, model.FeeTier(3000), snapshot.Prices[0].Fee)
	assert.Equal(t, pool3000, snapshot.Prices[0].Pool)
	assert.Equal(t, "4", snapshot.Prices[0].Price.String())
	assert.Equal(t, model.FeeTier(500), snapshot.Prices[1].Fee)
	assert.Equal(t, "1", snapshot.Prices[1].Price.String())
}

func TestCollectSkipsMissingPool(t *testing.T) {
	source := &fakeSource{
		pools: map[model.FeeTier]common.Address{500: pool500},
		states: map[common.Address]model.RawPoolState{
			pool500: {Pool: pool500, SqrtPriceX96: unitSqrtPrice(), Token0: usdc, Token1: weth},
		},
	}
	agg := newTestAggregator(t, source, 500, 3000)

	snapshot, err := agg.Collect(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, snapshot.Len())
	assert.Equal(t, model.FeeTier(500), snapshot.Prices[0].Fee)
	assert.Equal(t, []model.FeeTier{3000}, snapshot.Missing)
}

func TestCollectCachesOnlyExistingPools(t *testing.T) {
	source := &fakeSource{
		pools: map[model.FeeTier]common.Address{500: pool500},
		states: map[common.Address]model.RawPoolState{
			pool500: {Pool: pool500, SqrtPriceX96: unitSqrtPrice(), Token0: usdc, Token1: weth},
		},
	}
	agg := newTestAggregator(t, source, 500, 3000)

	for i := 0; i < 3; i++ {
		_, err := agg.Collect(context.Background())
		require.NoError(t, err)
	}
	assert.Equal(t, 1, source.resolveN[500])
	assert.Equal(t, 3, source.resolveN[3000])
	assert.Equal(t, 1, agg.pools.Len())
}

func TestCollectAbortsOnReadError(t *testing.T) {
	source := &fakeSource{
		pools:   map[model.FeeTier]common.Address{500: pool500, 3000: pool3000},
		readErr: errors.New("slot0 reverted"),
	}
	agg := newTestAggregator(t, source, 500, 3000)

	_, err := agg.Collect(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "slot0 reverted")
}

func TestCollectAbortsOnResolveError(t *testing.T) {
	source := &fakeSource{resolveErr: errors.New("factory unreachable")}
	agg := newTestAggregator(t, source, 500)

	_, err := agg.Collect(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "factory unreachable")
}

func TestNewAggregatorValidates(t *testing.T) {
	decimals := NewDecimalsCache(nil, nil, nil)
	_, err := NewAggregator(Config{}, &fakeSource{}, decimals, nil)
	assert.Error(t, err)
	_, err = NewAggregator(Config{FeeTiers: []model.FeeTier{500}}, nil, decimals, nil)
	assert.Error(t, err)
	_, err = NewAggregator(Config{FeeTiers: []model.FeeTier{500}}, &fakeSource{}, nil, nil)
	assert.Error(t, err)
}
