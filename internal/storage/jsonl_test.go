package storage

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"feeTierScope/internal/model"
)

func sampleOpportunity(ts int64) model.ArbitrageOpportunity {
	return model.ArbitrageOpportunity{
		Timestamp:        ts,
		FeeTierA:         500,
		FeeTierB:         3000,
		PriceA:           decimal.RequireFromString("3000"),
		PriceB:           decimal.RequireFromString("3000.002"),
		PriceDifference:  decimal.RequireFromString("0.002"),
		PercentArbitrage: decimal.RequireFromString("0.0000666666666666"),
		PotentialPnL:     decimal.RequireFromString("0.0006666666"),
	}
}

func TestJsonlRecordAppendsLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "opps.jsonl")
	store := NewJsonlStorage(path)

	require.NoError(t, store.Record(context.Background(), sampleOpportunity(1)))
	require.NoError(t, store.Record(context.Background(), sampleOpportunity(2)))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	require.Len(t, lines, 2)

	var fields map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &fields))
	for _, key := range []string{"timestamp", "fee_tier_a", "fee_tier_b", "price_a", "price_b", "price_difference", "percent_arbitrage", "potential_pnl"} {
		assert.Contains(t, fields, key)
	}
	assert.Len(t, fields, 8)
	assert.Equal(t, float64(500), fields["fee_tier_a"])
	assert.Equal(t, 3000.002, fields["price_b"])

	records, err := ReadJsonl(path)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, int64(1), records[0].Timestamp)
	assert.Equal(t, int64(2), records[1].Timestamp)
	assert.Equal(t, model.FeeTier(3000), records[1].FeeTierB)
}

func TestJsonlRecordConcurrentWrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "opps.jsonl")
	store := NewJsonlStorage(path)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(ts int64) {
			defer wg.Done()
			assert.NoError(t, store.Record(context.Background(), sampleOpportunity(ts)))
		}(int64(i))
	}
	wg.Wait()

	records, err := ReadJsonl(path)
	require.NoError(t, err)
	assert.Len(t, records, 20)
}

func TestJsonlRecordCancelledContext(t *testing.T) {
	path := filepath.Join(t.TempDir(), "opps.jsonl")
	store := NewJsonlStorage(path)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, store.Record(ctx, sampleOpportunity(1)), context.Canceled)
	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}
