package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"feeTierScope/internal/model"
)

const createTableSQL = `
	CREATE TABLE IF NOT EXISTS arbitrage_opportunities (
		id UUID PRIMARY KEY,
		detected_at TIMESTAMPTZ NOT NULL,
		token_a TEXT NOT NULL,
		token_b TEXT NOT NULL,
		fee_tier_a INTEGER NOT NULL,
		fee_tier_b INTEGER NOT NULL,
		price_a NUMERIC NOT NULL,
		price_b NUMERIC NOT NULL,
		price_difference NUMERIC NOT NULL,
		percent_arbitrage NUMERIC NOT NULL,
		potential_pnl NUMERIC NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`

const createIndexSQL = `
	CREATE INDEX IF NOT EXISTS arbitrage_opportunities_detected_at_idx
		ON arbitrage_opportunities (detected_at DESC)`

type pgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Close()
}

// Store provides Postgres persistence for opportunity records.
type Store struct {
	pool   pgxPool
	tokenA string
	tokenB string
}

// RecordedOpportunity is a stored opportunity with its row metadata.
type RecordedOpportunity struct {
	ID          string
	TokenA      string
	TokenB      string
	DetectedAt  time.Time
	Opportunity model.ArbitrageOpportunity
}

func NewStore(ctx context.Context, dsn string, tokenA, tokenB common.Address) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return newStoreWithPool(pool, tokenA, tokenB), nil
}

func newStoreWithPool(pool pgxPool, tokenA, tokenB common.Address) *Store {
	return &Store{pool: pool, tokenA: tokenA.Hex(), tokenB: tokenB.Hex()}
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// EnsureSchema creates the opportunities table when missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, createTableSQL); err != nil {
		return fmt.Errorf("create opportunities table: %w", err)
	}
	if _, err := s.pool.Exec(ctx, createIndexSQL); err != nil {
		return fmt.Errorf("create opportunities index: %w", err)
	}
	return nil
}

// Record inserts one opportunity row.
func (s *Store) Record(ctx context.Context, opp model.ArbitrageOpportunity) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO arbitrage_opportunities (
			id, detected_at, token_a, token_b, fee_tier_a, fee_tier_b,
			price_a, price_b, price_difference, percent_arbitrage, potential_pnl
		) VALUES ($1, $2, $3, $4, $5, $6, $7::numeric, $8::numeric, $9::numeric, $10::numeric, $11::numeric)
	`,
		uuid.New(),
		time.Unix(opp.Timestamp, 0).UTC(),
		s.tokenA,
		s.tokenB,
		int64(opp.FeeTierA),
		int64(opp.FeeTierB),
		opp.PriceA.String(),
		opp.PriceB.String(),
		opp.PriceDifference.String(),
		opp.PercentArbitrage.String(),
		opp.PotentialPnL.String(),
	)
	if err != nil {
		return fmt.Errorf("insert opportunity: %w", err)
	}
	return nil
}

// ListRecent returns the newest opportunities first.
func (s *Store) ListRecent(ctx context.Context, limit int) ([]RecordedOpportunity, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be positive")
	}
	rows, err := s.pool.Query(ctx, `
		SELECT id::text, detected_at, token_a, token_b, fee_tier_a, fee_tier_b,
			price_a::text, price_b::text, price_difference::text, percent_arbitrage::text, potential_pnl::text
		FROM arbitrage_opportunities
		ORDER BY detected_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query opportunities: %w", err)
	}
	defer rows.Close()

	var out []RecordedOpportunity
	for rows.Next() {
		var (
			rec            RecordedOpportunity
			feeA, feeB     int64
			priceA, priceB string
			diff, pct, pnl string
		)
		if err := rows.Scan(&rec.ID, &rec.DetectedAt, &rec.TokenA, &rec.TokenB, &feeA, &feeB,
			&priceA, &priceB, &diff, &pct, &pnl); err != nil {
			return nil, fmt.Errorf("scan opportunity: %w", err)
		}

		values, err := parseDecimals(priceA, priceB, diff, pct, pnl)
		if err != nil {
			return nil, fmt.Errorf("opportunity %s: %w", rec.ID, err)
		}
		rec.Opportunity = model.ArbitrageOpportunity{
			Timestamp:        rec.DetectedAt.Unix(),
			FeeTierA:         model.FeeTier(feeA),
			FeeTierB:         model.FeeTier(feeB),
			PriceA:           values[0],
			PriceB:           values[1],
			PriceDifference:  values[2],
			PercentArbitrage: values[3],
			PotentialPnL:     values[4],
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate opportunities: %w", err)
	}
	return out, nil
}

func parseDecimals(values ...string) ([]decimal.Decimal, error) {
	out := make([]decimal.Decimal, len(values))
	for i, v := range values {
		d, err := decimal.NewFromString(v)
		if err != nil {
			return nil, fmt.Errorf("invalid numeric %q: %w", v, err)
		}
		out[i] = d
	}
	return out, nil
}
