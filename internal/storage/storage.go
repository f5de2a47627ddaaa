package storage

import (
	"context"

	"feeTierScope/internal/model"
)

// Recorder durably appends opportunity records.
type Recorder interface {
	Record(ctx context.Context, opp model.ArbitrageOpportunity) error
}
