package storage

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"feeTierScope/internal/model"
)

// Sink is a named recorder inside a Multi.
type Sink struct {
	Name     string
	Recorder Recorder
}

// Multi records to every sink, retrying each one on its own so a sink that
// already accepted the record is never written twice.
type Multi struct {
	sinks  []Sink
	policy RetryPolicy
	logger *zap.Logger
}

func NewMulti(policy RetryPolicy, logger *zap.Logger, sinks ...Sink) *Multi {
	if logger == nil {
		logger = zap.NewNop()
	}
	kept := make([]Sink, 0, len(sinks))
	for _, sink := range sinks {
		if sink.Recorder != nil {
			kept = append(kept, sink)
		}
	}
	return &Multi{sinks: kept, policy: policy, logger: logger}
}

// Len returns the number of sinks.
func (m *Multi) Len() int {
	return len(m.sinks)
}

// Record writes opp to all sinks. A failing sink does not stop the others;
// their final errors are joined.
func (m *Multi) Record(ctx context.Context, opp model.ArbitrageOpportunity) error {
	var errs []error
	for _, sink := range m.sinks {
		err := recordWithRetry(ctx, m.policy, m.logger, sink.Name, func(ctx context.Context) error {
			return sink.Recorder.Record(ctx, opp)
		})
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", sink.Name, err))
		}
	}
	return errors.Join(errs...)
}
