package scanner

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"feeTierScope/internal/arbitrage"
	"feeTierScope/internal/model"
	"feeTierScope/internal/storage"
)

// Collector produces one price snapshot per call.
type Collector interface {
	Collect(ctx context.Context) (model.PriceSnapshot, error)
}

// Evaluator turns a snapshot into a decision.
type Evaluator interface {
	Evaluate(snapshot model.PriceSnapshot) arbitrage.Decision
}

// CycleKind classifies the outcome of one poll cycle.
type CycleKind string

const (
	CycleOpportunity      CycleKind = "opportunity"
	CycleNoOpportunity    CycleKind = "no_opportunity"
	CycleInsufficientData CycleKind = "insufficient_data"
	CycleCollectFailed    CycleKind = "collect_failed"
	CycleRecordFailed     CycleKind = "record_failed"
)

// CycleResult is the explicit outcome of RunCycle.
type CycleResult struct {
	Kind     CycleKind
	Snapshot model.PriceSnapshot
	Decision arbitrage.Decision
	Err      error
	Started  time.Time
	Duration time.Duration
}

// RunConfig holds runtime settings for the poll loop.
type RunConfig struct {
	Interval     time.Duration
	CycleTimeout time.Duration
}

// Runner drives collect, evaluate and record cycles. Retrying failed writes
// is left to the recorder (see storage.Multi) so each sink is written once.
type Runner struct {
	cfg       RunConfig
	collector Collector
	evaluator Evaluator
	recorder  storage.Recorder
	logger    *zap.Logger

	mu    sync.Mutex
	stats map[CycleKind]uint64
}

// NewRunner builds a Runner with its dependencies.
func NewRunner(cfg RunConfig, collector Collector, evaluator Evaluator, recorder storage.Recorder, logger *zap.Logger) (*Runner, error) {
	if collector == nil {
		return nil, fmt.Errorf("collector is nil")
	}
	if evaluator == nil {
		return nil, fmt.Errorf("evaluator is nil")
	}
	if recorder == nil {
		return nil, fmt.Errorf("recorder is nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		cfg:       cfg,
		collector: collector,
		evaluator: evaluator,
		recorder:  recorder,
		logger:    logger,
		stats:     make(map[CycleKind]uint64),
	}, nil
}

// Run executes a cycle immediately and then once per interval until ctx is
// cancelled. Cycle failures are logged and never end the loop.
func (r *Runner) Run(ctx context.Context) error {
	if r.cfg.Interval <= 0 {
		return fmt.Errorf("interval must be greater than zero")
	}

	ticker := time.NewTicker(r.cfg.Interval)
	defer ticker.Stop()

	for ctx.Err() == nil {
		r.RunCycle(ctx)

		select {
		case <-ctx.Done():
		case <-ticker.C:
		}
	}

	r.logger.Info("scanner stopped", zap.Any("stats", r.Stats()))
	return nil
}

// RunCycle performs one collect, evaluate and record pass.
func (r *Runner) RunCycle(ctx context.Context) CycleResult {
	result := CycleResult{Started: time.Now()}

	cycleCtx := ctx
	if r.cfg.CycleTimeout > 0 {
		var cancel context.CancelFunc
		cycleCtx, cancel = context.WithTimeout(ctx, r.cfg.CycleTimeout)
		defer cancel()
	}

	r.runCycle(cycleCtx, &result)
	result.Duration = time.Since(result.Started)

	r.observe(result)
	return result
}

func (r *Runner) runCycle(ctx context.Context, result *CycleResult) {
	snapshot, err := r.collector.Collect(ctx)
	if err != nil {
		result.Kind = CycleCollectFailed
		result.Err = fmt.Errorf("collect prices: %w", err)
		return
	}
	result.Snapshot = snapshot

	decision := r.evaluator.Evaluate(snapshot)
	result.Decision = decision

	switch decision.Reason {
	case arbitrage.ReasonInsufficientData, arbitrage.ReasonDegeneratePrice:
		result.Kind = CycleInsufficientData
	case arbitrage.ReasonOpportunity:
		if err := r.recorder.Record(ctx, *decision.Opportunity); err != nil {
			result.Kind = CycleRecordFailed
			result.Err = fmt.Errorf("record opportunity: %w", err)
			return
		}
		result.Kind = CycleOpportunity
	default:
		result.Kind = CycleNoOpportunity
	}
}

// Stats returns the number of cycles seen per kind.
func (r *Runner) Stats() map[CycleKind]uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[CycleKind]uint64, len(r.stats))
	for kind, n := range r.stats {
		out[kind] = n
	}
	return out
}

func (r *Runner) observe(result CycleResult) {
	r.mu.Lock()
	r.stats[result.Kind]++
	r.mu.Unlock()

	d := result.Decision
	fields := []zap.Field{
		zap.String("kind", string(result.Kind)),
		zap.Duration("duration", result.Duration),
		zap.Strings("prices", formatPrices(result.Snapshot)),
	}
	if len(result.Snapshot.Missing) > 0 {
		fields = append(fields, zap.Int("missing_tiers", len(result.Snapshot.Missing)))
	}

	switch result.Kind {
	case CycleCollectFailed, CycleRecordFailed:
		r.logger.Warn("cycle failed", append(fields, zap.Error(result.Err))...)
	case CycleInsufficientData:
		r.logger.Info("insufficient data", append(fields, zap.String("reason", string(d.Reason)))...)
	case CycleOpportunity:
		opp := d.Opportunity
		r.logger.Info("arbitrage opportunity", append(fields,
			zap.Uint32("fee_tier_a", uint32(opp.FeeTierA)),
			zap.Uint32("fee_tier_b", uint32(opp.FeeTierB)),
			zap.String("price_difference", opp.PriceDifference.String()),
			zap.String("percent_arbitrage", opp.PercentArbitrage.String()),
			zap.String("potential_pnl", opp.PotentialPnL.String()),
		)...)
	default:
		r.logger.Info("no opportunity", append(fields,
			zap.String("reason", string(d.Reason)),
			zap.String("price_difference", d.PriceDifference.String()),
			zap.String("potential_pnl", d.PotentialPnL.String()),
		)...)
	}
}

func formatPrices(snapshot model.PriceSnapshot) []string {
	out := make([]string, 0, snapshot.Len())
	for _, p := range snapshot.Prices {
		out = append(out, fmt.Sprintf("%d=%s", p.Fee, p.Price.String()))
	}
	return out
}
