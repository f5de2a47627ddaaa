package arbitrage

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"feeTierScope/internal/model"
)

// divPrecision is the number of fractional digits kept by divisions.
const divPrecision int32 = 36

var (
	one     = decimal.NewFromInt(1)
	hundred = decimal.NewFromInt(100)
)

// PairPolicy selects which two tiers of a snapshot are compared.
type PairPolicy string

const (
	// PolicyFirstTwo compares the first two tiers in snapshot order.
	PolicyFirstTwo PairPolicy = "first-two"
	// PolicyMaxDivergence compares the pair of positive prices with the largest
	// absolute gap.
	PolicyMaxDivergence PairPolicy = "max-divergence"
)

// ParsePairPolicy maps a config value to a policy. Empty selects PolicyFirstTwo.
func ParsePairPolicy(value string) (PairPolicy, error) {
	switch PairPolicy(strings.ToLower(strings.TrimSpace(value))) {
	case "", PolicyFirstTwo:
		return PolicyFirstTwo, nil
	case PolicyMaxDivergence:
		return PolicyMaxDivergence, nil
	default:
		return "", fmt.Errorf("unknown pair policy: %s", value)
	}
}

// Reason explains an evaluation outcome.
type Reason string

const (
	// ReasonInsufficientData means fewer than two tiers were priced.
	ReasonInsufficientData Reason = "insufficient_data"
	// ReasonDegeneratePrice means a compared price was zero or negative.
	ReasonDegeneratePrice Reason = "degenerate_price"
	// ReasonBelowThreshold means the price gap did not exceed the threshold.
	ReasonBelowThreshold Reason = "below_threshold"
	// ReasonUnprofitable means the gap passed but the estimated PnL was not positive.
	ReasonUnprofitable Reason = "unprofitable"
	// ReasonOpportunity means a record was emitted.
	ReasonOpportunity Reason = "opportunity"
)

// Params are the trading assumptions applied to every evaluation.
type Params struct {
	TradeAmount decimal.Decimal
	CombinedFee decimal.Decimal
	MaxSlippage decimal.Decimal
	Threshold   decimal.Decimal
	Policy      PairPolicy
}

// DefaultParams returns the reference USDC/WETH parameters.
func DefaultParams() Params {
	return Params{
		TradeAmount: decimal.NewFromInt(1000),
		CombinedFee: decimal.RequireFromString("0.05"),
		MaxSlippage: decimal.RequireFromString("0.01"),
		Threshold:   decimal.RequireFromString("0.0000005"),
		Policy:      PolicyFirstTwo,
	}
}

func (p Params) validate() error {
	if !p.TradeAmount.IsPositive() {
		return fmt.Errorf("trade amount must be positive")
	}
	if p.CombinedFee.IsNegative() {
		return fmt.Errorf("combined fee must not be negative")
	}
	if p.MaxSlippage.IsNegative() || p.MaxSlippage.GreaterThanOrEqual(one) {
		return fmt.Errorf("max slippage must be in [0, 1)")
	}
	if p.Threshold.IsNegative() {
		return fmt.Errorf("threshold must not be negative")
	}
	if _, err := ParsePairPolicy(string(p.Policy)); err != nil {
		return err
	}
	return nil
}

// Decision is the full outcome of one evaluation. Opportunity is set only
// when Reason is ReasonOpportunity.
type Decision struct {
	Reason           Reason
	Opportunity      *model.ArbitrageOpportunity
	FeeA             model.FeeTier
	FeeB             model.FeeTier
	PriceA           decimal.Decimal
	PriceB           decimal.Decimal
	PriceDifference  decimal.Decimal
	PercentArbitrage decimal.Decimal
	PotentialPnL     decimal.Decimal
}

// Evaluator decides whether a price snapshot contains an opportunity.
type Evaluator struct {
	params Params
	now    func() time.Time
}

// Option configures an Evaluator.
type Option func(*Evaluator)

// WithClock overrides the clock used to stamp opportunities.
func WithClock(now func() time.Time) Option {
	return func(e *Evaluator) {
		if now != nil {
			e.now = now
		}
	}
}

// NewEvaluator validates params and returns an Evaluator. An empty policy
// selects PolicyFirstTwo.
func NewEvaluator(params Params, opts ...Option) (*Evaluator, error) {
	if err := params.validate(); err != nil {
		return nil, err
	}
	policy, _ := ParsePairPolicy(string(params.Policy))
	params.Policy = policy

	e := &Evaluator{params: params, now: time.Now}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Params returns the evaluator's parameters.
func (e *Evaluator) Params() Params {
	return e.params
}

// Evaluate compares two tiers of the snapshot. The snapshot is not modified.
func (e *Evaluator) Evaluate(snapshot model.PriceSnapshot) Decision {
	a, b, ok := e.selectPair(snapshot.Prices)
	if !ok {
		return Decision{Reason: ReasonInsufficientData}
	}

	d := Decision{
		FeeA:   a.Fee,
		FeeB:   b.Fee,
		PriceA: a.Price,
		PriceB: b.Price,
	}
	if !a.Price.IsPositive() || !b.Price.IsPositive() {
		d.Reason = ReasonDegeneratePrice
		return d
	}

	amount := e.params.TradeAmount
	slippage := e.params.MaxSlippage

	d.PriceDifference = a.Price.Sub(b.Price).Abs()
	d.PercentArbitrage = d.PriceDifference.DivRound(decimal.Min(a.Price, b.Price), divPrecision).Mul(hundred)

	if a.Price.LessThan(b.Price) {
		effectiveBuy := amount.DivRound(one.Add(slippage), divPrecision)
		d.PotentialPnL = effectiveBuy.DivRound(a.Price, divPrecision).Mul(b.Price)
	} else {
		effectiveSell := amount.Mul(one.Sub(slippage))
		d.PotentialPnL = effectiveSell.DivRound(b.Price, divPrecision).Mul(a.Price)
	}
	d.PotentialPnL = d.PotentialPnL.Sub(amount).Sub(e.params.CombinedFee)

	switch {
	case !d.PriceDifference.GreaterThan(e.params.Threshold):
		d.Reason = ReasonBelowThreshold
	case !d.PotentialPnL.IsPositive():
		d.Reason = ReasonUnprofitable
	default:
		d.Reason = ReasonOpportunity
		d.Opportunity = &model.ArbitrageOpportunity{
			Timestamp:        e.now().Unix(),
			FeeTierA:         a.Fee,
			FeeTierB:         b.Fee,
			PriceA:           a.Price,
			PriceB:           b.Price,
			PriceDifference:  d.PriceDifference,
			PercentArbitrage: d.PercentArbitrage,
			PotentialPnL:     d.PotentialPnL,
		}
	}
	return d
}

func (e *Evaluator) selectPair(prices []model.TierPrice) (model.TierPrice, model.TierPrice, bool) {
	if len(prices) < 2 {
		return model.TierPrice{}, model.TierPrice{}, false
	}
	if e.params.Policy != PolicyMaxDivergence {
		return prices[0], prices[1], true
	}

	// Non-positive prices carry no information and would always win the gap.
	priced := make([]model.TierPrice, 0, len(prices))
	for _, p := range prices {
		if p.Price.IsPositive() {
			priced = append(priced, p)
		}
	}
	if len(priced) < 2 {
		return prices[0], prices[1], true
	}

	bestI, bestJ := 0, 1
	best := priced[0].Price.Sub(priced[1].Price).Abs()
	for i := 0; i < len(priced); i++ {
		for j := i + 1; j < len(priced); j++ {
			gap := priced[i].Price.Sub(priced[j].Price).Abs()
			if gap.GreaterThan(best) {
				best = gap
				bestI, bestJ = i, j
			}
		}
	}
	return priced[bestI], priced[bestJ], true
}
