package arbitrage

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"feeTierScope/internal/model"
)

var fixedNow = time.Unix(1700000000, 0)

func dec(t *testing.T, value string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(value)
	require.NoError(t, err)
	return d
}

func snapshotOf(t *testing.T, pairs ...any) model.PriceSnapshot {
	t.Helper()
	var s model.PriceSnapshot
	for i := 0; i+1 < len(pairs); i += 2 {
		s.Add(model.TierPrice{Fee: model.FeeTier(pairs[i].(int)), Price: dec(t, pairs[i+1].(string))})
	}
	return s
}

func newEvaluator(t *testing.T, params Params) *Evaluator {
	t.Helper()
	e, err := NewEvaluator(params, WithClock(func() time.Time { return fixedNow }))
	require.NoError(t, err)
	return e
}

func frictionless() Params {
	p := DefaultParams()
	p.CombinedFee = decimal.Zero
	p.MaxSlippage = decimal.Zero
	return p
}

func TestEvaluateInsufficientData(t *testing.T) {
	e := newEvaluator(t, DefaultParams())

	d := e.Evaluate(model.PriceSnapshot{})
	assert.Equal(t, ReasonInsufficientData, d.Reason)
	assert.Nil(t, d.Opportunity)

	d = e.Evaluate(snapshotOf(t, 500, "2000"))
	assert.Equal(t, ReasonInsufficientData, d.Reason)
	assert.Nil(t, d.Opportunity)
}

func TestEvaluateBelowThreshold(t *testing.T) {
	e := newEvaluator(t, frictionless())

	d := e.Evaluate(snapshotOf(t, 500, "2000", 3000, "2000.0000004"))
	assert.Equal(t, ReasonBelowThreshold, d.Reason)
	assert.Nil(t, d.Opportunity)

	// A difference equal to the threshold is not strictly greater.
	d = e.Evaluate(snapshotOf(t, 500, "2000", 3000, "2000.0000005"))
	assert.Equal(t, ReasonBelowThreshold, d.Reason)
	assert.True(t, d.PriceDifference.Equal(dec(t, "0.0000005")))
}

func TestEvaluateReferenceParamsUnprofitable(t *testing.T) {
	e := newEvaluator(t, DefaultParams())

	d := e.Evaluate(snapshotOf(t, 500, "2000", 3000, "2000.0000015"))
	assert.Equal(t, ReasonUnprofitable, d.Reason)
	assert.Nil(t, d.Opportunity)
	assert.True(t, d.PotentialPnL.IsNegative())

	d = e.Evaluate(snapshotOf(t, 500, "3000", 3000, "3000.002"))
	assert.Equal(t, ReasonUnprofitable, d.Reason)
	assert.InDelta(t, 1000/1.01/3000*3000.002-1000-0.05, d.PotentialPnL.InexactFloat64(), 1e-9)
}

func TestEvaluateOpportunity(t *testing.T) {
	e := newEvaluator(t, frictionless())

	d := e.Evaluate(snapshotOf(t, 500, "3000", 3000, "3000.002"))
	require.Equal(t, ReasonOpportunity, d.Reason)
	require.NotNil(t, d.Opportunity)

	opp := d.Opportunity
	assert.Equal(t, fixedNow.Unix(), opp.Timestamp)
	assert.Equal(t, model.FeeTier(500), opp.FeeTierA)
	assert.Equal(t, model.FeeTier(3000), opp.FeeTierB)
	assert.True(t, opp.PriceA.Equal(dec(t, "3000")))
	assert.True(t, opp.PriceB.Equal(dec(t, "3000.002")))
	assert.True(t, opp.PriceDifference.Equal(dec(t, "0.002")))
	assert.InDelta(t, 0.002/3000*100, opp.PercentArbitrage.InexactFloat64(), 1e-15)
	assert.InDelta(t, 1000.0/3000*3000.002-1000, opp.PotentialPnL.InexactFloat64(), 1e-9)
	assert.True(t, opp.PotentialPnL.IsPositive())
}

func TestEvaluateDirectionality(t *testing.T) {
	params := DefaultParams()
	params.CombinedFee = decimal.Zero
	e := newEvaluator(t, params)

	cheapFirst := e.Evaluate(snapshotOf(t, 500, "100", 3000, "200"))
	require.Equal(t, ReasonOpportunity, cheapFirst.Reason)
	assert.InDelta(t, 1000/1.01*2-1000, cheapFirst.PotentialPnL.InexactFloat64(), 1e-9)

	dearFirst := e.Evaluate(snapshotOf(t, 500, "200", 3000, "100"))
	require.Equal(t, ReasonOpportunity, dearFirst.Reason)
	assert.True(t, dearFirst.PotentialPnL.Equal(dec(t, "980")), dearFirst.PotentialPnL.String())

	assert.True(t, cheapFirst.PercentArbitrage.Equal(hundred))
	assert.True(t, dearFirst.PercentArbitrage.Equal(hundred))
	assert.False(t, cheapFirst.PotentialPnL.Equal(dearFirst.PotentialPnL))
}

func TestEvaluateDegeneratePrice(t *testing.T) {
	e := newEvaluator(t, frictionless())

	d := e.Evaluate(snapshotOf(t, 500, "0", 3000, "2000"))
	assert.Equal(t, ReasonDegeneratePrice, d.Reason)
	assert.Nil(t, d.Opportunity)

	d = e.Evaluate(snapshotOf(t, 500, "2000", 3000, "0"))
	assert.Equal(t, ReasonDegeneratePrice, d.Reason)
}

func TestEvaluateFirstTwoPolicy(t *testing.T) {
	e := newEvaluator(t, frictionless())

	d := e.Evaluate(snapshotOf(t, 500, "2000", 3000, "2000.001", 10000, "2100"))
	assert.Equal(t, model.FeeTier(500), d.FeeA)
	assert.Equal(t, model.FeeTier(3000), d.FeeB)
}

func TestEvaluateMaxDivergencePolicy(t *testing.T) {
	params := frictionless()
	params.Policy = PolicyMaxDivergence
	e := newEvaluator(t, params)

	d := e.Evaluate(snapshotOf(t, 500, "2000.001", 3000, "2000", 10000, "2000.01"))
	require.Equal(t, ReasonOpportunity, d.Reason)
	assert.Equal(t, model.FeeTier(3000), d.Opportunity.FeeTierA)
	assert.Equal(t, model.FeeTier(10000), d.Opportunity.FeeTierB)
	assert.True(t, d.PriceDifference.Equal(dec(t, "0.01")))
}

func TestEvaluateMaxDivergenceTieKeepsEarliest(t *testing.T) {
	params := frictionless()
	params.Policy = PolicyMaxDivergence
	e := newEvaluator(t, params)

	d := e.Evaluate(snapshotOf(t, 100, "10", 500, "11", 3000, "10"))
	assert.Equal(t, model.FeeTier(100), d.FeeA)
	assert.Equal(t, model.FeeTier(500), d.FeeB)
}

func TestEvaluateDoesNotMutateSnapshot(t *testing.T) {
	e := newEvaluator(t, frictionless())
	snapshot := snapshotOf(t, 500, "3000", 3000, "3000.002")
	before := make([]model.TierPrice, len(snapshot.Prices))
	copy(before, snapshot.Prices)

	e.Evaluate(snapshot)
	e.Evaluate(snapshot)

	require.Len(t, snapshot.Prices, 2)
	for i := range before {
		assert.Equal(t, before[i].Fee, snapshot.Prices[i].Fee)
		assert.True(t, before[i].Price.Equal(snapshot.Prices[i].Price))
	}
}

func TestNewEvaluatorValidatesParams(t *testing.T) {
	cases := map[string]func(*Params){
		"zero trade":        func(p *Params) { p.TradeAmount = decimal.Zero },
		"negative fee":      func(p *Params) { p.CombinedFee = decimal.NewFromInt(-1) },
		"slippage of one":   func(p *Params) { p.MaxSlippage = one },
		"negative slippage": func(p *Params) { p.MaxSlippage = decimal.NewFromInt(-1) },
		"negative limit":    func(p *Params) { p.Threshold = decimal.NewFromInt(-1) },
		"bad policy":        func(p *Params) { p.Policy = "cheapest" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			params := DefaultParams()
			mutate(&params)
			_, err := NewEvaluator(params)
			assert.Error(t, err)
		})
	}
}

func TestParsePairPolicy(t *testing.T) {
	policy, err := ParsePairPolicy("")
	require.NoError(t, err)
	assert.Equal(t, PolicyFirstTwo, policy)

	policy, err = ParsePairPolicy(" Max-Divergence ")
	require.NoError(t, err)
	assert.Equal(t, PolicyMaxDivergence, policy)

	_, err = ParsePairPolicy("random")
	assert.Error(t, err)
}

func TestEvaluateMaxDivergenceSkipsZeroPrice(t *testing.T) {
	params := frictionless()
	params.Policy = PolicyMaxDivergence
	e := newEvaluator(t, params)

	d := e.Evaluate(snapshotOf(t, 500, "0", 3000, "3000", 10000, "3000.002"))
	require.Equal(t, ReasonOpportunity, d.Reason)
	assert.Equal(t, model.FeeTier(3000), d.Opportunity.FeeTierA)
	assert.Equal(t, model.FeeTier(10000), d.Opportunity.FeeTierB)
	assert.True(t, d.PriceDifference.Equal(dec(t, "0.002")))
}

func TestEvaluateMaxDivergenceSinglePositivePrice(t *testing.T) {
	params := frictionless()
	params.Policy = PolicyMaxDivergence
	e := newEvaluator(t, params)

	d := e.Evaluate(snapshotOf(t, 500, "0", 3000, "3000", 10000, "0"))
	assert.Equal(t, ReasonDegeneratePrice, d.Reason)
	assert.Nil(t, d.Opportunity)
}
