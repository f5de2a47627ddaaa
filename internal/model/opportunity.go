package model

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// ArbitrageOpportunity is the record emitted when two tiers diverge profitably.
// Values are never modified after the evaluator creates them.
type ArbitrageOpportunity struct {
	Timestamp        int64
	FeeTierA         FeeTier
	FeeTierB         FeeTier
	PriceA           decimal.Decimal
	PriceB           decimal.Decimal
	PriceDifference  decimal.Decimal
	PercentArbitrage decimal.Decimal
	PotentialPnL     decimal.Decimal
}

type opportunityJSON struct {
	Timestamp        int64   `json:"timestamp"`
	FeeTierA         uint32  `json:"fee_tier_a"`
	FeeTierB         uint32  `json:"fee_tier_b"`
	PriceA           float64 `json:"price_a"`
	PriceB           float64 `json:"price_b"`
	PriceDifference  float64 `json:"price_difference"`
	PercentArbitrage float64 `json:"percent_arbitrage"`
	PotentialPnL     float64 `json:"potential_pnl"`
}

// MarshalJSON encodes the record with JSON numbers for every numeric field.
func (o ArbitrageOpportunity) MarshalJSON() ([]byte, error) {
	return json.Marshal(opportunityJSON{
		Timestamp:        o.Timestamp,
		FeeTierA:         uint32(o.FeeTierA),
		FeeTierB:         uint32(o.FeeTierB),
		PriceA:           o.PriceA.InexactFloat64(),
		PriceB:           o.PriceB.InexactFloat64(),
		PriceDifference:  o.PriceDifference.InexactFloat64(),
		PercentArbitrage: o.PercentArbitrage.InexactFloat64(),
		PotentialPnL:     o.PotentialPnL.InexactFloat64(),
	})
}

// UnmarshalJSON decodes a record written by MarshalJSON.
func (o *ArbitrageOpportunity) UnmarshalJSON(data []byte) error {
	var raw opportunityJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*o = ArbitrageOpportunity{
		Timestamp:        raw.Timestamp,
		FeeTierA:         FeeTier(raw.FeeTierA),
		FeeTierB:         FeeTier(raw.FeeTierB),
		PriceA:           decimal.NewFromFloat(raw.PriceA),
		PriceB:           decimal.NewFromFloat(raw.PriceB),
		PriceDifference:  decimal.NewFromFloat(raw.PriceDifference),
		PercentArbitrage: decimal.NewFromFloat(raw.PercentArbitrage),
		PotentialPnL:     decimal.NewFromFloat(raw.PotentialPnL),
	}
	return nil
}
