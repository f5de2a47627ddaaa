package model

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// TierPrice is the normalized price observed for one fee tier.
type TierPrice struct {
	Fee   FeeTier
	Pool  common.Address
	Price decimal.Decimal
}

// PriceSnapshot holds one poll cycle's prices in configured tier order.
// Tiers whose pool does not exist are listed in Missing, never priced at zero.
type PriceSnapshot struct {
	Prices  []TierPrice
	Missing []FeeTier
}

// Len returns the number of priced tiers.
func (s PriceSnapshot) Len() int {
	return len(s.Prices)
}

// Get returns the price recorded for a tier.
func (s PriceSnapshot) Get(fee FeeTier) (decimal.Decimal, bool) {
	for _, p := range s.Prices {
		if p.Fee == fee {
			return p.Price, true
		}
	}
	return decimal.Decimal{}, false
}

// Add appends a tier price. A tier already present is left untouched.
func (s *PriceSnapshot) Add(price TierPrice) bool {
	if _, ok := s.Get(price.Fee); ok {
		return false
	}
	s.Prices = append(s.Prices, price)
	return true
}
