// Package pricing converts V3 pool price encodings into comparable decimal prices.
package pricing

import (
	"math/big"

	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"
)

// PricePrecision is the minimum number of significant digits kept when a price
// leaves exact rational arithmetic.
const PricePrecision = 36

// q192 is 2^192, the scale of sqrtPriceX96 squared.
var q192 = new(big.Int).Lsh(big.NewInt(1), 192)

// NormalizeSqrtPriceX96 returns token1 per token0 adjusted for both tokens'
// decimals: (sqrtPriceX96 / 2^96)^2 * 10^(decimals0 - decimals1).
// A nil or zero input yields zero.
func NormalizeSqrtPriceX96(sqrtPriceX96 *uint256.Int, decimals0, decimals1 uint8) decimal.Decimal {
	if sqrtPriceX96 == nil || sqrtPriceX96.IsZero() {
		return decimal.Zero
	}
	price := RawPriceRat(sqrtPriceX96, decimals0, decimals1)
	return decimal.RequireFromString(price.FloatString(fractionDigits(price)))
}

// fractionDigits returns how many fractional digits keep PricePrecision
// significant digits for r. Leading zeros of prices below one are added on top.
func fractionDigits(r *big.Rat) int {
	num := len(new(big.Int).Abs(r.Num()).String())
	den := len(r.Denom().String())
	if leading := den - num; leading > 0 {
		return PricePrecision + leading
	}
	return PricePrecision
}

// RawPriceRat computes the decimal-adjusted price exactly.
func RawPriceRat(sqrtPriceX96 *uint256.Int, decimals0, decimals1 uint8) *big.Rat {
	if sqrtPriceX96 == nil {
		return new(big.Rat)
	}
	sqrt := sqrtPriceX96.ToBig()
	num := new(big.Int).Mul(sqrt, sqrt)
	den := new(big.Int).Set(q192)

	shift := int64(decimals0) - int64(decimals1)
	switch {
	case shift > 0:
		num.Mul(num, pow10(shift))
	case shift < 0:
		den.Mul(den, pow10(-shift))
	}
	return new(big.Rat).SetFrac(num, den)
}

func pow10(exp int64) *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(exp), nil)
}
