// Package gold values physical gold holdings against a time-series price feed.
package gold

import "math"

// Valuation is the monetary view of one holding at a known price. Amounts are
// in the smallest currency unit; ProfitLoss may be negative.
type Valuation struct {
	PurchaseValue     int64
	CurrentValue      int64
	ProfitLoss        int64
	ProfitLossPercent float64
}

// Value derives a holding's valuation from its weight, the price paid per gram
// and the current price per gram.
func Value(weightGram float64, purchasePerGram, currentPerGram int64) Valuation {
	v := Valuation{
		PurchaseValue: gramValue(weightGram, purchasePerGram),
		CurrentValue:  gramValue(weightGram, currentPerGram),
	}
	v.ProfitLoss = v.CurrentValue - v.PurchaseValue
	if v.PurchaseValue > 0 {
		v.ProfitLossPercent = float64(v.ProfitLoss) / float64(v.PurchaseValue) * 100
	}
	return v
}

// gramValue rounds half away from zero; weights carry at most a few decimal
// places so the product is well within int64 range.
func gramValue(weightGram float64, perGram int64) int64 {
	return int64(math.Round(weightGram * float64(perGram)))
}
