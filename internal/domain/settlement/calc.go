// Package settlement reconciles pending and arrived sales revenue against the
// recorded cost price of each SKU.
package settlement

import "github.com/shopspring/decimal"

const (
	moneyPlaces = 2
	ratePlaces  = 4
)

// Revenue returns avgPrice × volume
func Revenue(avgPrice decimal.Decimal, volume int64) decimal.Decimal {
	return avgPrice.Mul(decimal.NewFromInt(volume))
}

// Cost returns costPrice × volume
func Cost(costPrice decimal.Decimal, volume int64) decimal.Decimal {
	return costPrice.Mul(decimal.NewFromInt(volume))
}

// GrossProfit returns (avgPrice − costPrice) × volume
func GrossProfit(avgPrice, costPrice decimal.Decimal, volume int64) decimal.Decimal {
	return avgPrice.Sub(costPrice).Mul(decimal.NewFromInt(volume))
}

// ProfitRate returns profit / revenue rounded to four places. A zero revenue
// yields a zero rate.
func ProfitRate(profit, revenue decimal.Decimal) decimal.Decimal {
	if revenue.IsZero() {
		return decimal.Zero
	}
	return profit.DivRound(revenue, ratePlaces)
}
