package amortization

import (
	"github.com/shopspring/decimal"

	"truecost/internal/core"
)

// Impact estimates what a purchase costs per month, day and year once spread
// over its useful life. Figures are truncated to whole cents and are for
// display only.
type Impact struct {
	Monthly core.Money `json:"monthly"`
	Daily   core.Money `json:"daily"`
	Yearly  core.Money `json:"yearly"`
}

var (
	monthsPerYear = decimal.NewFromInt(12)
	daysPerYear   = decimal.NewFromInt(365)
)

// EstimateImpact spreads cost over lifeMonths. An operating spend (life 0)
// is recognized in full within a single month of 30 days.
func EstimateImpact(cost core.Money, lifeMonths int) Impact {
	amount := decimal.NewFromInt(cost.Cents)
	if lifeMonths < 1 {
		return Impact{
			Monthly: cost,
			Daily:   core.Money{Cents: amount.Div(decimal.NewFromInt(30)).IntPart()},
			Yearly:  core.Money{Cents: cost.Cents * 12},
		}
	}
	months := decimal.NewFromInt(int64(lifeMonths))
	years := months.Div(monthsPerYear)
	return Impact{
		Monthly: core.Money{Cents: amount.Div(months).IntPart()},
		Daily:   core.Money{Cents: amount.Div(years.Mul(daysPerYear)).IntPart()},
		Yearly:  core.Money{Cents: amount.Div(years).IntPart()},
	}
}
