package report

import (
	"context"
	"fmt"
	"sort"

	"truecost/internal/core"
)

type (
	CategoryAmount struct {
		Category string     `json:"category"`
		Amount   core.Money `json:"amount"`
	}

	// MonthlyReport puts both bases for one month side by side.
	MonthlyReport struct {
		Month             core.Month       `json:"month"`
		Cash              core.Money       `json:"cash"`
		Accrual           core.Money       `json:"accrual"`
		Operating         core.Money       `json:"operating"`
		CapitalOutlay     core.Money       `json:"capital_outlay"`
		Depreciation      core.Money       `json:"depreciation"`
		DailyTrueCost     core.Money       `json:"daily_true_cost"`
		TransactionCount  int              `json:"transaction_count"`
		ActiveAssets      int              `json:"active_assets"`
		CashByCategory    []CategoryAmount `json:"cash_by_category"`
		AccrualByCategory []CategoryAmount `json:"accrual_by_category"`
	}

	Comparison struct {
		Month       core.Month `json:"month"`
		Cash        core.Money `json:"cash"`
		Accrual     core.Money `json:"accrual"`
		Difference  core.Money `json:"difference"` // cash minus accrual
		Explanation string     `json:"explanation"`
	}
)

// MonthlySummary reports cash and accrual totals for m with per-category
// breakdowns. Depreciation counts toward its asset's category.
func (g *Generator) MonthlySummary(ctx context.Context, m core.Month) (MonthlyReport, error) {
	l, err := g.load(ctx, m)
	if err != nil {
		return MonthlyReport{}, fmt.Errorf("monthly summary %s: %w", m, err)
	}

	cashBy := map[string]core.Money{}
	accrualBy := map[string]core.Money{}
	for _, t := range l.txs {
		cashBy[t.Category] = cashBy[t.Category].Add(t.Amount)
		if t.Kind == core.Operating {
			accrualBy[t.Category] = accrualBy[t.Category].Add(t.Amount)
		}
	}
	for _, a := range l.assets {
		accrualBy[a.Category] = accrualBy[a.Category].Add(a.DepreciationFor(m))
	}

	operating, depreciation := l.operating(), l.depreciation()
	accrual := operating.Add(depreciation)
	return MonthlyReport{
		Month:             m,
		Cash:              operating.Add(l.capital()),
		Accrual:           accrual,
		Operating:         operating,
		CapitalOutlay:     l.capital(),
		Depreciation:      depreciation,
		DailyTrueCost:     perDay(accrual, m),
		TransactionCount:  len(l.txs),
		ActiveAssets:      len(l.assets),
		CashByCategory:    sortedCategories(cashBy),
		AccrualByCategory: sortedCategories(accrualBy),
	}, nil
}

// Compare explains the gap between what was paid and what was consumed in m.
func (g *Generator) Compare(ctx context.Context, m core.Month) (Comparison, error) {
	s, err := g.MonthlySummary(ctx, m)
	if err != nil {
		return Comparison{}, err
	}
	diff := s.Cash.Sub(s.Accrual)
	return Comparison{
		Month:       m,
		Cash:        s.Cash,
		Accrual:     s.Accrual,
		Difference:  diff,
		Explanation: explain(diff),
	}, nil
}

func explain(diff core.Money) string {
	switch {
	case diff.Cents > 0:
		return fmt.Sprintf("Cash spending is %s more than the true cost. Big purchases this month will be spread over the coming months.", diff)
	case diff.Cents < 0:
		return fmt.Sprintf("Cash spending is %s less than the true cost. Earlier purchases are still being consumed this month.", core.Cents(-diff.Cents))
	}
	return "Cash spending matches the true cost: no capital purchases are being spread over this month."
}

// MaxRangeMonths caps the number of months a single Range call covers.
const MaxRangeMonths = 120

// Range returns one summary per month from from to to inclusive.
func (g *Generator) Range(ctx context.Context, from, to core.Month) ([]MonthlyReport, error) {
	if to.Before(from) {
		return nil, core.Invalid("month_range", fmt.Errorf("%s is before %s", to, from))
	}
	if from.MonthsBetween(to) >= MaxRangeMonths {
		return nil, core.Invalid("month_range", fmt.Errorf("range exceeds %d months", MaxRangeMonths))
	}
	out := make([]MonthlyReport, 0, from.MonthsBetween(to)+1)
	for m := from; !m.After(to); m = m.Next() {
		s, err := g.MonthlySummary(ctx, m)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

func sortedCategories(by map[string]core.Money) []CategoryAmount {
	out := make([]CategoryAmount, 0, len(by))
	for c, amt := range by {
		if amt.IsZero() {
			continue
		}
		out = append(out, CategoryAmount{Category: c, Amount: amt})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Amount != out[j].Amount {
			return out[i].Amount.Cents > out[j].Amount.Cents
		}
		return out[i].Category < out[j].Category
	})
	return out
}
