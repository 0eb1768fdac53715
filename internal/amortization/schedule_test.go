package amortization

import (
	"errors"
	"testing"
	"time"

	"truecost/internal/core"
)

func TestComputeScheduleReconciles(t *testing.T) {
	start := core.NewMonth(2025, time.January)
	costs := []int64{1, 7, 99, 100, 30000, 900000, 123457, 999999}
	lives := []int{1, 2, 3, 7, 12, 36, 108, 120, 240}
	for _, cost := range costs {
		for _, life := range lives {
			schedule, err := ComputeSchedule(core.Money{Cents: cost}, life, start)
			if err != nil {
				t.Fatalf("cost=%d life=%d: %v", cost, life, err)
			}
			if len(schedule) != life {
				t.Fatalf("cost=%d life=%d: expected %d entries, got %d", cost, life, life, len(schedule))
			}
			if got := Total(schedule); got.Cents != cost {
				t.Fatalf("cost=%d life=%d: schedule sums to %d", cost, life, got.Cents)
			}
			for i, e := range schedule {
				if e.Month != start.AddMonths(i) {
					t.Fatalf("cost=%d life=%d: entry %d has month %v", cost, life, i, e.Month)
				}
			}
		}
	}
}

func TestComputeScheduleSingleMonth(t *testing.T) {
	start := core.NewMonth(2025, time.June)
	schedule, err := ComputeSchedule(core.Money{Cents: 4599}, 1, start)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(schedule) != 1 || schedule[0].Amount.Cents != 4599 || schedule[0].Month != start {
		t.Fatalf("unexpected schedule %+v", schedule)
	}
}

func TestComputeScheduleRoundingGoesToLastMonth(t *testing.T) {
	start := core.NewMonth(2025, time.January)

	// $9,000 over 36 months divides evenly.
	schedule, _ := ComputeSchedule(core.Money{Cents: 900000}, 36, start)
	for i, e := range schedule {
		if e.Amount.Cents != 25000 {
			t.Fatalf("month %d: expected 25000, got %d", i, e.Amount.Cents)
		}
	}

	// A $300 wok over 108 months: 277 cents base, remainder on the last entry.
	schedule, _ = ComputeSchedule(core.Money{Cents: 30000}, 108, start)
	base := int64(30000 / 108)
	for i, e := range schedule[:107] {
		if e.Amount.Cents != base {
			t.Fatalf("month %d: expected base %d, got %d", i, base, e.Amount.Cents)
		}
	}
	if last := schedule[107].Amount.Cents; last != 30000-base*107 {
		t.Fatalf("expected last %d, got %d", 30000-base*107, last)
	}
	if schedule[107].Month != core.NewMonth(2033, time.December) {
		t.Fatalf("unexpected last month %v", schedule[107].Month)
	}
}

func TestComputeScheduleRejectsInvalidInput(t *testing.T) {
	start := core.NewMonth(2025, time.January)
	cases := []struct {
		cost  int64
		life  int
		field string
	}{
		{0, 12, "amount"},
		{-100, 12, "amount"},
		{100, 0, "useful_life_months"},
		{100, -3, "useful_life_months"},
		{100, core.MaxUsefulLifeMonths + 1, "useful_life_months"},
		{100, 1 << 50, "useful_life_months"},
	}
	for _, tc := range cases {
		_, err := ComputeSchedule(core.Money{Cents: tc.cost}, tc.life, start)
		var invalid *core.InvalidInputError
		if !errors.As(err, &invalid) {
			t.Fatalf("cost=%d life=%d: expected InvalidInputError, got %v", tc.cost, tc.life, err)
		}
		if invalid.Field != tc.field {
			t.Errorf("cost=%d life=%d: field = %q, want %q", tc.cost, tc.life, invalid.Field, tc.field)
		}
	}
}

func TestComputeScheduleLongestLife(t *testing.T) {
	schedule, err := ComputeSchedule(core.Cents(120000), core.MaxUsefulLifeMonths, core.NewMonth(2025, time.January))
	if err != nil {
		t.Fatalf("ComputeSchedule() error = %v", err)
	}
	if len(schedule) != core.MaxUsefulLifeMonths || Total(schedule).Cents != 120000 {
		t.Errorf("len = %d, total = %d", len(schedule), Total(schedule).Cents)
	}
}

func TestComputeScheduleDeterministic(t *testing.T) {
	start := core.NewMonth(2025, time.March)
	a, _ := ComputeSchedule(core.Money{Cents: 12345}, 17, start)
	b, _ := ComputeSchedule(core.Money{Cents: 12345}, 17, start)
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("entry %d differs: %+v vs %+v", i, a[i], b[i])
		}
	}
}

func TestNewAsset(t *testing.T) {
	tx := core.Transaction{
		ID:               "tx-1",
		Date:             core.NewDate(2025, 3, 18),
		Amount:           core.Money{Cents: 250000},
		Description:      "washing machine",
		Category:         "Appliances",
		Kind:             core.Capital,
		UsefulLifeMonths: 120,
	}
	asset, err := NewAsset("asset-1", tx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if asset.SourceTransactionID != "tx-1" || asset.AcquisitionMonth != core.NewMonth(2025, time.March) {
		t.Fatalf("unexpected asset %+v", asset)
	}
	if asset.MonthlyDepreciation.Cents != 2083 || len(asset.Schedule) != 120 {
		t.Fatalf("unexpected depreciation %d / %d entries", asset.MonthlyDepreciation.Cents, len(asset.Schedule))
	}
	if Total(asset.Schedule) != asset.OriginalCost {
		t.Fatalf("schedule does not reconcile")
	}
}

func TestEstimateImpact(t *testing.T) {
	// $300 over 9 years.
	got := EstimateImpact(core.Money{Cents: 30000}, 108)
	if got.Monthly.Cents != 277 || got.Yearly.Cents != 3333 || got.Daily.Cents != 9 {
		t.Fatalf("unexpected impact %+v", got)
	}
	op := EstimateImpact(core.Money{Cents: 3000}, 0)
	if op.Monthly.Cents != 3000 || op.Daily.Cents != 100 {
		t.Fatalf("unexpected operating impact %+v", op)
	}
}
