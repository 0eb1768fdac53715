// Package amortization spreads a capital cost over its useful life.
//
// The base monthly amount is the cost divided by the life in cents, rounded
// down; the final month absorbs the remainder so the schedule always sums to
// the cost exactly.
package amortization

import (
	"truecost/internal/core"
)

// ComputeSchedule returns one entry per month of the useful life, starting
// at start. It fails with an InvalidInputError when cost is not positive or
// lifeMonths is outside [1, core.MaxUsefulLifeMonths].
func ComputeSchedule(cost core.Money, lifeMonths int, start core.Month) ([]core.ScheduleEntry, error) {
	base, err := MonthlyBase(cost, lifeMonths)
	if err != nil {
		return nil, err
	}
	schedule := make([]core.ScheduleEntry, lifeMonths)
	for i := 0; i < lifeMonths-1; i++ {
		schedule[i] = core.ScheduleEntry{Month: start.AddMonths(i), Amount: base}
	}
	last := cost.Cents - base.Cents*int64(lifeMonths-1)
	schedule[lifeMonths-1] = core.ScheduleEntry{
		Month:  start.AddMonths(lifeMonths - 1),
		Amount: core.Money{Cents: last},
	}
	return schedule, nil
}

// MonthlyBase is floor(cost / lifeMonths) in cents.
func MonthlyBase(cost core.Money, lifeMonths int) (core.Money, error) {
	if cost.Cents <= 0 {
		return core.Money{}, core.Invalid("amount", core.ErrInvalidAmount)
	}
	if err := core.ValidateLife(lifeMonths); err != nil {
		return core.Money{}, err
	}
	return core.Money{Cents: cost.Cents / int64(lifeMonths)}, nil
}

// Total sums a schedule.
func Total(schedule []core.ScheduleEntry) core.Money {
	var total core.Money
	for _, e := range schedule {
		total = total.Add(e.Amount)
	}
	return total
}

// NewAsset builds the asset derived from a capital transaction.
func NewAsset(id string, tx core.Transaction) (*core.Asset, error) {
	start := tx.Date.Month()
	schedule, err := ComputeSchedule(tx.Amount, tx.UsefulLifeMonths, start)
	if err != nil {
		return nil, err
	}
	return &core.Asset{
		ID:                  id,
		SourceTransactionID: tx.ID,
		Name:                tx.Description,
		Category:            tx.Category,
		OriginalCost:        tx.Amount,
		UsefulLifeMonths:    tx.UsefulLifeMonths,
		AcquisitionMonth:    start,
		MonthlyDepreciation: schedule[0].Amount,
		Schedule:            schedule,
	}, nil
}
