// Package report derives cash and accrual views from the ledger.
//
// Every figure is recomputed from the ledger on each call; nothing here is
// stored or memoized.
package report

import (
	"context"
	"fmt"

	"truecost/internal/core"
)

// Basis selects how spending is recognized.
type Basis string

const (
	Cash    Basis = "cash"
	Accrual Basis = "accrual"
	Daily   Basis = "daily"
)

func ParseBasis(s string) (Basis, error) {
	switch b := Basis(s); b {
	case Cash, Accrual, Daily:
		return b, nil
	}
	return "", core.Invalid("basis", fmt.Errorf("unknown report basis %q", s))
}

// Source is the read side of the ledger the generator aggregates over.
type Source interface {
	QueryMonth(ctx context.Context, m core.Month) ([]core.Transaction, error)
	AssetsCoveringMonth(ctx context.Context, m core.Month) ([]core.Asset, error)
	ListAssets(ctx context.Context) ([]core.Asset, error)
}

type Generator struct {
	src Source
}

func NewGenerator(src Source) *Generator {
	return &Generator{src: src}
}

// Total dispatches to the report matching basis.
func (g *Generator) Total(ctx context.Context, m core.Month, basis Basis) (core.Money, error) {
	switch basis {
	case Cash:
		return g.CashReport(ctx, m)
	case Accrual:
		return g.AccrualReport(ctx, m)
	case Daily:
		return g.DailyTrueCost(ctx, m)
	}
	return core.Money{}, core.Invalid("basis", fmt.Errorf("unknown report basis %q", basis))
}

// CashReport sums every transaction dated in m, whatever its kind.
func (g *Generator) CashReport(ctx context.Context, m core.Month) (core.Money, error) {
	txs, err := g.src.QueryMonth(ctx, m)
	if err != nil {
		return core.Money{}, fmt.Errorf("cash report %s: %w", m, err)
	}
	var total core.Money
	for _, t := range txs {
		total = total.Add(t.Amount)
	}
	return total, nil
}

// AccrualReport sums operating spends dated in m plus the depreciation every
// covering asset schedules for m.
func (g *Generator) AccrualReport(ctx context.Context, m core.Month) (core.Money, error) {
	l, err := g.load(ctx, m)
	if err != nil {
		return core.Money{}, fmt.Errorf("accrual report %s: %w", m, err)
	}
	return l.operating().Add(l.depreciation()), nil
}

// DailyTrueCost is the accrual total divided by the days in m, truncated to the cent.
func (g *Generator) DailyTrueCost(ctx context.Context, m core.Month) (core.Money, error) {
	accrual, err := g.AccrualReport(ctx, m)
	if err != nil {
		return core.Money{}, err
	}
	return perDay(accrual, m), nil
}

func perDay(total core.Money, m core.Month) core.Money {
	return core.Cents(total.Cents / int64(m.Days()))
}

// monthLedger is the ledger state relevant to one month.
type monthLedger struct {
	month  core.Month
	txs    []core.Transaction
	assets []core.Asset
}

func (g *Generator) load(ctx context.Context, m core.Month) (monthLedger, error) {
	txs, err := g.src.QueryMonth(ctx, m)
	if err != nil {
		return monthLedger{}, err
	}
	assets, err := g.src.AssetsCoveringMonth(ctx, m)
	if err != nil {
		return monthLedger{}, err
	}
	return monthLedger{month: m, txs: txs, assets: assets}, nil
}

func (l monthLedger) operating() core.Money {
	var total core.Money
	for _, t := range l.txs {
		if t.Kind == core.Operating {
			total = total.Add(t.Amount)
		}
	}
	return total
}

func (l monthLedger) capital() core.Money {
	var total core.Money
	for _, t := range l.txs {
		if t.Kind == core.Capital {
			total = total.Add(t.Amount)
		}
	}
	return total
}

func (l monthLedger) depreciation() core.Money {
	var total core.Money
	for _, a := range l.assets {
		total = total.Add(a.DepreciationFor(l.month))
	}
	return total
}
