// Package ledger records spends and keeps capital purchases paired with
// their depreciating assets.
package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"truecost/internal/amortization"
	"truecost/internal/core"
)

var ErrInvalidRange = errors.New("range start is after range end")

type Ledger struct {
	store Store
	newID func() string
}

func New(store Store) *Ledger {
	return &Ledger{store: store, newID: uuid.NewString}
}

// Record validates tx, derives its asset when it is a capital spend and
// stores both as a single entry.
func (l *Ledger) Record(ctx context.Context, tx core.Transaction) (core.Entry, error) {
	tx = tx.Normalize()
	if err := tx.Validate(); err != nil {
		return core.Entry{}, err
	}
	tx.ID = l.newID()
	tx.Seq = 0

	entry, err := l.buildEntry(tx)
	if err != nil {
		return core.Entry{}, err
	}
	stored, err := l.store.Insert(ctx, entry)
	if err != nil {
		return core.Entry{}, fmt.Errorf("record transaction: %w", err)
	}
	return stored, nil
}

// Edit applies patch to the stored transaction and rebuilds its asset from
// scratch. A date change moves the acquisition month with it.
func (l *Ledger) Edit(ctx context.Context, id string, patch core.TransactionPatch) (core.Entry, error) {
	current, err := l.Get(ctx, id)
	if err != nil {
		return core.Entry{}, err
	}
	if patch.IsEmpty() {
		return current, nil
	}

	tx := patch.Apply(current.Transaction).Normalize()
	if err := tx.Validate(); err != nil {
		return core.Entry{}, err
	}
	tx.ID = current.Transaction.ID
	tx.Seq = current.Transaction.Seq

	entry, err := l.buildEntry(tx)
	if err != nil {
		return core.Entry{}, err
	}
	stored, err := l.store.Replace(ctx, entry)
	if err != nil {
		return core.Entry{}, fmt.Errorf("edit transaction %s: %w", id, err)
	}
	return stored, nil
}

// Delete removes the transaction together with its asset.
func (l *Ledger) Delete(ctx context.Context, id string) error {
	if err := l.store.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete transaction %s: %w", id, err)
	}
	return nil
}

func (l *Ledger) Get(ctx context.Context, id string) (core.Entry, error) {
	entry, err := l.store.Get(ctx, id)
	if err != nil {
		return core.Entry{}, fmt.Errorf("get transaction %s: %w", id, err)
	}
	if err := entry.CheckIntegrity(); err != nil {
		return core.Entry{}, err
	}
	return entry, nil
}

func (l *Ledger) GetAsset(ctx context.Context, id string) (core.Asset, error) {
	a, err := l.store.GetAsset(ctx, id)
	if err != nil {
		return core.Asset{}, fmt.Errorf("get asset %s: %w", id, err)
	}
	return a, nil
}

// Query lists transactions dated in [from, to] by date, then insertion order.
// Zero bounds are open.
func (l *Ledger) Query(ctx context.Context, from, to core.Date) ([]core.Transaction, error) {
	if !from.IsZero() && !to.IsZero() && from.After(to.Time) {
		return nil, core.Invalid("date_range", ErrInvalidRange)
	}
	txs, err := l.store.ListTransactions(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	return txs, nil
}

// QueryMonth lists the transactions dated within m.
func (l *Ledger) QueryMonth(ctx context.Context, m core.Month) ([]core.Transaction, error) {
	return l.Query(ctx, m.FirstDay(), m.LastDay())
}

// AssetsCoveringMonth returns the assets whose useful life includes m.
func (l *Ledger) AssetsCoveringMonth(ctx context.Context, m core.Month) ([]core.Asset, error) {
	assets, err := l.store.AssetsCovering(ctx, m)
	if err != nil {
		return nil, fmt.Errorf("assets covering %s: %w", m, err)
	}
	return assets, nil
}

func (l *Ledger) ListAssets(ctx context.Context) ([]core.Asset, error) {
	assets, err := l.store.ListAssets(ctx)
	if err != nil {
		return nil, fmt.Errorf("list assets: %w", err)
	}
	return assets, nil
}

func (l *Ledger) buildEntry(tx core.Transaction) (core.Entry, error) {
	entry := core.Entry{Transaction: tx}
	if tx.Kind != core.Capital {
		return entry, nil
	}
	asset, err := amortization.NewAsset(l.newID(), tx)
	if err != nil {
		return core.Entry{}, err
	}
	entry.Asset = asset
	return entry, nil
}
