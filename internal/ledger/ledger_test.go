package ledger

import (
	"context"
	"errors"
	"testing"

	"truecost/internal/amortization"
	"truecost/internal/core"
	"truecost/internal/storage/memory"
)

func capitalTx(desc string, d core.Date, cents int64, life int) core.Transaction {
	return core.Transaction{
		Date: d, Amount: core.Cents(cents), Description: desc,
		Category: "Household", Kind: core.Capital, UsefulLifeMonths: life,
	}
}

func operatingTx(desc string, d core.Date, cents int64) core.Transaction {
	return core.Transaction{
		Date: d, Amount: core.Cents(cents), Description: desc,
		Category: "Food", Kind: core.Operating,
	}
}

func newLedger() (*Ledger, *memory.Store) {
	store := memory.New()
	return New(store), store
}

func TestRecord_Capital(t *testing.T) {
	l, store := newLedger()
	ctx := context.Background()

	entry, err := l.Record(ctx, capitalTx("sofa", core.NewDate(2025, 2, 14), 900000, 36))
	if err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	if entry.Transaction.ID == "" || entry.Transaction.Seq == 0 {
		t.Errorf("Record() did not assign id/seq: %+v", entry.Transaction)
	}
	if entry.Asset == nil {
		t.Fatal("Record() returned no asset for capital spend")
	}
	a := entry.Asset
	if a.SourceTransactionID != entry.Transaction.ID {
		t.Errorf("asset points at %s, want %s", a.SourceTransactionID, entry.Transaction.ID)
	}
	if a.AcquisitionMonth != core.NewMonth(2025, 2) {
		t.Errorf("acquisition month = %s", a.AcquisitionMonth)
	}
	if len(a.Schedule) != 36 || amortization.Total(a.Schedule) != core.Cents(900000) {
		t.Errorf("schedule len=%d total=%s", len(a.Schedule), amortization.Total(a.Schedule))
	}
	if txs, assets := store.Len(); txs != 1 || assets != 1 {
		t.Errorf("store holds %d transactions, %d assets", txs, assets)
	}
}

func TestRecord_OperatingHasNoAsset(t *testing.T) {
	l, store := newLedger()
	tx := operatingTx("lunch", core.NewDate(2025, 2, 14), 3500)
	tx.UsefulLifeMonths = 24

	entry, err := l.Record(context.Background(), tx)
	if err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	if entry.Asset != nil {
		t.Error("operating spend produced an asset")
	}
	if entry.Transaction.UsefulLifeMonths != 0 {
		t.Errorf("useful life = %d, want it dropped", entry.Transaction.UsefulLifeMonths)
	}
	if _, assets := store.Len(); assets != 0 {
		t.Errorf("store holds %d assets", assets)
	}
}

func TestRecord_InvalidInput(t *testing.T) {
	l, store := newLedger()
	d := core.NewDate(2025, 1, 1)
	tests := []struct {
		name  string
		tx    core.Transaction
		field string
	}{
		{"zero amount", capitalTx("tv", d, 0, 96), "amount"},
		{"negative amount", capitalTx("tv", d, -100, 96), "amount"},
		{"zero life", capitalTx("tv", d, 50000, 0), "useful_life_months"},
		{"negative life", capitalTx("tv", d, 50000, -1), "useful_life_months"},
		{"life beyond cap", capitalTx("tv", d, 50000, core.MaxUsefulLifeMonths+1), "useful_life_months"},
		{"absurd life", capitalTx("tv", d, 50000, 1<<50), "useful_life_months"},
		{"no date", capitalTx("tv", core.Date{}, 50000, 12), "date"},
		{"no category", core.Transaction{Date: d, Amount: core.Cents(10), Description: "x", Kind: core.Operating}, "category"},
		{"bad kind", core.Transaction{Date: d, Amount: core.Cents(10), Description: "x", Category: "y", Kind: "asset"}, "kind"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := l.Record(context.Background(), tt.tx)
			var inv *core.InvalidInputError
			if !errors.As(err, &inv) {
				t.Fatalf("Record() error = %v, want InvalidInputError", err)
			}
			if inv.Field != tt.field {
				t.Errorf("field = %s, want %s", inv.Field, tt.field)
			}
		})
	}
	if txs, _ := store.Len(); txs != 0 {
		t.Errorf("invalid input reached storage: %d transactions", txs)
	}
}

func TestRecordThenDelete_LeavesNothing(t *testing.T) {
	l, store := newLedger()
	ctx := context.Background()

	entry, err := l.Record(ctx, capitalTx("laptop", core.NewDate(2025, 5, 1), 150000, 48))
	if err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	if err := l.Delete(ctx, entry.ID()); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if txs, assets := store.Len(); txs != 0 || assets != 0 {
		t.Errorf("after delete: %d transactions, %d assets", txs, assets)
	}
	assets, _ := l.ListAssets(ctx)
	if len(assets) != 0 {
		t.Errorf("ListAssets() = %d assets", len(assets))
	}
	if err := l.Delete(ctx, entry.ID()); !core.IsNotFound(err) {
		t.Errorf("second Delete() error = %v, want NotFoundError", err)
	}
}

func TestEdit_LifeReplacesSchedule(t *testing.T) {
	l, _ := newLedger()
	ctx := context.Background()
	start := core.NewMonth(2025, 1)

	entry, _ := l.Record(ctx, capitalTx("tv", start.FirstDay(), 120000, 24))
	oldAssetID := entry.Asset.ID

	life := 6
	edited, err := l.Edit(ctx, entry.ID(), core.TransactionPatch{UsefulLifeMonths: &life})
	if err != nil {
		t.Fatalf("Edit() error = %v", err)
	}
	if edited.Transaction.ID != entry.Transaction.ID || edited.Transaction.Seq != entry.Transaction.Seq {
		t.Errorf("edit changed identity: %+v", edited.Transaction)
	}
	if edited.Asset.ID == oldAssetID {
		t.Error("edit kept the previous asset")
	}
	if len(edited.Asset.Schedule) != 6 || edited.Asset.MonthlyDepreciation != core.Cents(20000) {
		t.Errorf("schedule len=%d monthly=%s", len(edited.Asset.Schedule), edited.Asset.MonthlyDepreciation)
	}

	covering, _ := l.AssetsCoveringMonth(ctx, start.AddMonths(10))
	if len(covering) != 0 {
		t.Errorf("month 11 still covered by %d assets", len(covering))
	}
	if _, err := l.GetAsset(ctx, oldAssetID); !core.IsNotFound(err) {
		t.Errorf("old asset lookup error = %v, want NotFoundError", err)
	}
}

func TestEdit_DateMovesAcquisitionMonth(t *testing.T) {
	l, _ := newLedger()
	ctx := context.Background()

	entry, _ := l.Record(ctx, capitalTx("bike", core.NewDate(2025, 1, 10), 36000, 12))
	moved := core.NewDate(2025, 4, 2)
	edited, err := l.Edit(ctx, entry.ID(), core.TransactionPatch{Date: &moved})
	if err != nil {
		t.Fatalf("Edit() error = %v", err)
	}
	if edited.Asset.AcquisitionMonth != core.NewMonth(2025, 4) {
		t.Errorf("acquisition = %s, want 2025-04", edited.Asset.AcquisitionMonth)
	}
	if edited.Asset.Schedule[0].Month != core.NewMonth(2025, 4) {
		t.Errorf("schedule starts %s", edited.Asset.Schedule[0].Month)
	}
	jan, _ := l.AssetsCoveringMonth(ctx, core.NewMonth(2025, 1))
	if len(jan) != 0 {
		t.Error("asset still covers its old acquisition month")
	}
}

func TestEdit_KindSwitch(t *testing.T) {
	l, store := newLedger()
	ctx := context.Background()

	entry, _ := l.Record(ctx, operatingTx("desk", core.NewDate(2025, 3, 3), 40000))

	capital := core.Capital
	life := 120
	edited, err := l.Edit(ctx, entry.ID(), core.TransactionPatch{Kind: &capital, UsefulLifeMonths: &life})
	if err != nil {
		t.Fatalf("Edit() to capital error = %v", err)
	}
	if edited.Asset == nil || edited.Asset.UsefulLifeMonths != 120 {
		t.Fatalf("asset = %+v", edited.Asset)
	}

	operating := core.Operating
	back, err := l.Edit(ctx, entry.ID(), core.TransactionPatch{Kind: &operating})
	if err != nil {
		t.Fatalf("Edit() to operating error = %v", err)
	}
	if back.Asset != nil || back.Transaction.UsefulLifeMonths != 0 {
		t.Errorf("operating entry = %+v", back)
	}
	if _, assets := store.Len(); assets != 0 {
		t.Errorf("store holds %d assets", assets)
	}
}

func TestEdit_Errors(t *testing.T) {
	l, _ := newLedger()
	ctx := context.Background()

	amount := core.Cents(100)
	if _, err := l.Edit(ctx, "missing", core.TransactionPatch{Amount: &amount}); !core.IsNotFound(err) {
		t.Errorf("Edit(missing) error = %v, want NotFoundError", err)
	}

	entry, _ := l.Record(ctx, capitalTx("tv", core.NewDate(2025, 1, 1), 50000, 12))
	zero := 0
	if _, err := l.Edit(ctx, entry.ID(), core.TransactionPatch{UsefulLifeMonths: &zero}); !core.IsInvalidInput(err) {
		t.Errorf("Edit(life=0) error = %v, want InvalidInputError", err)
	}
	got, _ := l.Get(ctx, entry.ID())
	if got.Asset.UsefulLifeMonths != 12 {
		t.Errorf("rejected edit changed stored asset: life=%d", got.Asset.UsefulLifeMonths)
	}
}

func TestQuery(t *testing.T) {
	l, _ := newLedger()
	ctx := context.Background()
	d := core.NewDate(2025, 6, 15)

	first, _ := l.Record(ctx, operatingTx("coffee", d, 400))
	second, _ := l.Record(ctx, operatingTx("bagel", d, 300))
	l.Record(ctx, operatingTx("early", core.NewDate(2025, 6, 1), 100))
	l.Record(ctx, operatingTx("july", core.NewDate(2025, 7, 1), 100))

	got, err := l.QueryMonth(ctx, core.NewMonth(2025, 6))
	if err != nil {
		t.Fatalf("QueryMonth() error = %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("QueryMonth() returned %d transactions", len(got))
	}
	if got[0].Description != "early" || got[1].ID != first.ID() || got[2].ID != second.ID() {
		t.Errorf("order = %s, %s, %s", got[0].Description, got[1].Description, got[2].Description)
	}

	if _, err := l.Query(ctx, core.NewDate(2025, 7, 1), core.NewDate(2025, 6, 1)); !core.IsInvalidInput(err) {
		t.Errorf("reversed range error = %v, want InvalidInputError", err)
	}
}

type brokenStore struct {
	*memory.Store
}

func (b brokenStore) Get(ctx context.Context, id string) (core.Entry, error) {
	e, err := b.Store.Get(ctx, id)
	e.Asset = nil
	return e, err
}

func TestGet_DetectsPartialAggregate(t *testing.T) {
	store := memory.New()
	l := New(brokenStore{store})
	ctx := context.Background()

	entry, err := l.Record(ctx, capitalTx("car", core.NewDate(2025, 1, 1), 2000000, 120))
	if err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	if _, err := l.Get(ctx, entry.ID()); !core.IsConsistency(err) {
		t.Errorf("Get() error = %v, want ConsistencyError", err)
	}
}
