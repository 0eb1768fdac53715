package sheets

import (
	"context"
	"errors"
	"testing"
	"time"

	"truecost/internal/core"
	"truecost/internal/ledger"
	"truecost/internal/report"
	"truecost/internal/sheets/memory"
	storemem "truecost/internal/storage/memory"
)

type ledgerSource struct {
	l *ledger.Ledger
	*report.Generator
}

func (s ledgerSource) ListTransactions(ctx context.Context, from, to core.Date) ([]core.Transaction, error) {
	return s.l.Query(ctx, from, to)
}

func (s ledgerSource) ReportRange(ctx context.Context, from, to core.Month) ([]report.MonthlyReport, error) {
	return s.Range(ctx, from, to)
}

type failingWriter struct{}

func (failingWriter) ReplaceTab(context.Context, string, [][]any) error {
	return errors.New("quota exceeded")
}

func newSource(t *testing.T) ledgerSource {
	t.Helper()
	l := ledger.New(storemem.New())
	ctx := context.Background()
	for _, tx := range []core.Transaction{
		{Date: core.NewDate(2025, 1, 10), Amount: core.Cents(120000), Description: "Laptop", Category: "Electronics", Kind: core.Capital, UsefulLifeMonths: 12},
		{Date: core.NewDate(2025, 3, 2), Amount: core.Cents(450), Description: "Coffee", Category: "Food", Kind: core.Operating},
	} {
		if _, err := l.Record(ctx, tx); err != nil {
			t.Fatalf("Record() error = %v", err)
		}
	}
	return ledgerSource{l: l, Generator: report.NewGenerator(l)}
}

func TestExporter_Export(t *testing.T) {
	src := newSource(t)
	w := memory.New()
	e := NewExporter(src, w, nil)
	e.now = func() core.Month { return core.NewMonth(2025, time.April) }

	if err := e.Export(context.Background()); err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	if w.Writes() != 3 {
		t.Errorf("writes = %d, want 3", w.Writes())
	}

	txRows, _ := w.Tab(TransactionsTab)
	if len(txRows) != 3 {
		t.Fatalf("transaction rows = %d, want 3", len(txRows))
	}
	if txRows[1][2] != "Laptop" || txRows[1][3] != "1200.00" || txRows[1][6] != "12" {
		t.Errorf("laptop row = %v", txRows[1])
	}
	if txRows[2][6] != "" {
		t.Errorf("operating row should have no useful life: %v", txRows[2])
	}

	reportRows, _ := w.Tab(ReportsTab)
	// header + Jan..Apr
	if len(reportRows) != 5 {
		t.Fatalf("report rows = %d, want 5", len(reportRows))
	}
	jan := reportRows[1]
	if jan[0] != "2025-01" || jan[1] != "1200.00" || jan[2] != "100.00" || jan[3] != "1100.00" {
		t.Errorf("january row = %v", jan)
	}
	mar := reportRows[3]
	if mar[1] != "4.50" || mar[2] != "104.50" {
		t.Errorf("march row = %v", mar)
	}

	assetRows, _ := w.Tab(AssetsTab)
	if len(assetRows) != 3 {
		t.Fatalf("asset rows = %d, want 3", len(assetRows))
	}
	total := assetRows[2]
	if total[0] != "Total" || total[5] != "800.00" {
		t.Errorf("total row = %v", total)
	}
}

func TestExporter_ClampsReportMonths(t *testing.T) {
	l := ledger.New(storemem.New())
	old := core.Transaction{Date: core.NewDate(1900, 1, 1), Amount: core.Cents(100), Description: "Stamp", Category: "Post", Kind: core.Operating}
	if _, err := l.Record(context.Background(), old); err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	w := memory.New()
	e := NewExporter(ledgerSource{l: l, Generator: report.NewGenerator(l)}, w, nil)
	e.now = func() core.Month { return core.NewMonth(2025, time.April) }

	if err := e.Export(context.Background()); err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	rows, _ := w.Tab(ReportsTab)
	if len(rows) != report.MaxRangeMonths+1 {
		t.Fatalf("report rows = %d, want %d", len(rows), report.MaxRangeMonths+1)
	}
	if rows[1][0] != "2015-05" || rows[len(rows)-1][0] != "2025-04" {
		t.Errorf("months = %v .. %v, want 2015-05 .. 2025-04", rows[1][0], rows[len(rows)-1][0])
	}
	if txRows, _ := w.Tab(TransactionsTab); len(txRows) != 2 {
		t.Errorf("transaction rows = %d, want 2", len(txRows))
	}
}

func TestExporter_EmptyLedger(t *testing.T) {
	l := ledger.New(storemem.New())
	w := memory.New()
	e := NewExporter(ledgerSource{l: l, Generator: report.NewGenerator(l)}, w, nil)

	if err := e.Export(context.Background()); err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	rows, ok := w.Tab(ReportsTab)
	if !ok || len(rows) != 1 {
		t.Errorf("reports tab = %v, want header only", rows)
	}
}

func TestExporter_WriteFailure(t *testing.T) {
	e := NewExporter(newSource(t), failingWriter{}, nil)
	if err := e.Export(context.Background()); err == nil {
		t.Error("Export() should surface writer errors")
	}
}
