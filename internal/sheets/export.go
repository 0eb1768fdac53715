package sheets

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"truecost/internal/core"
	"truecost/internal/report"
)

var (
	transactionHeader = []any{"ID", "Date", "Description", "Amount", "Category", "Kind", "Useful life (months)"}
	reportHeader      = []any{"Month", "Cash", "Accrual", "Difference", "Operating", "Capital outlay", "Depreciation", "Daily true cost"}
	assetHeader       = []any{"Asset", "Category", "Acquired", "Original cost", "Accumulated depreciation", "Book value", "Remaining months"}
)

// Exporter rewrites the spreadsheet from the ledger. Every run writes the
// full state, so repeating it is harmless.
type Exporter struct {
	source Source
	writer TableWriter
	logger *slog.Logger
	now    func() core.Month
}

func NewExporter(source Source, writer TableWriter, logger *slog.Logger) *Exporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Exporter{source: source, writer: writer, logger: logger, now: core.CurrentMonth}
}

// Export reads the ledger once and writes the three tabs concurrently. The
// Reports tab holds at most report.MaxRangeMonths months, ending at the later
// of the current month and the last transaction.
func (e *Exporter) Export(ctx context.Context) error {
	txs, err := e.source.ListTransactions(ctx, core.Date{}, core.Date{})
	if err != nil {
		return fmt.Errorf("list transactions: %w", err)
	}

	current := e.now()
	var reports []report.MonthlyReport
	if len(txs) > 0 {
		from, to := txs[0].Date.Month(), current
		if last := txs[len(txs)-1].Date.Month(); last.After(to) {
			to = last
		}
		if from.MonthsBetween(to) >= report.MaxRangeMonths {
			from = to.AddMonths(1 - report.MaxRangeMonths)
		}
		reports, err = e.source.ReportRange(ctx, from, to)
		if err != nil {
			return fmt.Errorf("report range: %w", err)
		}
	}

	balance, err := e.source.BalanceSheet(ctx, current)
	if err != nil {
		return fmt.Errorf("balance sheet: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return e.writer.ReplaceTab(gctx, TransactionsTab, TransactionRows(txs))
	})
	g.Go(func() error {
		return e.writer.ReplaceTab(gctx, ReportsTab, ReportRows(reports))
	})
	g.Go(func() error {
		return e.writer.ReplaceTab(gctx, AssetsTab, AssetRows(balance))
	})
	if err := g.Wait(); err != nil {
		return fmt.Errorf("write tabs: %w", err)
	}

	e.logger.InfoContext(ctx, "Ledger exported",
		"transactions", len(txs),
		"months", len(reports),
		"assets", len(balance.Assets))
	return nil
}

// TransactionRows renders transactions under a header row. Amounts are
// written as decimal strings so the sheet parses them with its own locale.
func TransactionRows(txs []core.Transaction) [][]any {
	rows := make([][]any, 0, len(txs)+1)
	rows = append(rows, transactionHeader)
	for _, t := range txs {
		life := ""
		if t.Kind == core.Capital {
			life = fmt.Sprint(t.UsefulLifeMonths)
		}
		rows = append(rows, []any{
			t.ID,
			t.Date.String(),
			t.Description,
			t.Amount.String(),
			t.Category,
			string(t.Kind),
			life,
		})
	}
	return rows
}

func ReportRows(reports []report.MonthlyReport) [][]any {
	rows := make([][]any, 0, len(reports)+1)
	rows = append(rows, reportHeader)
	for _, r := range reports {
		rows = append(rows, []any{
			r.Month.String(),
			r.Cash.String(),
			r.Accrual.String(),
			r.Cash.Sub(r.Accrual).String(),
			r.Operating.String(),
			r.CapitalOutlay.String(),
			r.Depreciation.String(),
			r.DailyTrueCost.String(),
		})
	}
	return rows
}

// AssetRows renders the balance sheet with a trailing total row.
func AssetRows(b report.BalanceSheet) [][]any {
	rows := make([][]any, 0, len(b.Assets)+2)
	rows = append(rows, assetHeader)
	for _, a := range b.Assets {
		rows = append(rows, []any{
			a.Name,
			a.Category,
			a.AcquisitionMonth.String(),
			a.OriginalCost.String(),
			a.AccumulatedDepreciation.String(),
			a.BookValue.String(),
			a.RemainingMonths,
		})
	}
	rows = append(rows, []any{
		"Total", "", b.AsOf.String(),
		b.OriginalCost.String(),
		b.AccumulatedDepreciation.String(),
		b.BookValue.String(),
		"",
	})
	return rows
}
