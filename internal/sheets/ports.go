// Package sheets exports the ledger to a spreadsheet: every transaction, the
// monthly cash vs accrual series and the current balance sheet, one tab each.
package sheets

import (
	"context"

	"truecost/internal/core"
	"truecost/internal/report"
)

// Tab names in the exported spreadsheet.
const (
	TransactionsTab = "Transactions"
	ReportsTab      = "Reports"
	AssetsTab       = "Assets"
)

// Ports for outbound adapters.
type (
	// TableWriter replaces the whole content of a tab, creating it if needed.
	TableWriter interface {
		ReplaceTab(ctx context.Context, tab string, rows [][]any) error
	}

	// Source is the read side of the ledger the export is built from.
	// *services.ExpenseService satisfies it.
	Source interface {
		ListTransactions(ctx context.Context, from, to core.Date) ([]core.Transaction, error)
		ReportRange(ctx context.Context, from, to core.Month) ([]report.MonthlyReport, error)
		BalanceSheet(ctx context.Context, asOf core.Month) (report.BalanceSheet, error)
	}
)
