// Package storage persists the ledger in SQLite.
//
// A transaction, its asset and the asset's depreciation schedule are always
// written in one database transaction, so a capital spend is never visible
// without its asset.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"truecost/internal/core"

	_ "modernc.org/sqlite"
)

type SQLiteRepository struct {
	db *sql.DB
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dsn(dbPath))
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database is reachable.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// withTx runs fn in a database transaction, rolling back on error.
func (r *SQLiteRepository) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) Insert(ctx context.Context, e core.Entry) (core.Entry, error) {
	if err := e.CheckIntegrity(); err != nil {
		return core.Entry{}, err
	}
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), 0) + 1 FROM transactions`).Scan(&e.Transaction.Seq); err != nil {
			return fmt.Errorf("next sequence: %w", err)
		}
		if err := insertTransaction(ctx, tx, e.Transaction); err != nil {
			return err
		}
		if e.Asset != nil {
			return insertAsset(ctx, tx, *e.Asset)
		}
		return nil
	})
	if err != nil {
		return core.Entry{}, err
	}

	slog.InfoContext(ctx, "Transaction saved to SQLite",
		"id", e.Transaction.ID,
		"kind", e.Transaction.Kind,
		"amount_cents", e.Transaction.Amount.Cents,
		"date", e.Transaction.Date.String(),
		"has_asset", e.Asset != nil)
	return e, nil
}

func (r *SQLiteRepository) Replace(ctx context.Context, e core.Entry) (core.Entry, error) {
	if err := e.CheckIntegrity(); err != nil {
		return core.Entry{}, err
	}
	t := e.Transaction
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		if err := tx.QueryRowContext(ctx, `SELECT seq FROM transactions WHERE id = ?`, t.ID).Scan(&e.Transaction.Seq); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return &core.NotFoundError{ID: t.ID}
			}
			return fmt.Errorf("load transaction: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM assets WHERE transaction_id = ?`, t.ID); err != nil {
			return fmt.Errorf("drop previous asset: %w", err)
		}
		_, err := tx.ExecContext(ctx, `
			UPDATE transactions
			SET date = ?, amount_cents = ?, description = ?, category = ?, kind = ?,
			    useful_life_months = ?, updated_at = CURRENT_TIMESTAMP
			WHERE id = ?`,
			t.Date.String(), t.Amount.Cents, t.Description, t.Category, string(t.Kind), t.UsefulLifeMonths, t.ID)
		if err != nil {
			return fmt.Errorf("update transaction: %w", err)
		}
		if e.Asset != nil {
			return insertAsset(ctx, tx, *e.Asset)
		}
		return nil
	})
	if err != nil {
		return core.Entry{}, err
	}

	slog.InfoContext(ctx, "Transaction replaced in SQLite", "id", t.ID, "kind", t.Kind, "has_asset", e.Asset != nil)
	return e, nil
}

// Delete removes the transaction; assets and schedules follow by cascade.
func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM transactions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	if n == 0 {
		return &core.NotFoundError{ID: id}
	}
	slog.InfoContext(ctx, "Transaction deleted from SQLite", "id", id)
	return nil
}

func (r *SQLiteRepository) Get(ctx context.Context, id string) (core.Entry, error) {
	var entry core.Entry
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE id = ?`, id)
		t, err := scanTransaction(row)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return &core.NotFoundError{ID: id}
			}
			return fmt.Errorf("get transaction: %w", err)
		}
		entry.Transaction = t

		assets, err := loadAssets(ctx, tx, `WHERE a.transaction_id = ?`, id)
		if err != nil {
			return err
		}
		if len(assets) > 0 {
			entry.Asset = &assets[0]
		}
		return nil
	})
	return entry, err
}

func (r *SQLiteRepository) GetAsset(ctx context.Context, id string) (core.Asset, error) {
	assets, err := loadAssets(ctx, r.db, `WHERE a.id = ?`, id)
	if err != nil {
		return core.Asset{}, err
	}
	if len(assets) == 0 {
		return core.Asset{}, &core.NotFoundError{Resource: "asset", ID: id}
	}
	return assets[0], nil
}

func (r *SQLiteRepository) ListTransactions(ctx context.Context, from, to core.Date) ([]core.Transaction, error) {
	var (
		where []string
		args  []any
	)
	if !from.IsZero() {
		where = append(where, "date >= ?")
		args = append(args, from.String())
	}
	if !to.IsZero() {
		where = append(where, "date <= ?")
		args = append(args, to.String())
	}
	query := `SELECT ` + transactionColumns + ` FROM transactions`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY date, seq`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var out []core.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return out, nil
}

func (r *SQLiteRepository) ListAssets(ctx context.Context) ([]core.Asset, error) {
	return loadAssets(ctx, r.db, "")
}

// AssetsCovering relies on the schedule holding exactly one row per covered month.
func (r *SQLiteRepository) AssetsCovering(ctx context.Context, m core.Month) ([]core.Asset, error) {
	return loadAssets(ctx, r.db,
		`WHERE a.id IN (SELECT asset_id FROM depreciation_schedule WHERE month = ?)`, m.String())
}

const transactionColumns = `id, seq, date, amount_cents, description, category, kind, useful_life_months`

type scanner interface {
	Scan(dest ...any) error
}

func scanTransaction(s scanner) (core.Transaction, error) {
	var (
		t    core.Transaction
		date string
		kind string
	)
	if err := s.Scan(&t.ID, &t.Seq, &date, &t.Amount.Cents, &t.Description, &t.Category, &kind, &t.UsefulLifeMonths); err != nil {
		return core.Transaction{}, err
	}
	d, err := core.ParseDate(date)
	if err != nil {
		return core.Transaction{}, err
	}
	t.Date = d
	t.Kind = core.Kind(kind)
	return t, nil
}

func insertTransaction(ctx context.Context, q querier, t core.Transaction) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO transactions (id, seq, date, amount_cents, description, category, kind, useful_life_months)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.Seq, t.Date.String(), t.Amount.Cents, t.Description, t.Category, string(t.Kind), t.UsefulLifeMonths)
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

func insertAsset(ctx context.Context, q querier, a core.Asset) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO assets (id, transaction_id, name, category, original_cost_cents,
		                    useful_life_months, acquisition_month, monthly_depreciation_cents)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.SourceTransactionID, a.Name, a.Category, a.OriginalCost.Cents,
		a.UsefulLifeMonths, a.AcquisitionMonth.String(), a.MonthlyDepreciation.Cents)
	if err != nil {
		return fmt.Errorf("insert asset: %w", err)
	}
	for _, s := range a.Schedule {
		if _, err := q.ExecContext(ctx,
			`INSERT INTO depreciation_schedule (asset_id, month, amount_cents) VALUES (?, ?, ?)`,
			a.ID, s.Month.String(), s.Amount.Cents); err != nil {
			return fmt.Errorf("insert schedule entry %s: %w", s.Month, err)
		}
	}
	return nil
}

// loadAssets reads assets matching where, each with its full schedule,
// ordered by the insertion sequence of the source transaction.
func loadAssets(ctx context.Context, q querier, where string, args ...any) ([]core.Asset, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT a.id, a.transaction_id, a.name, a.category, a.original_cost_cents,
		       a.useful_life_months, a.acquisition_month, a.monthly_depreciation_cents,
		       s.month, s.amount_cents
		FROM assets a
		JOIN transactions t ON t.id = a.transaction_id
		JOIN depreciation_schedule s ON s.asset_id = a.id
		`+where+`
		ORDER BY t.seq, s.month`, args...)
	if err != nil {
		return nil, fmt.Errorf("load assets: %w", err)
	}
	defer rows.Close()

	var out []core.Asset
	for rows.Next() {
		var (
			a                  core.Asset
			acquisition, month string
			amount             int64
		)
		if err := rows.Scan(&a.ID, &a.SourceTransactionID, &a.Name, &a.Category, &a.OriginalCost.Cents,
			&a.UsefulLifeMonths, &acquisition, &a.MonthlyDepreciation.Cents, &month, &amount); err != nil {
			return nil, fmt.Errorf("scan asset: %w", err)
		}
		sm, err := core.ParseMonth(month)
		if err != nil {
			return nil, err
		}
		if n := len(out); n == 0 || out[n-1].ID != a.ID {
			if a.AcquisitionMonth, err = core.ParseMonth(acquisition); err != nil {
				return nil, err
			}
			a.Schedule = make([]core.ScheduleEntry, 0, a.UsefulLifeMonths)
			out = append(out, a)
		}
		last := &out[len(out)-1]
		last.Schedule = append(last.Schedule, core.ScheduleEntry{Month: sm, Amount: core.Cents(amount)})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load assets: %w", err)
	}
	return out, nil
}
