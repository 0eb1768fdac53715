// Package services wires classification, the ledger and reporting into the
// operations exposed to the presentation layer.
package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"truecost/internal/amortization"
	"truecost/internal/amqp"
	"truecost/internal/core"
	"truecost/internal/ledger"
	"truecost/internal/report"
)

const manualReasoning = "manual classification"

type (
	// Classifier is satisfied by *classifier.Adapter.
	Classifier interface {
		Classify(ctx context.Context, description string, amount core.Money) (core.Classification, error)
	}

	// EventPublisher is satisfied by *amqp.Client.
	EventPublisher interface {
		Publish(ctx context.Context, event *amqp.LedgerEvent) error
	}

	// Override replaces the classifier's judgement with a manual one.
	Override struct {
		Category         string
		Kind             core.Kind
		UsefulLifeMonths int
	}

	ExpenseInput struct {
		Description string
		Amount      core.Money
		Date        core.Date // zero means today
		Override    *Override
	}

	RecordResult struct {
		Entry          core.Entry
		Classification core.Classification
		Impact         amortization.Impact
	}
)

// ExpenseService orchestrates expense operations across the classifier, the
// ledger and the event bus.
type ExpenseService struct {
	classifier Classifier
	ledger     *ledger.Ledger
	reports    *report.Generator
	publisher  EventPublisher
	today      func() core.Date
}

// NewExpenseService builds the service. publisher may be nil, in which case
// no events are emitted.
func NewExpenseService(c Classifier, l *ledger.Ledger, publisher EventPublisher) *ExpenseService {
	return &ExpenseService{
		classifier: c,
		ledger:     l,
		reports:    report.NewGenerator(l),
		publisher:  publisher,
		today:      core.Today,
	}
}

// RecordExpense classifies the spend (unless overridden) and records it.
// When classification fails nothing is written.
func (s *ExpenseService) RecordExpense(ctx context.Context, in ExpenseInput) (RecordResult, error) {
	in.Description = strings.TrimSpace(in.Description)
	if in.Date.IsZero() {
		in.Date = s.today()
	}

	var (
		cls core.Classification
		err error
	)
	if in.Override != nil {
		cls, err = manualClassification(in.Description, in.Amount, *in.Override)
	} else {
		if s.classifier == nil {
			return RecordResult{}, &core.ClassificationUnavailableError{Err: errors.New("no classifier configured")}
		}
		cls, err = s.classifier.Classify(ctx, in.Description, in.Amount)
	}
	if err != nil {
		return RecordResult{}, err
	}

	entry, err := s.ledger.Record(ctx, core.Transaction{
		Date:             in.Date,
		Amount:           in.Amount,
		Description:      in.Description,
		Category:         cls.Category,
		Kind:             cls.Kind,
		UsefulLifeMonths: cls.UsefulLifeMonths,
	})
	if err != nil {
		return RecordResult{}, err
	}

	slog.InfoContext(ctx, "Expense recorded",
		"id", entry.ID(),
		"kind", entry.Transaction.Kind,
		"category", entry.Transaction.Category,
		"amount", entry.Transaction.Amount.String(),
		"useful_life_months", entry.Transaction.UsefulLifeMonths)

	s.publish(ctx, amqp.EventRecorded, entry.Transaction)

	return RecordResult{
		Entry:          entry,
		Classification: cls,
		Impact:         amortization.EstimateImpact(entry.Transaction.Amount, entry.Transaction.UsefulLifeMonths),
	}, nil
}

func manualClassification(description string, amount core.Money, o Override) (core.Classification, error) {
	if description == "" {
		return core.Classification{}, core.Invalid("description", core.ErrEmptyDescription)
	}
	if err := amount.Validate(); err != nil {
		return core.Classification{}, core.Invalid("amount", err)
	}
	kind, err := core.ParseKind(string(o.Kind))
	if err != nil {
		return core.Classification{}, err
	}
	category := strings.TrimSpace(o.Category)
	if category == "" {
		category = "Other"
	}
	cls := core.Classification{
		Category:  category,
		Kind:      kind,
		ItemName:  description,
		Reasoning: manualReasoning,
	}
	if kind == core.Capital {
		cls.UsefulLifeMonths = o.UsefulLifeMonths
	}
	return cls, nil
}

// GetReport returns the total for m on the requested basis.
func (s *ExpenseService) GetReport(ctx context.Context, m core.Month, basis report.Basis) (core.Money, error) {
	return s.reports.Total(ctx, m, basis)
}

func (s *ExpenseService) Summary(ctx context.Context, m core.Month) (report.MonthlyReport, error) {
	return s.reports.MonthlySummary(ctx, m)
}

func (s *ExpenseService) Compare(ctx context.Context, m core.Month) (report.Comparison, error) {
	return s.reports.Compare(ctx, m)
}

func (s *ExpenseService) BalanceSheet(ctx context.Context, asOf core.Month) (report.BalanceSheet, error) {
	return s.reports.BalanceSheet(ctx, asOf)
}

func (s *ExpenseService) ReportRange(ctx context.Context, from, to core.Month) ([]report.MonthlyReport, error) {
	return s.reports.Range(ctx, from, to)
}

func (s *ExpenseService) ListAssets(ctx context.Context) ([]core.Asset, error) {
	return s.ledger.ListAssets(ctx)
}

func (s *ExpenseService) GetAsset(ctx context.Context, id string) (core.Asset, error) {
	return s.ledger.GetAsset(ctx, id)
}

func (s *ExpenseService) GetTransaction(ctx context.Context, id string) (core.Entry, error) {
	return s.ledger.Get(ctx, id)
}

func (s *ExpenseService) ListTransactions(ctx context.Context, from, to core.Date) ([]core.Transaction, error) {
	return s.ledger.Query(ctx, from, to)
}

// EditTransaction applies a user correction and rebuilds any asset.
func (s *ExpenseService) EditTransaction(ctx context.Context, id string, patch core.TransactionPatch) (core.Entry, error) {
	entry, err := s.ledger.Edit(ctx, id, patch)
	if err != nil {
		return core.Entry{}, err
	}
	slog.InfoContext(ctx, "Transaction edited", "id", id, "kind", entry.Transaction.Kind)
	s.publish(ctx, amqp.EventEdited, entry.Transaction)
	return entry, nil
}

func (s *ExpenseService) DeleteTransaction(ctx context.Context, id string) error {
	entry, err := s.ledger.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.ledger.Delete(ctx, id); err != nil {
		return err
	}
	slog.InfoContext(ctx, "Transaction deleted", "id", id)
	s.publish(ctx, amqp.EventDeleted, entry.Transaction)
	return nil
}

// publish is best effort: the write is already committed, so a failure is
// logged and never returned.
func (s *ExpenseService) publish(ctx context.Context, t amqp.EventType, tx core.Transaction) {
	if s.publisher == nil {
		slog.DebugContext(ctx, "No event publisher configured, skipping event", "type", t)
		return
	}
	if err := s.publisher.Publish(ctx, amqp.NewLedgerEvent(t, tx.ID, tx.Date.Month())); err != nil {
		slog.ErrorContext(ctx, "Failed to publish ledger event",
			"type", t, "id", tx.ID, "error", err)
	}
}

// Close releases the publisher when it holds a connection.
func (s *ExpenseService) Close() error {
	if c, ok := s.publisher.(io.Closer); ok {
		if err := c.Close(); err != nil {
			return fmt.Errorf("close publisher: %w", err)
		}
	}
	return nil
}
