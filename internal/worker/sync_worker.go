// Package worker keeps the spreadsheet export in step with the ledger by
// reacting to ledger events.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"truecost/internal/amqp"
)

type (
	// Exporter rewrites the whole export. *sheets.Exporter satisfies it.
	Exporter interface {
		Export(ctx context.Context) error
	}

	// Consumer delivers ledger events until ctx ends. *amqp.Client satisfies it.
	Consumer interface {
		Consume(ctx context.Context, handler func(context.Context, *amqp.LedgerEvent) error) error
	}
)

// SyncWorker re-exports the ledger whenever it changes. An event older than
// the start of the last successful export is already reflected and skipped.
type SyncWorker struct {
	exporter   Exporter
	logger     *slog.Logger
	now        func() time.Time
	retryDelay time.Duration

	exportMu sync.Mutex // one export at a time

	mu         sync.Mutex
	lastExport time.Time
}

func NewSyncWorker(exporter Exporter, logger *slog.Logger) *SyncWorker {
	if logger == nil {
		logger = slog.Default()
	}
	return &SyncWorker{exporter: exporter, logger: logger, now: time.Now, retryDelay: 5 * time.Second}
}

// Run performs a startup export, which recovers events missed while the
// worker was down, then consumes until ctx is cancelled. A broken
// subscription is re-established after retryDelay.
func (w *SyncWorker) Run(ctx context.Context, consumer Consumer) error {
	if err := w.ExportNow(ctx); err != nil {
		w.logger.ErrorContext(ctx, "Startup export failed", "error", err)
	}

	for {
		w.logger.InfoContext(ctx, "Sync worker consuming ledger events")
		err := consumer.Consume(ctx, w.HandleEvent)
		if ctx.Err() != nil || err == nil {
			return nil
		}
		w.logger.WarnContext(ctx, "Event consumption interrupted, retrying",
			"error", err,
			"retry_in", w.retryDelay)

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(w.retryDelay):
		}
	}
}

// HandleEvent processes a single ledger event from AMQP. A returned error
// makes the consumer requeue the message.
func (w *SyncWorker) HandleEvent(ctx context.Context, event *amqp.LedgerEvent) error {
	w.mu.Lock()
	last := w.lastExport
	w.mu.Unlock()

	if !last.IsZero() && event.Timestamp.Before(last) {
		w.logger.DebugContext(ctx, "Event already exported",
			"type", event.Type,
			"transaction_id", event.TransactionID)
		return nil
	}

	w.logger.InfoContext(ctx, "Processing ledger event",
		"type", event.Type,
		"transaction_id", event.TransactionID,
		"month", event.Month)
	return w.ExportNow(ctx)
}

// ExportNow runs a full export and records its start time on success.
func (w *SyncWorker) ExportNow(ctx context.Context) error {
	w.exportMu.Lock()
	defer w.exportMu.Unlock()

	started := w.now()
	if err := w.exporter.Export(ctx); err != nil {
		return fmt.Errorf("export ledger: %w", err)
	}

	w.mu.Lock()
	if started.After(w.lastExport) {
		w.lastExport = started
	}
	w.mu.Unlock()
	return nil
}

// ResyncEvery re-exports on a fixed interval until ctx ends, covering events
// lost while the broker was unreachable.
func (w *SyncWorker) ResyncEvery(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := w.ExportNow(ctx); err != nil {
				w.logger.ErrorContext(ctx, "Periodic export failed", "error", err)
			}
		}
	}
}
