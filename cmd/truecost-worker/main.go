package main

import (
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"truecost/internal/amqp"
	"truecost/internal/backend"
	"truecost/internal/cli"
	"truecost/internal/config"
	"truecost/internal/ledger"
	applog "truecost/internal/log"
	"truecost/internal/services"
	"truecost/internal/sheets"
	gsheet "truecost/internal/sheets/google"
	"truecost/internal/worker"
)

const resyncInterval = time.Hour

func main() {
	cli.LoadEnvFile()
	cfg, logger := cli.LoadAndValidateConfig((*config.Config).ValidateWorker)
	logger = logger.WithComponent(applog.ComponentWorker)
	logger.Info("Starting truecost-worker")

	store, err := backend.NewFactory(logger.Slog()).CreateStore(backend.Config{
		Type:         backend.BackendType(cfg.DataBackend),
		SQLiteDBPath: cfg.SQLiteDBPath,
	})
	if err != nil {
		logger.Error("Failed to open ledger store", applog.FieldError, err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer store.Cleanup()

	// read-only use: no classifier, no publisher
	svc := services.NewExpenseService(nil, ledger.New(store.Store), nil)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, nil)

	sheetsClient, err := gsheet.New(ctx, gsheet.Config{
		SpreadsheetID:   cfg.GoogleSpreadsheetID,
		CredentialsJSON: cfg.GoogleServiceAccountJSON,
		CredentialsFile: cfg.GoogleServiceAccountFile,
	})
	if err != nil {
		logger.Error("Failed to initialize Google Sheets client", applog.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Google Sheets client initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", applog.FieldError, err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	exporter := sheets.NewExporter(svc, sheetsClient, logger.WithComponent(applog.ComponentSheets).Slog())
	syncWorker := worker.NewSyncWorker(exporter, logger.Slog())

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return syncWorker.Run(gctx, amqpClient)
	})
	g.Go(func() error {
		syncWorker.ResyncEvery(gctx, resyncInterval)
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Worker stopped with error", applog.FieldError, err)
		os.Exit(1)
	}
	<-done
	logger.Info("Worker shutdown complete")
}
