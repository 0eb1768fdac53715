// Package backend assembles the ledger store, classifier and event
// publisher selected by configuration into a ready ExpenseService.
package backend

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"truecost/internal/amqp"
	"truecost/internal/cache"
	"truecost/internal/classifier"
	"truecost/internal/ledger"
	"truecost/internal/services"
	"truecost/internal/storage"
	"truecost/internal/storage/memory"
)

const cacheSweepInterval = 10 * time.Minute

type (
	// CleanupFunc releases resources acquired by the factory.
	CleanupFunc func() error

	// Pinger reports whether the store can serve requests.
	Pinger interface {
		Ping(ctx context.Context) error
	}

	// Result bundles everything built from one Config.
	Result struct {
		Service *services.ExpenseService
		Ledger  *ledger.Ledger
		// Ready is nil when the store has no health check.
		Ready   Pinger
		Cleanup CleanupFunc
	}

	// StoreResult is a store together with its cleanup.
	StoreResult struct {
		Store   ledger.Store
		Ready   Pinger
		Cleanup CleanupFunc
	}
)

// Factory creates backends based on configuration.
type Factory struct {
	logger *slog.Logger
}

func NewFactory(logger *slog.Logger) *Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &Factory{logger: logger}
}

// Build wires store, classifier, cache janitor and publisher. The janitor
// stops when ctx is cancelled.
func (f *Factory) Build(ctx context.Context, cfg Config) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	st, err := f.CreateStore(cfg)
	if err != nil {
		return nil, err
	}

	adapter, err := f.CreateClassifier(ctx, cfg)
	if err != nil {
		st.Cleanup()
		return nil, err
	}

	l := ledger.New(st.Store)

	var svc *services.ExpenseService
	if client := f.CreatePublisher(cfg); client != nil {
		svc = services.NewExpenseService(adapter, l, client)
	} else {
		svc = services.NewExpenseService(adapter, l, nil)
	}

	cleanup := func() error {
		svcErr := svc.Close()
		if err := st.Cleanup(); err != nil {
			return err
		}
		return svcErr
	}

	return &Result{Service: svc, Ledger: l, Ready: st.Ready, Cleanup: cleanup}, nil
}

// CreateStore opens the configured ledger store.
func (f *Factory) CreateStore(cfg Config) (*StoreResult, error) {
	switch cfg.Type {
	case SQLiteBackend:
		repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
		}
		f.logger.Info("Initialized SQLite backend", "db_path", cfg.SQLiteDBPath)
		return &StoreResult{Store: repo, Ready: repo, Cleanup: repo.Close}, nil
	case MemoryBackend:
		f.logger.Info("Initialized memory backend")
		return &StoreResult{Store: memory.New(), Cleanup: func() error { return nil }}, nil
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", cfg.Type)
	}
}

// CreateClassifier builds the provider chain. A positive CacheSize wraps the
// provider in an LRU cache swept in the background until ctx ends.
func (f *Factory) CreateClassifier(ctx context.Context, cfg Config) (*classifier.Adapter, error) {
	var provider classifier.Provider
	switch cfg.Provider {
	case GeminiProvider:
		gp, err := classifier.NewGeminiProvider(ctx, classifier.GeminiConfig{
			APIKey:   cfg.APIKey,
			Endpoint: cfg.Endpoint,
			Model:    cfg.Model,
			Timeout:  cfg.Timeout,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize classifier: %w", err)
		}
		provider = gp
	case RulesProvider:
		provider = classifier.NewRulesProvider()
	default:
		return nil, fmt.Errorf("unsupported classifier provider: %s", cfg.Provider)
	}

	if cfg.CacheSize > 0 {
		cached, lru := classifier.NewCachedProvider(provider, cfg.CacheSize, cfg.CacheTTL)
		janitor := cache.NewJanitor(f.logger)
		janitor.Register(lru)
		go janitor.Run(ctx, cacheSweepInterval)
		provider = cached
	}

	f.logger.Info("Initialized classifier",
		"provider", cfg.Provider,
		"model", cfg.Model,
		"cache_size", cfg.CacheSize)
	return classifier.NewAdapter(provider), nil
}

// CreatePublisher connects to the broker when configured. A failed
// connection is logged and the service runs without events.
func (f *Factory) CreatePublisher(cfg Config) *amqp.Client {
	if cfg.AMQPURL == "" {
		return nil
	}
	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		f.logger.Warn("Failed to initialize AMQP client, continuing without sync", "error", err)
		return nil
	}
	f.logger.Info("Initialized AMQP client",
		"exchange", cfg.AMQPExchange,
		"queue", cfg.AMQPQueue)
	return client
}
