package backend

import (
	"fmt"
	"time"

	"truecost/internal/config"
)

// BackendType selects the ledger store.
type BackendType string

const (
	SQLiteBackend BackendType = "sqlite"
	MemoryBackend BackendType = "memory"
)

func (bt BackendType) String() string {
	return string(bt)
}

func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, MemoryBackend:
		return true
	default:
		return false
	}
}

// ProviderType selects the classifier implementation.
type ProviderType string

const (
	GeminiProvider ProviderType = "gemini"
	RulesProvider  ProviderType = "rules"
)

// Config holds what the factory needs to assemble the service.
type Config struct {
	Type         BackendType
	SQLiteDBPath string

	Provider  ProviderType
	APIKey    string
	Endpoint  string
	Model     string
	Timeout   time.Duration
	CacheSize int
	CacheTTL  time.Duration

	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string
}

// FromAppConfig converts the application config to backend config
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}

	cfg := Config{
		Type:         BackendType(appConfig.DataBackend),
		SQLiteDBPath: appConfig.SQLiteDBPath,
		Provider:     ProviderType(appConfig.ClassifierProvider),
		APIKey:       appConfig.ClassifierAPIKey,
		Endpoint:     appConfig.ClassifierEndpoint,
		Model:        appConfig.ClassifierModel,
		Timeout:      appConfig.ClassifierTimeout,
		CacheSize:    appConfig.ClassifierCacheSize,
		CacheTTL:     appConfig.ClassifierCacheTTL,
		AMQPURL:      appConfig.AMQPURL,
		AMQPExchange: appConfig.AMQPExchange,
		AMQPQueue:    appConfig.AMQPQueue,
	}
	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("invalid backend type: %s", c.Type)
	}
	if c.Type == SQLiteBackend && c.SQLiteDBPath == "" {
		return fmt.Errorf("SQLite database path is required for sqlite backend")
	}

	switch c.Provider {
	case GeminiProvider:
		if c.APIKey == "" {
			return fmt.Errorf("classifier API key is required for gemini provider")
		}
	case RulesProvider:
	default:
		return fmt.Errorf("invalid classifier provider: %s", c.Provider)
	}
	return nil
}
