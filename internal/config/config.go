// Package config resolves runtime settings from defaults, an optional config
// file (TRUECOST_CONFIG) and environment variables, in increasing priority.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const configFileEnv = "TRUECOST_CONFIG"

var (
	validBackends  = []string{"memory", "sqlite"}
	validProviders = []string{"gemini", "rules"}
	validLogLevels = []string{"debug", "info", "warn", "error"}
)

type Config struct {
	// HTTP Server
	Port               string
	RateLimitPerMinute int

	// Storage
	DataBackend  string
	SQLiteDBPath string

	// Classifier
	ClassifierProvider  string
	ClassifierAPIKey    string
	ClassifierEndpoint  string
	ClassifierModel     string
	ClassifierTimeout   time.Duration
	ClassifierCacheSize int
	ClassifierCacheTTL  time.Duration

	// AMQP
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Google Sheets export
	GoogleSpreadsheetID      string
	GoogleServiceAccountFile string
	GoogleServiceAccountJSON string

	LogLevel string

	// set when an explicitly requested config file could not be read
	fileErr error
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", "8081")
	v.SetDefault("rate_limit_per_minute", 60)
	v.SetDefault("data_backend", "sqlite")
	v.SetDefault("sqlite_db_path", "./data/truecost.db")
	v.SetDefault("classifier_provider", "gemini")
	v.SetDefault("classifier_api_key", "")
	v.SetDefault("classifier_endpoint", "")
	v.SetDefault("classifier_model", "gemini-2.5-flash")
	v.SetDefault("classifier_timeout", "30s")
	v.SetDefault("classifier_cache_size", 256)
	v.SetDefault("classifier_cache_ttl", "24h")
	v.SetDefault("amqp_url", "")
	v.SetDefault("amqp_exchange", "truecost")
	v.SetDefault("amqp_queue", "ledger_events")
	v.SetDefault("google_spreadsheet_id", "")
	v.SetDefault("google_service_account_file", "")
	v.SetDefault("google_service_account_json", "")
	v.SetDefault("log_level", "info")
}

// Load reads the configuration. It never fails; problems with the config
// file are reported by Validate.
func Load() *Config {
	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	var fileErr error
	if path := os.Getenv(configFileEnv); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			fileErr = fmt.Errorf("read config file %s: %w", path, err)
		}
	}

	return &Config{
		Port:               v.GetString("port"),
		RateLimitPerMinute: v.GetInt("rate_limit_per_minute"),

		DataBackend:  strings.ToLower(v.GetString("data_backend")),
		SQLiteDBPath: v.GetString("sqlite_db_path"),

		ClassifierProvider:  strings.ToLower(v.GetString("classifier_provider")),
		ClassifierAPIKey:    v.GetString("classifier_api_key"),
		ClassifierEndpoint:  v.GetString("classifier_endpoint"),
		ClassifierModel:     v.GetString("classifier_model"),
		ClassifierTimeout:   v.GetDuration("classifier_timeout"),
		ClassifierCacheSize: v.GetInt("classifier_cache_size"),
		ClassifierCacheTTL:  v.GetDuration("classifier_cache_ttl"),

		AMQPURL:      v.GetString("amqp_url"),
		AMQPExchange: v.GetString("amqp_exchange"),
		AMQPQueue:    v.GetString("amqp_queue"),

		GoogleSpreadsheetID:      v.GetString("google_spreadsheet_id"),
		GoogleServiceAccountFile: v.GetString("google_service_account_file"),
		GoogleServiceAccountJSON: v.GetString("google_service_account_json"),

		LogLevel: strings.ToLower(v.GetString("log_level")),

		fileErr: fileErr,
	}
}

// Validate checks the server configuration and returns every problem at once.
func (c *Config) Validate() error {
	errs := c.validateCommon()

	if port, err := strconv.Atoi(c.Port); err != nil {
		errs = append(errs, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errs = append(errs, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if c.RateLimitPerMinute < 1 {
		errs = append(errs, fmt.Sprintf("invalid rate limit %d: must be at least 1 request per minute", c.RateLimitPerMinute))
	}

	errs = append(errs, c.validateClassifier()...)
	return joinErrors(errs)
}

// ValidateWorker checks what the export worker needs. The worker never
// classifies, so classifier settings are ignored, but it must share the
// server's SQLite file.
func (c *Config) ValidateWorker() error {
	errs := c.validateCommon()
	if c.DataBackend != "sqlite" {
		errs = append(errs, "DATA_BACKEND must be sqlite for the export worker")
	}
	if c.AMQPURL == "" {
		errs = append(errs, "AMQP_URL is required for the export worker")
	}
	if c.GoogleSpreadsheetID == "" {
		errs = append(errs, "GOOGLE_SPREADSHEET_ID is required for the export worker")
	}
	return joinErrors(errs)
}

func (c *Config) validateCommon() []string {
	var errs []string
	if c.fileErr != nil {
		errs = append(errs, c.fileErr.Error())
	}

	if !slices.Contains(validBackends, c.DataBackend) {
		errs = append(errs, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}
	if c.DataBackend == "sqlite" {
		if c.SQLiteDBPath == "" {
			errs = append(errs, "SQLite database path cannot be empty when using sqlite backend")
		} else if dir := filepath.Dir(c.SQLiteDBPath); dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				errs = append(errs, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
			}
		}
	}

	errs = append(errs, c.validateAMQP()...)
	errs = append(errs, c.validateSheets()...)

	if !slices.Contains(validLogLevels, c.LogLevel) {
		errs = append(errs, fmt.Sprintf("invalid log level '%s': must be one of %v", c.LogLevel, validLogLevels))
	}
	return errs
}

func (c *Config) validateClassifier() []string {
	var errs []string
	if !slices.Contains(validProviders, c.ClassifierProvider) {
		errs = append(errs, fmt.Sprintf("invalid classifier provider '%s': must be one of %v", c.ClassifierProvider, validProviders))
	}
	if c.ClassifierProvider == "gemini" && c.ClassifierAPIKey == "" {
		errs = append(errs, "CLASSIFIER_API_KEY is required when using the gemini classifier")
	}
	if c.ClassifierEndpoint != "" {
		if u, err := url.Parse(c.ClassifierEndpoint); err != nil || (u.Scheme != "http" && u.Scheme != "https") {
			errs = append(errs, fmt.Sprintf("invalid classifier endpoint '%s': must be an http(s) URL", c.ClassifierEndpoint))
		}
	}
	if c.ClassifierTimeout < time.Second || c.ClassifierTimeout > 5*time.Minute {
		errs = append(errs, fmt.Sprintf("invalid classifier timeout %v: must be between 1s and 5m", c.ClassifierTimeout))
	}
	if c.ClassifierCacheSize < 0 {
		errs = append(errs, fmt.Sprintf("invalid classifier cache size %d: must not be negative", c.ClassifierCacheSize))
	}
	if c.ClassifierCacheSize > 0 && c.ClassifierCacheTTL <= 0 {
		errs = append(errs, fmt.Sprintf("invalid classifier cache ttl %v: must be positive", c.ClassifierCacheTTL))
	}
	return errs
}

func (c *Config) validateAMQP() []string {
	if c.AMQPURL == "" {
		return nil
	}
	var errs []string
	if parsed, err := url.Parse(c.AMQPURL); err != nil {
		errs = append(errs, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
	} else if parsed.Scheme != "amqp" && parsed.Scheme != "amqps" {
		errs = append(errs, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsed.Scheme))
	}
	if c.AMQPExchange == "" {
		errs = append(errs, "AMQP exchange name cannot be empty when AMQP URL is provided")
	}
	if c.AMQPQueue == "" {
		errs = append(errs, "AMQP queue name cannot be empty when AMQP URL is provided")
	}
	return errs
}

func (c *Config) validateSheets() []string {
	if c.GoogleSpreadsheetID == "" {
		return nil
	}
	hasFile := c.GoogleServiceAccountFile != ""
	if !hasFile && c.GoogleServiceAccountJSON == "" {
		return []string{"either GOOGLE_SERVICE_ACCOUNT_FILE or GOOGLE_SERVICE_ACCOUNT_JSON must be provided with GOOGLE_SPREADSHEET_ID"}
	}
	if hasFile {
		if _, err := os.Stat(c.GoogleServiceAccountFile); errors.Is(err, os.ErrNotExist) {
			return []string{fmt.Sprintf("Google service account file does not exist: %s", c.GoogleServiceAccountFile)}
		}
	}
	return nil
}

func joinErrors(errs []string) error {
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errs, "\n- "))
}
