package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// AppConfig holds all configuration for the application.
type AppConfig struct {
	TelegramToken string
	DatabaseURL   string

	// External points ledger service.
	LedgerBaseURL string
	LedgerAPIKey  string
	LedgerRealmID string
	LedgerTimeout time.Duration

	AdminTelegramID int64

	LogLevel    string
	Environment string
	LogFile     string // optional rotating log file, empty disables file output

	// Distribution engine scan sleep bounds.
	EngineMinSleep time.Duration
	EngineMaxSleep time.Duration

	// Reconciliation job.
	CronSpecReconcile  string
	ExhaustedRetention time.Duration
}

// Load reads configuration from environment variables and .env file (if present).
func Load() (*AppConfig, error) {
	// Attempt to load .env file. Errors are ignored if the file doesn't exist.
	// godotenv.Load will not override existing env variables.
	_ = godotenv.Load()

	cfg := &AppConfig{}
	var err error

	cfg.TelegramToken = os.Getenv("TELEGRAM_TOKEN")
	if cfg.TelegramToken == "" {
		return nil, fmt.Errorf("TELEGRAM_TOKEN is not set")
	}

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is not set")
	}

	cfg.LedgerBaseURL = os.Getenv("LEDGER_BASE_URL")
	if cfg.LedgerBaseURL == "" {
		return nil, fmt.Errorf("LEDGER_BASE_URL is not set")
	}

	cfg.LedgerAPIKey = os.Getenv("LEDGER_API_KEY")
	if cfg.LedgerAPIKey == "" {
		return nil, fmt.Errorf("LEDGER_API_KEY is not set")
	}

	cfg.LedgerRealmID = os.Getenv("LEDGER_REALM_ID")
	if cfg.LedgerRealmID == "" {
		return nil, fmt.Errorf("LEDGER_REALM_ID is not set")
	}

	adminIDStr := os.Getenv("ADMIN_TELEGRAM_ID")
	if adminIDStr == "" {
		return nil, fmt.Errorf("ADMIN_TELEGRAM_ID is not set")
	}
	cfg.AdminTelegramID, err = strconv.ParseInt(adminIDStr, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid ADMIN_TELEGRAM_ID: %w", err)
	}

	cfg.LogLevel = strings.ToLower(os.Getenv("LOG_LEVEL"))
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info" // Default log level
	}

	cfg.Environment = strings.ToLower(os.Getenv("ENVIRONMENT"))
	if cfg.Environment == "" {
		cfg.Environment = "development" // Default environment
	}

	cfg.LogFile = os.Getenv("LOG_FILE")

	cfg.LedgerTimeout, err = durationEnv("LEDGER_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, err
	}

	cfg.EngineMinSleep, err = durationEnv("ENGINE_MIN_SLEEP", 500*time.Millisecond)
	if err != nil {
		return nil, err
	}
	cfg.EngineMaxSleep, err = durationEnv("ENGINE_MAX_SLEEP", 30*time.Second)
	if err != nil {
		return nil, err
	}
	if cfg.EngineMaxSleep < cfg.EngineMinSleep {
		return nil, fmt.Errorf("ENGINE_MAX_SLEEP must not be smaller than ENGINE_MIN_SLEEP")
	}

	cfg.CronSpecReconcile = os.Getenv("CRON_SPEC_RECONCILE")
	if cfg.CronSpecReconcile == "" {
		cfg.CronSpecReconcile = "0 3 * * *" // Default: 03:00 daily
	}

	cfg.ExhaustedRetention, err = durationEnv("EXHAUSTED_RETENTION", 30*24*time.Hour)
	if err != nil {
		return nil, err
	}

	return cfg, nil
}

func durationEnv(name string, fallback time.Duration) (time.Duration, error) {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", name, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s must be positive", name)
	}
	return d, nil
}
