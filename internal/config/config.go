package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Defaults for the poller, uploader, and cache. Exported so tests and the
// CLI help text stay in sync with the real values.
const (
	DefaultAddr          = ":8000"
	DefaultConcurrency   = 4
	DefaultPollInterval  = 2 * time.Second
	DefaultPollMax       = 30 * time.Second
	DefaultPollWait      = 900 * time.Second
	DefaultPollMult      = 1.5
	DefaultPollTransient = 3
	DefaultSearchLimit   = 10
	DefaultCacheSize     = 20
)

// Config holds all configuration values.
type Config struct {
	// Remote knowledge-base service
	KBURL    string
	KBAPIKey string

	// REST layer
	Addr   string
	APIKey string // X-API-Key for POST /search; empty disables auth

	// Local state
	LedgerPath string
	DataDir    string // when set, uploads are confined to this directory

	// Upload and polling
	UploadConcurrency int
	PollInterval      time.Duration
	PollMultiplier    float64
	PollMaxInterval   time.Duration
	PollMaxWait       time.Duration
	PollMaxTransient  int

	// Search
	SearchLimit int
	CacheSize   int

	// Logging
	LogLevel slog.Level
	LogFile  string
}

// Load reads configuration from the environment. When envFile is non-empty
// that dotenv file is loaded first and must exist; otherwise a ./.env file
// is loaded when present. Environment variables always win over defaults;
// unparseable numeric values fall back to their defaults.
func Load(envFile string) (Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return Config{}, fmt.Errorf("loading env file %s: %w", envFile, err)
		}
	} else {
		// Optional; ignore a missing ./.env.
		_ = godotenv.Load()
	}

	return Config{
		KBURL:    getEnv("KBRIDGE_KB_URL", ""),
		KBAPIKey: getEnv("KBRIDGE_KB_API_KEY", ""),

		Addr:   getEnv("KBRIDGE_ADDR", DefaultAddr),
		APIKey: getEnv("KBRIDGE_API_KEY", ""),

		LedgerPath: getEnv("KBRIDGE_LEDGER_PATH", defaultLedgerPath()),
		DataDir:    getEnv("KBRIDGE_DATA_DIR", ""),

		UploadConcurrency: getEnvInt("KBRIDGE_UPLOAD_CONCURRENCY", DefaultConcurrency),
		PollInterval:      getEnvDuration("KBRIDGE_POLL_INTERVAL", DefaultPollInterval),
		PollMultiplier:    getEnvFloat("KBRIDGE_POLL_MULTIPLIER", DefaultPollMult),
		PollMaxInterval:   getEnvDuration("KBRIDGE_POLL_MAX_INTERVAL", DefaultPollMax),
		PollMaxWait:       getEnvDuration("KBRIDGE_POLL_MAX_WAIT", DefaultPollWait),
		PollMaxTransient:  getEnvInt("KBRIDGE_POLL_MAX_TRANSIENT", DefaultPollTransient),

		SearchLimit: getEnvInt("KBRIDGE_SEARCH_LIMIT", DefaultSearchLimit),
		CacheSize:   getEnvInt("KBRIDGE_CACHE_SIZE", DefaultCacheSize),

		LogLevel: parseLogLevel(getEnv("KBRIDGE_LOG_LEVEL", "INFO")),
		LogFile:  getEnv("KBRIDGE_LOG_FILE", ""),
	}, nil
}

// RequireKB reports an error when no remote endpoint is configured. Commands
// that never touch the remote service (status) skip this check.
func (c Config) RequireKB() error {
	if strings.TrimSpace(c.KBURL) == "" {
		return fmt.Errorf("KBRIDGE_KB_URL is not set")
	}
	return nil
}

func defaultLedgerPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "kbridge.db"
	}
	return filepath.Join(home, ".kbridge", "ledger.db")
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(val)
	if err != nil || n <= 0 {
		slog.Warn("ignoring invalid integer in environment", "key", key, "value", val)
		return defaultVal
	}
	return n
}

func getEnvFloat(key string, defaultVal float64) float64 {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	f, err := strconv.ParseFloat(val, 64)
	if err != nil || f < 1.0 {
		slog.Warn("ignoring invalid float in environment", "key", key, "value", val)
		return defaultVal
	}
	return f
}

// getEnvDuration accepts Go duration strings ("45s", "2m") and, for
// compatibility with the older tooling this replaces, bare numbers meaning
// seconds.
func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	if n, err := strconv.ParseFloat(val, 64); err == nil {
		d := time.Duration(n * float64(time.Second))
		if d <= 0 {
			slog.Warn("ignoring invalid duration in environment", "key", key, "value", val)
			return defaultVal
		}
		return d
	}
	d, err := time.ParseDuration(val)
	if err != nil || d <= 0 {
		slog.Warn("ignoring invalid duration in environment", "key", key, "value", val)
		return defaultVal
	}
	return d
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
