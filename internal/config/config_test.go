package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var allEnvKeys = []string{
	"KBRIDGE_KB_URL", "KBRIDGE_KB_API_KEY", "KBRIDGE_ADDR", "KBRIDGE_API_KEY",
	"KBRIDGE_LEDGER_PATH", "KBRIDGE_DATA_DIR", "KBRIDGE_UPLOAD_CONCURRENCY",
	"KBRIDGE_POLL_INTERVAL", "KBRIDGE_POLL_MULTIPLIER", "KBRIDGE_POLL_MAX_INTERVAL",
	"KBRIDGE_POLL_MAX_WAIT", "KBRIDGE_POLL_MAX_TRANSIENT", "KBRIDGE_SEARCH_LIMIT",
	"KBRIDGE_CACHE_SIZE", "KBRIDGE_LOG_LEVEL", "KBRIDGE_LOG_FILE",
}

// clearEnv blanks every kbridge variable so a developer's shell cannot leak
// into the assertions. t.Setenv restores the originals afterwards.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range allEnvKeys {
		t.Setenv(key, "")
	}
}

// unsetEnv removes a variable entirely, with restoration. Needed for the
// dotenv tests because godotenv never overrides a variable that is present,
// even when it is empty.
func unsetEnv(t *testing.T, keys ...string) {
	t.Helper()
	for _, key := range keys {
		orig, had := os.LookupEnv(key)
		require.NoError(t, os.Unsetenv(key))
		t.Cleanup(func() {
			if had {
				os.Setenv(key, orig)
			}
		})
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "", cfg.KBURL)
	assert.Equal(t, DefaultAddr, cfg.Addr)
	assert.Equal(t, DefaultConcurrency, cfg.UploadConcurrency)
	assert.Equal(t, DefaultPollInterval, cfg.PollInterval)
	assert.Equal(t, DefaultPollMult, cfg.PollMultiplier)
	assert.Equal(t, DefaultPollMax, cfg.PollMaxInterval)
	assert.Equal(t, DefaultPollWait, cfg.PollMaxWait)
	assert.Equal(t, DefaultPollTransient, cfg.PollMaxTransient)
	assert.Equal(t, DefaultSearchLimit, cfg.SearchLimit)
	assert.Equal(t, DefaultCacheSize, cfg.CacheSize)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
	assert.Contains(t, cfg.LedgerPath, "ledger.db")
}

func TestLoadOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("KBRIDGE_KB_URL", "https://kb.example.com")
	t.Setenv("KBRIDGE_KB_API_KEY", "secret")
	t.Setenv("KBRIDGE_ADDR", ":9090")
	t.Setenv("KBRIDGE_UPLOAD_CONCURRENCY", "8")
	t.Setenv("KBRIDGE_POLL_INTERVAL", "5s")
	t.Setenv("KBRIDGE_POLL_MAX_WAIT", "45")
	t.Setenv("KBRIDGE_POLL_MULTIPLIER", "2.0")
	t.Setenv("KBRIDGE_CACHE_SIZE", "5")
	t.Setenv("KBRIDGE_LOG_LEVEL", "debug")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "https://kb.example.com", cfg.KBURL)
	assert.Equal(t, "secret", cfg.KBAPIKey)
	assert.Equal(t, ":9090", cfg.Addr)
	assert.Equal(t, 8, cfg.UploadConcurrency)
	assert.Equal(t, 5*time.Second, cfg.PollInterval)
	assert.Equal(t, 45*time.Second, cfg.PollMaxWait, "bare numbers are seconds")
	assert.Equal(t, 2.0, cfg.PollMultiplier)
	assert.Equal(t, 5, cfg.CacheSize)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
}

func TestLoadInvalidValuesFallBack(t *testing.T) {
	clearEnv(t)
	t.Setenv("KBRIDGE_UPLOAD_CONCURRENCY", "many")
	t.Setenv("KBRIDGE_CACHE_SIZE", "-3")
	t.Setenv("KBRIDGE_POLL_INTERVAL", "soon")
	t.Setenv("KBRIDGE_POLL_MULTIPLIER", "0.5")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, DefaultConcurrency, cfg.UploadConcurrency)
	assert.Equal(t, DefaultCacheSize, cfg.CacheSize)
	assert.Equal(t, DefaultPollInterval, cfg.PollInterval)
	assert.Equal(t, DefaultPollMult, cfg.PollMultiplier, "shrinking multipliers are rejected")
}

func TestLoadEnvFile(t *testing.T) {
	clearEnv(t)
	unsetEnv(t, "KBRIDGE_KB_URL", "KBRIDGE_CACHE_SIZE")

	envFile := filepath.Join(t.TempDir(), "test.env")
	content := "KBRIDGE_KB_URL=https://kb.from-file.example\nKBRIDGE_CACHE_SIZE=7\n"
	require.NoError(t, os.WriteFile(envFile, []byte(content), 0644))

	cfg, err := Load(envFile)
	require.NoError(t, err)

	assert.Equal(t, "https://kb.from-file.example", cfg.KBURL)
	assert.Equal(t, 7, cfg.CacheSize)
}

func TestLoadEnvFileMissing(t *testing.T) {
	clearEnv(t)

	_, err := Load(filepath.Join(t.TempDir(), "nope.env"))
	assert.Error(t, err)
}

func TestRequireKB(t *testing.T) {
	cfg := Config{}
	assert.Error(t, cfg.RequireKB())

	cfg.KBURL = "https://kb.example.com"
	assert.NoError(t, cfg.RequireKB())
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"Warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"loud", slog.LevelInfo},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, parseLogLevel(tt.in), "input %q", tt.in)
	}
}
