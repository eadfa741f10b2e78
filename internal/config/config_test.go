package config

import (
	"flag"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestConfig builds a config with defaults without touching the global
// flagset.
func newTestConfig() *Config {
	return &Config{
		Name:        "universal-data-connector",
		Port:        "8080",
		StorageMode: StorageModeInMemory,
		DataPath:    DefaultDataPath,
		Auth:        AuthConfig{Enabled: true},
		RateLimit: RateLimitConfig{
			Enabled:       true,
			Requests:      100,
			PeriodSeconds: 60,
			IdleWindows:   3,
		},
		Webhooks: WebhookConfig{
			Enabled:        true,
			TimeoutSeconds: 10,
			MaxRetries:     3,
			MaxConcurrent:  50,
			QueueSize:      256,
		},
		Cache:  CacheConfig{TTLSeconds: 3600},
		Export: ExportConfig{Enabled: true, MaxRecords: 10000},
		Voice:  VoiceConfig{Enabled: true, SummaryThreshold: 10, MaxResults: 10},
	}
}

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "connector.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestEnvHelpers(t *testing.T) {
	t.Run("string", func(t *testing.T) {
		t.Setenv("TEST_STR", "value")
		assert.Equal(t, "value", getEnvOrDefault("TEST_STR", "fallback"))
		assert.Equal(t, "fallback", getEnvOrDefault("TEST_STR_ABSENT", "fallback"))
	})

	t.Run("bool", func(t *testing.T) {
		t.Setenv("TEST_BOOL", "true")
		assert.True(t, getEnvBool("TEST_BOOL", false))

		t.Setenv("TEST_BOOL_BAD", "not-a-bool")
		assert.True(t, getEnvBool("TEST_BOOL_BAD", true))

		assert.False(t, getEnvBool("TEST_BOOL_ABSENT", false))
	})

	t.Run("int", func(t *testing.T) {
		t.Setenv("TEST_INT", "42")
		assert.Equal(t, 42, getEnvInt("TEST_INT", 7))

		t.Setenv("TEST_INT_BAD", "forty-two")
		assert.Equal(t, 7, getEnvInt("TEST_INT_BAD", 7))
	})
}

func TestApplyFile(t *testing.T) {
	t.Run("file values override defaults", func(t *testing.T) {
		path := writeConfigFile(t, `
port: "9090"
rate_limit:
  requests: 25
cache:
  enabled: true
  redis_url: redis://localhost:6379/0
`)

		cfg := newTestConfig()
		require.NoError(t, cfg.ApplyFile(path))

		assert.Equal(t, "9090", cfg.Port)
		assert.Equal(t, 25, cfg.RateLimit.Requests)
		assert.Equal(t, 60, cfg.RateLimit.PeriodSeconds, "absent keys keep defaults")
		assert.True(t, cfg.Cache.Enabled)
		assert.Equal(t, "redis://localhost:6379/0", cfg.Cache.RedisURL)
	})

	t.Run("missing file is an error", func(t *testing.T) {
		cfg := newTestConfig()
		assert.Error(t, cfg.ApplyFile("/nonexistent/connector.yaml"))
	})

	t.Run("malformed yaml is an error", func(t *testing.T) {
		path := writeConfigFile(t, "port: [unclosed")
		cfg := newTestConfig()
		assert.Error(t, cfg.ApplyFile(path))
	})
}

func TestFinalize(t *testing.T) {
	t.Run("explicit flags beat the config file", func(t *testing.T) {
		path := writeConfigFile(t, `
port: "9090"
name: from-file
`)

		cfg := newTestConfig()
		cfg.ConfigFile = path

		fs := flag.NewFlagSet("test", flag.ContinueOnError)
		cfg.bindFlags(fs)
		require.NoError(t, fs.Parse([]string{"--port", "7070"}))

		require.NoError(t, cfg.Finalize(fs))

		assert.Equal(t, "7070", cfg.Port, "explicit flag wins")
		assert.Equal(t, "from-file", cfg.Name, "file wins over default")
	})

	t.Run("no config file leaves values untouched", func(t *testing.T) {
		cfg := newTestConfig()

		fs := flag.NewFlagSet("test", flag.ContinueOnError)
		cfg.bindFlags(fs)
		require.NoError(t, fs.Parse(nil))

		require.NoError(t, cfg.Finalize(fs))
		assert.Equal(t, "8080", cfg.Port)
	})

	t.Run("mismatched tls cert pair fails validation", func(t *testing.T) {
		cfg := newTestConfig()
		cfg.TLS.Cert = "/etc/tls/cert.pem"

		fs := flag.NewFlagSet("test", flag.ContinueOnError)
		cfg.bindFlags(fs)
		require.NoError(t, fs.Parse(nil))

		assert.Error(t, cfg.Finalize(fs))
	})
}
