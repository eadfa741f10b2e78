package config

import (
	"flag"
	"os"
	"strconv"
)

// Storage modes for the durable stores (credentials and webhook
// subscriptions).
const (
	StorageModeInMemory = "in-memory"
	StorageModeDisk     = "disk"
	StorageModeExternal = "external"

	DefaultDataPath = "/data/connector.db"
)

// Config holds application configuration.
type Config struct {
	// Name identifies this connector instance in logs and certificates.
	Name string

	// Server configuration
	Port      string
	DebugMode bool
	TLS       TLSConfig

	// Path to an optional YAML config file applied on top of defaults.
	ConfigFile string

	// Storage configuration for credentials and webhook subscriptions.
	StorageMode     string
	DataPath        string
	DBConnectionURL string

	Auth       AuthConfig
	RateLimit  RateLimitConfig
	Webhooks   WebhookConfig
	Cache      CacheConfig
	Export     ExportConfig
	Connectors ConnectorConfig
	Voice      VoiceConfig
}

// AuthConfig controls the API key authentication gate.
type AuthConfig struct {
	Enabled bool
}

// RateLimitConfig controls fixed-window request limiting.
type RateLimitConfig struct {
	Enabled bool
	// Requests allowed per window when a credential carries no override.
	Requests int
	// PeriodSeconds is the window length.
	PeriodSeconds int
	// IdleWindows is the number of idle periods after which a client's
	// window state is swept.
	IdleWindows int
}

// WebhookConfig controls the delivery dispatcher.
type WebhookConfig struct {
	Enabled bool
	// TimeoutSeconds bounds each delivery attempt.
	TimeoutSeconds int
	// MaxRetries is the total number of attempts per delivery.
	MaxRetries int
	// MaxConcurrent caps simultaneous in-flight deliveries.
	MaxConcurrent int
	// QueueSize is the pending delivery buffer; overflow is dropped.
	QueueSize int
}

// CacheConfig controls the response cache.
type CacheConfig struct {
	Enabled    bool
	RedisURL   string
	TTLSeconds int
}

// ExportConfig controls data export.
type ExportConfig struct {
	Enabled    bool
	MaxRecords int
}

// ConnectorConfig toggles individual data sources.
type ConnectorConfig struct {
	CRMEnabled       bool
	SupportEnabled   bool
	AnalyticsEnabled bool
}

// VoiceConfig controls voice-assistant response shaping.
type VoiceConfig struct {
	Enabled bool
	// SummaryThreshold is the result count past which responses are
	// summarized instead of enumerated.
	SummaryThreshold int
	// MaxResults caps results per query.
	MaxResults int
}

// Load loads configuration from environment variables and binds flags on
// the default flagset. flag.Parse must be called by the caller.
func Load() *Config {
	c := &Config{
		Name:      getEnvOrDefault("INSTANCE_NAME", "universal-data-connector"),
		Port:      getEnvOrDefault("PORT", "8080"),
		DebugMode: getEnvBool("DEBUG_MODE", false),
		TLS:       loadTLSConfig(),

		ConfigFile: getEnvOrDefault("CONFIG_FILE", ""),

		StorageMode:     getEnvOrDefault("STORAGE_MODE", StorageModeInMemory),
		DataPath:        getEnvOrDefault("DATA_PATH", DefaultDataPath),
		DBConnectionURL: getEnvOrDefault("DB_CONNECTION_URL", ""),

		Auth: AuthConfig{
			Enabled: getEnvBool("AUTH_ENABLED", true),
		},
		RateLimit: RateLimitConfig{
			Enabled:       getEnvBool("RATE_LIMIT_ENABLED", true),
			Requests:      getEnvInt("RATE_LIMIT_REQUESTS", 100),
			PeriodSeconds: getEnvInt("RATE_LIMIT_PERIOD_SECONDS", 60),
			IdleWindows:   getEnvInt("RATE_LIMIT_IDLE_WINDOWS", 3),
		},
		Webhooks: WebhookConfig{
			Enabled:        getEnvBool("WEBHOOKS_ENABLED", true),
			TimeoutSeconds: getEnvInt("WEBHOOK_TIMEOUT_SECONDS", 10),
			MaxRetries:     getEnvInt("WEBHOOK_MAX_RETRIES", 3),
			MaxConcurrent:  getEnvInt("WEBHOOK_MAX_CONCURRENT", 50),
			QueueSize:      getEnvInt("WEBHOOK_QUEUE_SIZE", 256),
		},
		Cache: CacheConfig{
			Enabled:    getEnvBool("CACHE_ENABLED", false),
			RedisURL:   getEnvOrDefault("REDIS_URL", ""),
			TTLSeconds: getEnvInt("CACHE_TTL_SECONDS", 3600),
		},
		Export: ExportConfig{
			Enabled:    getEnvBool("EXPORT_ENABLED", true),
			MaxRecords: getEnvInt("EXPORT_MAX_RECORDS", 10000),
		},
		Connectors: ConnectorConfig{
			CRMEnabled:       getEnvBool("CRM_CONNECTOR_ENABLED", true),
			SupportEnabled:   getEnvBool("SUPPORT_CONNECTOR_ENABLED", true),
			AnalyticsEnabled: getEnvBool("ANALYTICS_CONNECTOR_ENABLED", true),
		},
		Voice: VoiceConfig{
			Enabled:          getEnvBool("ENABLE_VOICE_OPTIMIZATION", true),
			SummaryThreshold: getEnvInt("VOICE_SUMMARY_THRESHOLD", 10),
			MaxResults:       getEnvInt("MAX_RESULTS", 10),
		},
	}

	c.bindFlags(flag.CommandLine)

	return c
}

// bindFlags binds values to selected config options on the given flagset.
func (c *Config) bindFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.Name, "name", c.Name, "Name of the connector instance")
	fs.StringVar(&c.Port, "port", c.Port, "Port to listen on")
	fs.BoolVar(&c.DebugMode, "debug", c.DebugMode, "Enable debug logging and CORS")
	fs.StringVar(&c.ConfigFile, "config", c.ConfigFile, "Path to YAML config file")
	fs.StringVar(&c.StorageMode, "storage", c.StorageMode,
		"Storage mode: in-memory, disk, or external")
	fs.StringVar(&c.DataPath, "data-path", c.DataPath,
		"SQLite database path for --storage=disk")
	fs.StringVar(&c.DBConnectionURL, "db-connection-url", c.DBConnectionURL,
		"PostgreSQL connection URL for --storage=external")
	c.TLS.bindFlags(fs)
}

// getEnvOrDefault gets environment variable or returns default value.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}
