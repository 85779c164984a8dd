package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration.
type Config struct {
	// Application
	LogLevel string
	HTTPPort string

	// Ingestion
	FillsDir        string
	WSFeedURL       string
	WSDialTimeout   time.Duration
	WSPongTimeout   time.Duration
	WSPingInterval  time.Duration
	WSReconnectMin  time.Duration
	WSReconnectMax  time.Duration
	WSReconnectMult float64
	WSBufferSize    int

	// Normalizer
	InferDirection       bool
	PassAmbiguousThrough bool

	// Pipeline
	TrackerShards   int
	SignalBucket    time.Duration
	ProfileCacheTTL time.Duration

	// Data quality breaker
	QualityWindowSize     int
	QualityMaxRejectRatio float64
	QualityHysteresis     float64
	QualityMinSample      int

	// Classifier thresholds
	LiquidatorFillPct float64
	HFTMakerPct       float64
	HFTMaxAbsMtmTV    float64
	SmartMinNetPnl    float64
	SmartMinMtmTV     float64
	SmartMinRiskRatio float64

	// Storage
	StorageMode  string // "postgres" or "memory"
	PostgresHost string
	PostgresPort string
	PostgresUser string
	PostgresPass string
	PostgresDB   string
	PostgresSSL  string
}

// LoadFromEnv loads configuration from environment variables with defaults.
func LoadFromEnv() (*Config, error) {
	cfg := &Config{
		// Application defaults
		LogLevel: getEnvOrDefault("LOG_LEVEL", "info"),
		HTTPPort: getEnvOrDefault("HTTP_PORT", "8080"),

		// Ingestion defaults
		FillsDir:        getEnvOrDefault("FILLS_DIR", "./data/fills"),
		WSFeedURL:       getEnvOrDefault("WS_FEED_URL", "wss://api.hyperliquid.xyz/ws"),
		WSDialTimeout:   getDurationOrDefault("WS_DIAL_TIMEOUT", 10*time.Second),
		WSPongTimeout:   getDurationOrDefault("WS_PONG_TIMEOUT", 15*time.Second),
		WSPingInterval:  getDurationOrDefault("WS_PING_INTERVAL", 10*time.Second),
		WSReconnectMin:  getDurationOrDefault("WS_RECONNECT_INITIAL_DELAY", 1*time.Second),
		WSReconnectMax:  getDurationOrDefault("WS_RECONNECT_MAX_DELAY", 30*time.Second),
		WSReconnectMult: getFloat64OrDefault("WS_RECONNECT_BACKOFF_MULTIPLIER", 2.0),
		WSBufferSize:    getIntOrDefault("WS_MESSAGE_BUFFER_SIZE", 1000),

		// Normalizer defaults
		InferDirection:       getBoolOrDefault("INFER_DIRECTION", true),
		PassAmbiguousThrough: getBoolOrDefault("PASS_AMBIGUOUS_THROUGH", false),

		// Pipeline defaults
		TrackerShards:   getIntOrDefault("TRACKER_SHARDS", 8),
		SignalBucket:    getDurationOrDefault("SIGNAL_BUCKET", 1*time.Hour),
		ProfileCacheTTL: getDurationOrDefault("PROFILE_CACHE_TTL", 5*time.Minute),

		// Data quality breaker defaults
		QualityWindowSize:     getIntOrDefault("QUALITY_WINDOW_SIZE", 20),
		QualityMaxRejectRatio: getFloat64OrDefault("QUALITY_MAX_REJECT_RATIO", 0.25),
		QualityHysteresis:     getFloat64OrDefault("QUALITY_HYSTERESIS_RATIO", 2.0),
		QualityMinSample:      getIntOrDefault("QUALITY_MIN_SAMPLE", 100),

		// Classifier defaults (see classify package for rule semantics)
		LiquidatorFillPct: getFloat64OrDefault("CLASSIFY_LIQUIDATOR_FILL_PCT", 0.20),
		HFTMakerPct:       getFloat64OrDefault("CLASSIFY_HFT_MAKER_PCT", 0.70),
		HFTMaxAbsMtmTV:    getFloat64OrDefault("CLASSIFY_HFT_MAX_ABS_MTM_TV", 0.0010),
		SmartMinNetPnl:    getFloat64OrDefault("CLASSIFY_SMART_MIN_NET_PNL", 100000),
		SmartMinMtmTV:     getFloat64OrDefault("CLASSIFY_SMART_MIN_MTM_TV", 0.0010),
		SmartMinRiskRatio: getFloat64OrDefault("CLASSIFY_SMART_MIN_RISK_RATIO", 1.0),

		// Storage defaults
		StorageMode:  getEnvOrDefault("STORAGE_MODE", "memory"),
		PostgresHost: getEnvOrDefault("POSTGRES_HOST", "localhost"),
		PostgresPort: getEnvOrDefault("POSTGRES_PORT", "5432"),
		PostgresUser: getEnvOrDefault("POSTGRES_USER", "vigil"),
		PostgresPass: getEnvOrDefault("POSTGRES_PASSWORD", "vigil123"),
		PostgresDB:   getEnvOrDefault("POSTGRES_DB", "vigil"),
		PostgresSSL:  getEnvOrDefault("POSTGRES_SSLMODE", "disable"),
	}

	err := cfg.Validate()
	if err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// Validate checks that configuration values are valid.
func (c *Config) Validate() error {
	if c.HTTPPort == "" {
		return fmt.Errorf("HTTP_PORT cannot be empty")
	}

	if c.TrackerShards <= 0 {
		return fmt.Errorf("TRACKER_SHARDS must be positive, got %d", c.TrackerShards)
	}

	if c.SignalBucket <= 0 {
		return fmt.Errorf("SIGNAL_BUCKET must be positive, got %s", c.SignalBucket)
	}

	if c.LiquidatorFillPct < 0 || c.LiquidatorFillPct > 1 {
		return fmt.Errorf("CLASSIFY_LIQUIDATOR_FILL_PCT must be in [0, 1], got %f", c.LiquidatorFillPct)
	}

	if c.HFTMakerPct < 0 || c.HFTMakerPct > 1 {
		return fmt.Errorf("CLASSIFY_HFT_MAKER_PCT must be in [0, 1], got %f", c.HFTMakerPct)
	}

	if c.StorageMode != "postgres" && c.StorageMode != "memory" {
		return fmt.Errorf("STORAGE_MODE must be 'postgres' or 'memory', got %q", c.StorageMode)
	}

	return nil
}

func getEnvOrDefault(key string, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	intVal, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}

	return intVal
}

func getFloat64OrDefault(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	floatVal, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return defaultValue
	}

	return floatVal
}

func getBoolOrDefault(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	boolVal, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}

	return boolVal
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	duration, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}

	return duration
}
