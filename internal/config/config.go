package config

import (
	"log/slog"
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	Host                  string
	Port                  string
	CoinAPIURL            string
	CoinAPIKey            string
	CoinAPIRetryMax       int
	CoinAPIRetryBaseDelay time.Duration
	CacheRefreshInterval  time.Duration
	CacheMaxAssets        int
	DatabaseURL           string
}

// Load reads configuration from environment variables with sensible defaults.
func Load() Config {
	return Config{
		Host:                  envOrDefault("WALLET_HOST", "0.0.0.0"),
		Port:                  envOrDefault("WALLET_PORT", "7777"),
		CoinAPIURL:            envOrDefault("COINAPI_URL", "https://rest.coinapi.io"),
		CoinAPIKey:            envOrDefaultWarn("COINAPI_KEY", ""),
		CoinAPIRetryMax:       envOrDefaultInt("COINAPI_RETRY_MAX", 5),
		CoinAPIRetryBaseDelay: envOrDefaultDuration("COINAPI_RETRY_BASE_DELAY", 2*time.Second),
		CacheRefreshInterval:  envOrDefaultDuration("CACHE_REFRESH_INTERVAL", 30*time.Minute),
		CacheMaxAssets:        envOrDefaultInt("CACHE_MAX_ASSETS", 100),
		DatabaseURL:           envOrDefault("DATABASE_URL", ""),
	}
}

// Addr returns the host:port listen address.
func (c Config) Addr() string {
	return c.Host + ":" + c.Port
}

func envOrDefault(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envOrDefaultWarn(key, defaultVal string) string {
	v := envOrDefault(key, defaultVal)
	if v == "" {
		slog.Warn("required env var not set", "key", key)
	}
	return v
}

func envOrDefaultInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			slog.Warn("invalid integer env var, using default", "key", key, "value", v, "default", defaultVal)
			return defaultVal
		}
		return n
	}
	return defaultVal
}

func envOrDefaultDuration(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			slog.Warn("invalid duration env var, using default", "key", key, "value", v, "default", defaultVal)
			return defaultVal
		}
		return d
	}
	return defaultVal
}
