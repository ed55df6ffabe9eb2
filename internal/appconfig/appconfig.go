// Package appconfig reads the PIPELESS_* environment variables and
// friends: os.Getenv plus explicit defaulting, no third-party
// config-file loader.
package appconfig

import (
	"os"

	"github.com/pipeless-ai/pipeless/models"
)

// Config is the process-wide set of environment-derived settings.
type Config struct {
	LogLevel       string
	RedisURL       string
	RedisChannel   string
	RoboflowAPIKey string
	StagesDir      string
	KVStoreDir     string
	HTTPAddr       string
}

const (
	defaultStagesDir  = "./stages"
	defaultKVStoreDir = "./pipeless-kvs"
	defaultHTTPAddr   = "127.0.0.1:3030"
)

// FromEnv reads the environment, applying defaults for everything optional.
func FromEnv() Config {
	return Config{
		LogLevel:       getenv("PIPELESS_LOG_LEVEL", "info"),
		RedisURL:       os.Getenv("PIPELESS_REDIS_URL"),
		RedisChannel:   os.Getenv("PIPELESS_REDIS_CHANNEL"),
		RoboflowAPIKey: os.Getenv("PIPELESS_ROBOFLOW_API_KEY"),
		StagesDir:      getenv("PIPELESS_STAGES_DIR", defaultStagesDir),
		KVStoreDir:     getenv("PIPELESS_KVS_DIR", defaultKVStoreDir),
		HTTPAddr:       getenv("PIPELESS_HTTP_ADDR", defaultHTTPAddr),
	}
}

// RedisConfigured reports whether both Redis settings needed to enable the
// Redis event exporter are present.
func (c Config) RedisConfigured() bool {
	return c.RedisURL != "" && c.RedisChannel != ""
}

// ValidateRedis rejects a half-configured Redis exporter: setting only one
// of PIPELESS_REDIS_URL/PIPELESS_REDIS_CHANNEL is a configuration mistake,
// not a request to fall back to the no-op exporter.
func (c Config) ValidateRedis() error {
	if c.RedisURL != "" && c.RedisChannel == "" {
		return models.ErrMissingConfig("PIPELESS_REDIS_CHANNEL")
	}
	if c.RedisChannel != "" && c.RedisURL == "" {
		return models.ErrMissingConfig("PIPELESS_REDIS_URL")
	}
	return nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
