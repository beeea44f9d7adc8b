// Package config loads the connector's runtime configuration from the
// environment, the way xg2g's internal/config/env.go reads typed values
// with logged fallbacks — simplified here since the connector has no
// hot-reload requirement, unlike the teacher's daemon.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/JungesAngebot/platform-connectors/internal/log"
	"github.com/rs/zerolog"
)

// Config holds the variables spec.md §6 names plus the bootstrap settings
// below them (service-account key, work dir, listen address, rate limit,
// telemetry, log level).
type Config struct {
	ConnectorMongoURI string
	AssetMongoURI     string

	ConnectorDB       string
	ConnectorRegistry string
	ConnectorMappings string
	AssetDB           string
	AssetsCollection  string

	TestMode bool

	YouTubeClientID     string
	YouTubeClientSecret string
	YouTubeTokenURI     string

	// YouTubeServiceAccountKeyPath is the sole credential input for the MCN
	// authenticator, per spec.md §6.
	YouTubeServiceAccountKeyPath string

	// WorkDir holds the downloaded media, thumbnail, and captions files for
	// the duration of a run.
	WorkDir string

	// ListenAddr is where the trigger HTTP surface binds.
	ListenAddr string

	// TriggerRateLimitRPM caps requests per minute per (ip, endpoint) on the
	// trigger surface; 0 disables rate limiting.
	TriggerRateLimitRPM int

	// TelemetryEnabled turns on OTLP span export for workflow.Runner.Run and
	// the trigger HTTP surface.
	TelemetryEnabled      bool
	TelemetryExporterType string
	TelemetryEndpoint     string
	TelemetrySamplingRate float64

	LogLevel string
}

// Load reads Config from the environment, applying the defaults the
// teacher's config loader uses for non-secret values and failing fast on
// missing connection strings.
func Load() (Config, error) {
	logger := log.WithComponent("config")

	cfg := Config{
		ConnectorMongoURI:   parseString(logger, "CONNECTOR_MONGO_DB", ""),
		AssetMongoURI:       parseString(logger, "ASSET_MONGO_DB", ""),
		ConnectorDB:         parseString(logger, "CONNECTOR_DB", "connector"),
		ConnectorRegistry:   parseString(logger, "CONNECTOR_REGISTRY", "registry"),
		ConnectorMappings:   parseString(logger, "CONNECTOR_MAPPINGS", "mappings"),
		AssetDB:             parseString(logger, "ASSET_DB", "assets"),
		AssetsCollection:    parseString(logger, "ASSETS", "assets"),
		TestMode:            parseBool(logger, "test_mode", false),
		YouTubeClientID:     parseString(logger, "youtube.client_id", ""),
		YouTubeClientSecret: parseString(logger, "youtube.client_secret", ""),
		YouTubeTokenURI:     parseString(logger, "youtube.token_uri", "https://oauth2.googleapis.com/token"),

		YouTubeServiceAccountKeyPath: parseString(logger, "youtube.service_account_key", ""),
		WorkDir:                      parseString(logger, "CONNECTOR_WORK_DIR", "/tmp/platform-connectors"),
		ListenAddr:                   parseString(logger, "CONNECTOR_LISTEN_ADDR", ":8080"),
		TriggerRateLimitRPM:          parseInt(logger, "CONNECTOR_TRIGGER_RATE_LIMIT_RPM", 600),
		TelemetryEnabled:             parseBool(logger, "CONNECTOR_TELEMETRY_ENABLED", false),
		TelemetryExporterType:        parseString(logger, "CONNECTOR_TELEMETRY_EXPORTER", "http"),
		TelemetryEndpoint:            parseString(logger, "CONNECTOR_TELEMETRY_ENDPOINT", "localhost:4318"),
		TelemetrySamplingRate:        parseFloat(logger, "CONNECTOR_TELEMETRY_SAMPLING_RATE", 1.0),
		LogLevel:                     parseString(logger, "CONNECTOR_LOG_LEVEL", "info"),
	}

	if cfg.ConnectorMongoURI == "" {
		return Config{}, fmt.Errorf("CONNECTOR_MONGO_DB is required")
	}
	if cfg.AssetMongoURI == "" {
		return Config{}, fmt.Errorf("ASSET_MONGO_DB is required")
	}

	return cfg, nil
}

// parseString reads a string from an environment variable or returns the
// default, logging the source for observability the way the teacher's
// config loader does — without echoing the value for token/secret keys.
func parseString(logger zerolog.Logger, key, defaultValue string) string {
	value, exists := os.LookupEnv(key)
	sensitive := strings.Contains(strings.ToLower(key), "token") || strings.Contains(strings.ToLower(key), "secret")

	if !exists || value == "" {
		logger.Debug().Str("key", key).Str("source", "default").Msg("using default value")
		return defaultValue
	}
	ev := logger.Debug().Str("key", key).Str("source", "environment")
	if !sensitive {
		ev = ev.Str("value", value)
	} else {
		ev = ev.Bool("sensitive", true)
	}
	ev.Msg("using environment variable")
	return value
}

func parseInt(logger zerolog.Logger, key string, defaultValue int) int {
	value, exists := os.LookupEnv(key)
	if !exists || value == "" {
		logger.Debug().Str("key", key).Int("default", defaultValue).Msg("using default value")
		return defaultValue
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		logger.Warn().Str("key", key).Str("value", value).Msg("invalid integer, using default")
		return defaultValue
	}
	return n
}

func parseFloat(logger zerolog.Logger, key string, defaultValue float64) float64 {
	value, exists := os.LookupEnv(key)
	if !exists || value == "" {
		logger.Debug().Str("key", key).Float64("default", defaultValue).Msg("using default value")
		return defaultValue
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		logger.Warn().Str("key", key).Str("value", value).Msg("invalid float, using default")
		return defaultValue
	}
	return f
}

func parseBool(logger zerolog.Logger, key string, defaultValue bool) bool {
	value, exists := os.LookupEnv(key)
	if !exists || value == "" {
		logger.Debug().Str("key", key).Bool("default", defaultValue).Msg("using default value")
		return defaultValue
	}
	b, err := strconv.ParseBool(strings.TrimSpace(value))
	if err != nil {
		logger.Warn().Str("key", key).Str("value", value).Msg("invalid boolean, using default")
		return defaultValue
	}
	return b
}
