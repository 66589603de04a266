// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/ManuGH/classcheck/internal/log"
)

// Environment keys.
const (
	EnvListenAddr             = "CLASSCHECK_LISTEN_ADDR"
	EnvMetricsAddr            = "CLASSCHECK_METRICS_ADDR"
	EnvLogLevel               = "CLASSCHECK_LOG_LEVEL"
	EnvLogService             = "CLASSCHECK_LOG_SERVICE"
	EnvRollNo                 = "CLASSCHECK_ROLL_NO"
	EnvAPIBaseURL             = "CLASSCHECK_API_BASE_URL"
	EnvAPITimeout             = "CLASSCHECK_API_TIMEOUT"
	EnvScanParseFailure       = "CLASSCHECK_SCAN_PARSE_FAILURE"
	EnvScanRecognitionTimeout = "CLASSCHECK_SCAN_RECOGNITION_TIMEOUT"
	EnvScanFPS                = "CLASSCHECK_SCAN_FPS"
	EnvSubmissionFailure      = "CLASSCHECK_SUBMISSION_ON_FAILURE"
	EnvRescanDelay            = "CLASSCHECK_SUBMISSION_RESCAN_DELAY"
	EnvBreakerThreshold       = "CLASSCHECK_BREAKER_THRESHOLD"
	EnvBreakerReset           = "CLASSCHECK_BREAKER_RESET_TIMEOUT"
	EnvTelemetryEnabled       = "CLASSCHECK_TELEMETRY_ENABLED"
	EnvTelemetryExporter      = "CLASSCHECK_TELEMETRY_EXPORTER"
	EnvTelemetryEndpoint      = "CLASSCHECK_TELEMETRY_ENDPOINT"
	EnvTelemetrySampling      = "CLASSCHECK_TELEMETRY_SAMPLING_RATE"
	EnvTelemetryEnv           = "CLASSCHECK_TELEMETRY_ENVIRONMENT"
	EnvRateLimitRPM           = "CLASSCHECK_RATE_LIMIT_RPM"
)

// ParseString reads a string from environment variable or returns default value.
// It logs the source (environment or default) for observability.
func ParseString(key, defaultValue string) string {
	return parseStringWithLogger(log.WithComponent("config"), key, defaultValue)
}

func parseStringWithLogger(logger zerolog.Logger, key, defaultValue string) string {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		logDefault(logger, key, ok).Str("default", defaultValue).Msg("using default value")
		return defaultValue
	}
	ev := logger.Debug().Str("key", key).Str("source", "environment")
	if isSensitive(key) {
		ev.Bool("sensitive", true)
	} else {
		ev.Str("value", value)
	}
	ev.Msg("using environment variable")
	return value
}

// ParseInt reads an integer from environment variable or returns default value.
// It falls back to default on parse errors.
func ParseInt(key string, defaultValue int) int {
	return parseTyped(key, defaultValue, strconv.Atoi, "integer")
}

// ParseDuration reads a duration in Go format (e.g. "5s").
func ParseDuration(key string, defaultValue time.Duration) time.Duration {
	return parseTyped(key, defaultValue, time.ParseDuration, "duration")
}

// ParseFloat reads a float64 from environment variable or returns default value.
func ParseFloat(key string, defaultValue float64) float64 {
	return parseTyped(key, defaultValue, func(s string) (float64, error) {
		return strconv.ParseFloat(s, 64)
	}, "float")
}

// ParseBool reads a boolean. It accepts "true", "false", "1", "0", "yes",
// "no" (case-insensitive).
func ParseBool(key string, defaultValue bool) bool {
	return parseTyped(key, defaultValue, parseBool, "boolean")
}

func parseBool(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "true", "1", "yes":
		return true, nil
	case "false", "0", "no":
		return false, nil
	}
	return false, strconv.ErrSyntax
}

func parseTyped[T any](key string, defaultValue T, parse func(string) (T, error), kind string) T {
	logger := log.WithComponent("config")
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		logDefault(logger, key, ok).Interface("default", defaultValue).Msg("using default value")
		return defaultValue
	}
	parsed, err := parse(v)
	if err != nil {
		logger.Warn().
			Str("key", key).
			Str("value", v).
			Interface("default", defaultValue).
			Msgf("invalid %s in environment variable, using default", kind)
		return defaultValue
	}
	logger.Debug().
		Str("key", key).
		Interface("value", parsed).
		Str("source", "environment").
		Msg("using environment variable")
	return parsed
}

func logDefault(logger zerolog.Logger, key string, setEmpty bool) *zerolog.Event {
	ev := logger.Debug().Str("key", key).Str("source", "default")
	if setEmpty {
		ev.Bool("empty", true)
	}
	return ev
}

func isSensitive(key string) bool {
	k := strings.ToLower(key)
	return strings.Contains(k, "token") || strings.Contains(k, "password") || strings.Contains(k, "secret")
}
