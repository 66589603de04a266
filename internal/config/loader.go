// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Loader handles configuration loading with precedence.
type Loader struct {
	configPath      string
	version         string
	ConsumedEnvKeys map[string]struct{}
}

// NewLoader creates a loader. An empty configPath skips the file stage.
func NewLoader(configPath, version string) *Loader {
	return &Loader{
		configPath:      configPath,
		version:         version,
		ConsumedEnvKeys: make(map[string]struct{}),
	}
}

func (l *Loader) envString(key, defaultVal string) string {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseString(key, defaultVal)
}

func (l *Loader) envBool(key string, defaultVal bool) bool {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseBool(key, defaultVal)
}

func (l *Loader) envInt(key string, defaultVal int) int {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseInt(key, defaultVal)
}

func (l *Loader) envDuration(key string, defaultVal time.Duration) time.Duration {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseDuration(key, defaultVal)
}

func (l *Loader) envFloat(key string, defaultVal float64) float64 {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseFloat(key, defaultVal)
}

// Load applies defaults, the file and the environment in that order, then
// validates the result.
func (l *Loader) Load() (AppConfig, error) {
	cfg := Defaults()

	if l.configPath != "" {
		fileCfg, err := l.loadFile(l.configPath)
		if err != nil {
			return cfg, fmt.Errorf("load config file: %w", err)
		}
		if err := mergeFileConfig(&cfg, fileCfg); err != nil {
			return cfg, fmt.Errorf("merge file config: %w", err)
		}
	}

	l.mergeEnvConfig(&cfg)
	cfg.Version = l.version

	if err := Validate(cfg); err != nil {
		return cfg, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// Defaults returns the built-in configuration.
func Defaults() AppConfig {
	return AppConfig{
		ListenAddr:  ":8088",
		MetricsAddr: ":9108",
		LogLevel:    "info",
		LogService:  "classcheck",
		API: APIConfig{
			Timeout: 20 * time.Second,
		},
		Scan: ScanConfig{
			ParseFailure:       "ignore",
			RecognitionTimeout: 5 * time.Second,
			FramesPerSecond:    10,
		},
		Submission: SubmissionConfig{
			OnFailure:   "rescan",
			RescanDelay: 1500 * time.Millisecond,
		},
		Breaker: BreakerConfig{
			Threshold:    5,
			ResetTimeout: 30 * time.Second,
		},
		Telemetry: TelemetryConfig{
			Exporter:     "grpc",
			Endpoint:     "localhost:4317",
			SamplingRate: 1.0,
			Environment:  "production",
		},
		RateLimit: RateLimitConfig{
			RequestsPerMinute: 600,
		},
	}
}

// loadFile parses a YAML file strictly: unknown keys and trailing documents
// are errors.
func (l *Loader) loadFile(path string) (*FileConfig, error) {
	path = filepath.Clean(path)
	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".yaml" && ext != ".yml" {
		return nil, fmt.Errorf("%w: %s (only YAML supported)", ErrUnsupportedFormat, ext)
	}

	// #nosec G304 -- configuration file paths are provided by the operator via CLI/ENV
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	return parseFile(data)
}

func parseFile(data []byte) (*FileConfig, error) {
	var fileCfg FileConfig
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	if err := dec.Decode(&fileCfg); err != nil {
		if errors.Is(err, io.EOF) {
			return &FileConfig{}, nil
		}
		if strings.Contains(err.Error(), "field") && strings.Contains(err.Error(), "not found") {
			return nil, fmt.Errorf("%w: %v", ErrUnknownConfigField, err)
		}
		return nil, fmt.Errorf("strict config parse error: %w", err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return nil, errors.New("config file contains multiple documents or trailing content")
	}
	return &fileCfg, nil
}

func mergeFileConfig(cfg *AppConfig, f *FileConfig) error {
	setString(&cfg.ListenAddr, f.ListenAddr)
	setString(&cfg.MetricsAddr, f.MetricsAddr)
	setString(&cfg.LogLevel, f.LogLevel)
	setString(&cfg.LogService, f.LogService)

	var errs []error
	dur := func(dst *time.Duration, field, raw string) {
		if raw == "" {
			return
		}
		d, err := time.ParseDuration(raw)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", field, err))
			return
		}
		*dst = d
	}

	if f.Identity != nil {
		setString(&cfg.Identity.RollNo, f.Identity.RollNo)
	}
	if f.API != nil {
		setString(&cfg.API.BaseURL, f.API.BaseURL)
		dur(&cfg.API.Timeout, "api.timeout", f.API.Timeout)
	}
	if f.Scan != nil {
		setString(&cfg.Scan.ParseFailure, f.Scan.ParseFailure)
		dur(&cfg.Scan.RecognitionTimeout, "scan.recognitionTimeout", f.Scan.RecognitionTimeout)
		if f.Scan.FramesPerSecond != nil {
			cfg.Scan.FramesPerSecond = *f.Scan.FramesPerSecond
		}
	}
	if f.Submission != nil {
		setString(&cfg.Submission.OnFailure, f.Submission.OnFailure)
		dur(&cfg.Submission.RescanDelay, "submission.rescanDelay", f.Submission.RescanDelay)
	}
	if f.Breaker != nil {
		if f.Breaker.Threshold != nil {
			cfg.Breaker.Threshold = *f.Breaker.Threshold
		}
		dur(&cfg.Breaker.ResetTimeout, "breaker.resetTimeout", f.Breaker.ResetTimeout)
	}
	if f.Telemetry != nil {
		if f.Telemetry.Enabled != nil {
			cfg.Telemetry.Enabled = *f.Telemetry.Enabled
		}
		setString(&cfg.Telemetry.Exporter, f.Telemetry.Exporter)
		setString(&cfg.Telemetry.Endpoint, f.Telemetry.Endpoint)
		setString(&cfg.Telemetry.Environment, f.Telemetry.Environment)
		if f.Telemetry.SamplingRate != nil {
			cfg.Telemetry.SamplingRate = *f.Telemetry.SamplingRate
		}
	}
	if f.RateLimit != nil && f.RateLimit.RequestsPerMinute != nil {
		cfg.RateLimit.RequestsPerMinute = *f.RateLimit.RequestsPerMinute
	}
	return errors.Join(errs...)
}

func setString(dst *string, v string) {
	if v = strings.TrimSpace(v); v != "" {
		*dst = v
	}
}

func (l *Loader) mergeEnvConfig(cfg *AppConfig) {
	cfg.ListenAddr = l.envString(EnvListenAddr, cfg.ListenAddr)
	cfg.MetricsAddr = l.envString(EnvMetricsAddr, cfg.MetricsAddr)
	cfg.LogLevel = l.envString(EnvLogLevel, cfg.LogLevel)
	cfg.LogService = l.envString(EnvLogService, cfg.LogService)

	cfg.Identity.RollNo = strings.TrimSpace(l.envString(EnvRollNo, cfg.Identity.RollNo))
	cfg.API.BaseURL = l.envString(EnvAPIBaseURL, cfg.API.BaseURL)
	cfg.API.Timeout = l.envDuration(EnvAPITimeout, cfg.API.Timeout)

	cfg.Scan.ParseFailure = l.envString(EnvScanParseFailure, cfg.Scan.ParseFailure)
	cfg.Scan.RecognitionTimeout = l.envDuration(EnvScanRecognitionTimeout, cfg.Scan.RecognitionTimeout)
	cfg.Scan.FramesPerSecond = l.envFloat(EnvScanFPS, cfg.Scan.FramesPerSecond)

	cfg.Submission.OnFailure = l.envString(EnvSubmissionFailure, cfg.Submission.OnFailure)
	cfg.Submission.RescanDelay = l.envDuration(EnvRescanDelay, cfg.Submission.RescanDelay)

	cfg.Breaker.Threshold = l.envInt(EnvBreakerThreshold, cfg.Breaker.Threshold)
	cfg.Breaker.ResetTimeout = l.envDuration(EnvBreakerReset, cfg.Breaker.ResetTimeout)

	cfg.Telemetry.Enabled = l.envBool(EnvTelemetryEnabled, cfg.Telemetry.Enabled)
	cfg.Telemetry.Exporter = l.envString(EnvTelemetryExporter, cfg.Telemetry.Exporter)
	cfg.Telemetry.Endpoint = l.envString(EnvTelemetryEndpoint, cfg.Telemetry.Endpoint)
	cfg.Telemetry.SamplingRate = l.envFloat(EnvTelemetrySampling, cfg.Telemetry.SamplingRate)
	cfg.Telemetry.Environment = l.envString(EnvTelemetryEnv, cfg.Telemetry.Environment)

	cfg.RateLimit.RequestsPerMinute = l.envInt(EnvRateLimitRPM, cfg.RateLimit.RequestsPerMinute)
}
