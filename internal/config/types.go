// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import "time"

// AppConfig is the effective daemon configuration.
type AppConfig struct {
	Version     string
	ListenAddr  string
	MetricsAddr string // empty disables the metrics listener
	LogLevel    string
	LogService  string

	Identity   IdentityConfig
	API        APIConfig
	Scan       ScanConfig
	Submission SubmissionConfig
	Breaker    BreakerConfig
	Telemetry  TelemetryConfig
	RateLimit  RateLimitConfig
}

// IdentityConfig names the student whose attendance is recorded.
type IdentityConfig struct {
	RollNo string
}

// APIConfig points at the remote attendance service.
type APIConfig struct {
	BaseURL string
	Timeout time.Duration
}

// ScanConfig tunes the scan debouncer and parse failure handling.
type ScanConfig struct {
	ParseFailure       string // ignore|fail
	RecognitionTimeout time.Duration
	FramesPerSecond    float64 // 0 disables the limit
}

// SubmissionConfig decides what follows a failed submission.
type SubmissionConfig struct {
	OnFailure   string // rescan|stay
	RescanDelay time.Duration
}

// BreakerConfig guards the attendance service. Threshold 0 disables it.
type BreakerConfig struct {
	Threshold    int
	ResetTimeout time.Duration
}

// TelemetryConfig configures OpenTelemetry tracing.
type TelemetryConfig struct {
	Enabled      bool
	Exporter     string // grpc|http
	Endpoint     string
	SamplingRate float64
	Environment  string
}

// RateLimitConfig bounds ingestion on the control API per client.
type RateLimitConfig struct {
	RequestsPerMinute int // 0 disables the limit
}

// FileConfig mirrors the YAML file. Pointers distinguish unset from zero.
type FileConfig struct {
	ListenAddr  string `yaml:"listenAddr,omitempty"`
	MetricsAddr string `yaml:"metricsAddr,omitempty"`
	LogLevel    string `yaml:"logLevel,omitempty"`
	LogService  string `yaml:"logService,omitempty"`

	Identity   *IdentityFile   `yaml:"identity,omitempty"`
	API        *APIFile        `yaml:"api,omitempty"`
	Scan       *ScanFile       `yaml:"scan,omitempty"`
	Submission *SubmissionFile `yaml:"submission,omitempty"`
	Breaker    *BreakerFile    `yaml:"breaker,omitempty"`
	Telemetry  *TelemetryFile  `yaml:"telemetry,omitempty"`
	RateLimit  *RateLimitFile  `yaml:"rateLimit,omitempty"`
}

type IdentityFile struct {
	RollNo string `yaml:"rollNo,omitempty"`
}

type APIFile struct {
	BaseURL string `yaml:"baseURL,omitempty"`
	Timeout string `yaml:"timeout,omitempty"`
}

type ScanFile struct {
	ParseFailure       string   `yaml:"parseFailure,omitempty"`
	RecognitionTimeout string   `yaml:"recognitionTimeout,omitempty"`
	FramesPerSecond    *float64 `yaml:"framesPerSecond,omitempty"`
}

type SubmissionFile struct {
	OnFailure   string `yaml:"onFailure,omitempty"`
	RescanDelay string `yaml:"rescanDelay,omitempty"`
}

type BreakerFile struct {
	Threshold    *int   `yaml:"threshold,omitempty"`
	ResetTimeout string `yaml:"resetTimeout,omitempty"`
}

type TelemetryFile struct {
	Enabled      *bool    `yaml:"enabled,omitempty"`
	Exporter     string   `yaml:"exporter,omitempty"`
	Endpoint     string   `yaml:"endpoint,omitempty"`
	SamplingRate *float64 `yaml:"samplingRate,omitempty"`
	Environment  string   `yaml:"environment,omitempty"`
}

type RateLimitFile struct {
	RequestsPerMinute *int `yaml:"requestsPerMinute,omitempty"`
}
