// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"strings"
	"time"

	"github.com/ManuGH/classcheck/internal/validate"
)

// Validate checks a merged configuration.
func Validate(cfg AppConfig) error {
	v := validate.New()

	v.NotEmpty("identity.rollNo", cfg.Identity.RollNo)
	v.URL("api.baseURL", strings.TrimSpace(cfg.API.BaseURL), []string{"http", "https"})
	v.DurationRange("api.timeout", cfg.API.Timeout, time.Second, 5*time.Minute)

	v.ListenAddr("listenAddr", cfg.ListenAddr)
	if cfg.MetricsAddr != "" {
		v.ListenAddr("metricsAddr", cfg.MetricsAddr)
		if cfg.MetricsAddr == cfg.ListenAddr {
			v.AddError("metricsAddr", "must differ from listenAddr", cfg.MetricsAddr)
		}
	}
	v.OneOf("logLevel", strings.ToLower(cfg.LogLevel), validate.LogLevels())

	v.OneOf("scan.parseFailure", cfg.Scan.ParseFailure, []string{"ignore", "fail"})
	v.DurationRange("scan.recognitionTimeout", cfg.Scan.RecognitionTimeout, 10*time.Millisecond, time.Minute)
	v.FloatRange("scan.framesPerSecond", cfg.Scan.FramesPerSecond, 0, 1000)

	v.OneOf("submission.onFailure", cfg.Submission.OnFailure, []string{"rescan", "stay"})
	v.DurationRange("submission.rescanDelay", cfg.Submission.RescanDelay, time.Millisecond, 10*time.Minute)

	v.Range("breaker.threshold", cfg.Breaker.Threshold, 0, 1000)
	if cfg.Breaker.Threshold > 0 {
		v.DurationRange("breaker.resetTimeout", cfg.Breaker.ResetTimeout, time.Second, time.Hour)
	}

	if cfg.Telemetry.Enabled {
		v.OneOf("telemetry.exporter", cfg.Telemetry.Exporter, []string{"grpc", "http"})
		v.NotEmpty("telemetry.endpoint", cfg.Telemetry.Endpoint)
	}
	v.FloatRange("telemetry.samplingRate", cfg.Telemetry.SamplingRate, 0, 1)

	v.Range("rateLimit.requestsPerMinute", cfg.RateLimit.RequestsPerMinute, 0, 1_000_000)

	return v.Err()
}
