// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// ToFile converts the effective configuration back into the file schema.
func (c AppConfig) ToFile() FileConfig {
	fps := c.Scan.FramesPerSecond
	threshold := c.Breaker.Threshold
	enabled := c.Telemetry.Enabled
	sampling := c.Telemetry.SamplingRate
	rpm := c.RateLimit.RequestsPerMinute

	return FileConfig{
		ListenAddr:  c.ListenAddr,
		MetricsAddr: c.MetricsAddr,
		LogLevel:    c.LogLevel,
		LogService:  c.LogService,
		Identity:    &IdentityFile{RollNo: c.Identity.RollNo},
		API: &APIFile{
			BaseURL: c.API.BaseURL,
			Timeout: c.API.Timeout.String(),
		},
		Scan: &ScanFile{
			ParseFailure:       c.Scan.ParseFailure,
			RecognitionTimeout: c.Scan.RecognitionTimeout.String(),
			FramesPerSecond:    &fps,
		},
		Submission: &SubmissionFile{
			OnFailure:   c.Submission.OnFailure,
			RescanDelay: c.Submission.RescanDelay.String(),
		},
		Breaker: &BreakerFile{
			Threshold:    &threshold,
			ResetTimeout: c.Breaker.ResetTimeout.String(),
		},
		Telemetry: &TelemetryFile{
			Enabled:      &enabled,
			Exporter:     c.Telemetry.Exporter,
			Endpoint:     c.Telemetry.Endpoint,
			SamplingRate: &sampling,
			Environment:  c.Telemetry.Environment,
		},
		RateLimit: &RateLimitFile{RequestsPerMinute: &rpm},
	}
}

// WriteYAML encodes the effective configuration in the file schema.
func (c AppConfig) WriteYAML(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(c.ToFile()); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return enc.Close()
}
