// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_DefaultsPlusRequiredEnv(t *testing.T) {
	t.Setenv(EnvRollNo, "  R-17 ")
	t.Setenv(EnvAPIBaseURL, "https://attendance.example.edu")

	cfg, err := NewLoader("", "v1.2.3").Load()
	require.NoError(t, err)

	want := Defaults()
	want.Version = "v1.2.3"
	want.Identity.RollNo = "R-17"
	want.API.BaseURL = "https://attendance.example.edu"
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestLoad_FileThenEnvPrecedence(t *testing.T) {
	path := writeConfig(t, "classcheck.yaml", `
listenAddr: ":9000"
logLevel: debug
identity:
  rollNo: R-1
api:
  baseURL: http://127.0.0.1:8080
  timeout: 5s
scan:
  parseFailure: fail
  framesPerSecond: 0
submission:
  onFailure: stay
  rescanDelay: 2s
breaker:
  threshold: 0
telemetry:
  enabled: true
  exporter: http
  endpoint: collector:4318
  samplingRate: 0.5
rateLimit:
  requestsPerMinute: 60
`)
	t.Setenv(EnvRollNo, "R-2")
	t.Setenv(EnvSubmissionFailure, "rescan")

	l := NewLoader(path, "dev")
	cfg, err := l.Load()
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.ListenAddr)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "R-2", cfg.Identity.RollNo)
	assert.Equal(t, "http://127.0.0.1:8080", cfg.API.BaseURL)
	assert.Equal(t, 5*time.Second, cfg.API.Timeout)
	assert.Equal(t, "fail", cfg.Scan.ParseFailure)
	assert.Zero(t, cfg.Scan.FramesPerSecond)
	assert.Equal(t, "rescan", cfg.Submission.OnFailure)
	assert.Equal(t, 2*time.Second, cfg.Submission.RescanDelay)
	assert.Zero(t, cfg.Breaker.Threshold)
	assert.True(t, cfg.Telemetry.Enabled)
	assert.Equal(t, "http", cfg.Telemetry.Exporter)
	assert.InDelta(t, 0.5, cfg.Telemetry.SamplingRate, 1e-9)
	assert.Equal(t, 60, cfg.RateLimit.RequestsPerMinute)

	assert.Contains(t, l.ConsumedEnvKeys, EnvRollNo)
	assert.Contains(t, l.ConsumedEnvKeys, EnvRateLimitRPM)
}

func TestLoad_StrictFile(t *testing.T) {
	t.Setenv(EnvRollNo, "R-1")
	t.Setenv(EnvAPIBaseURL, "https://attendance.example.edu")

	t.Run("unknown key", func(t *testing.T) {
		path := writeConfig(t, "c.yaml", "identity:\n  rollNumber: R-1\n")
		_, err := NewLoader(path, "").Load()
		assert.ErrorIs(t, err, ErrUnknownConfigField)
	})
	t.Run("multiple documents", func(t *testing.T) {
		path := writeConfig(t, "c.yaml", "logLevel: info\n---\nlogLevel: debug\n")
		_, err := NewLoader(path, "").Load()
		assert.ErrorContains(t, err, "multiple documents")
	})
	t.Run("not yaml", func(t *testing.T) {
		path := writeConfig(t, "c.json", "{}")
		_, err := NewLoader(path, "").Load()
		assert.ErrorIs(t, err, ErrUnsupportedFormat)
	})
	t.Run("bad duration", func(t *testing.T) {
		path := writeConfig(t, "c.yml", "api:\n  timeout: soon\n")
		_, err := NewLoader(path, "").Load()
		assert.ErrorContains(t, err, "api.timeout")
	})
	t.Run("empty file", func(t *testing.T) {
		path := writeConfig(t, "c.yaml", "")
		_, err := NewLoader(path, "").Load()
		assert.NoError(t, err)
	})
	t.Run("missing file", func(t *testing.T) {
		_, err := NewLoader(filepath.Join(t.TempDir(), "nope.yaml"), "").Load()
		assert.Error(t, err)
	})
}
