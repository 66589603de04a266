// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package orchestrator

import (
	"errors"
	"fmt"
	"time"

	"github.com/ManuGH/classcheck/internal/bus"
	"github.com/ManuGH/classcheck/internal/domain/attendance/model"
	"github.com/ManuGH/classcheck/internal/domain/attendance/ports"
)

// ParseFailurePolicy decides what a scanned code without a session id does.
type ParseFailurePolicy string

const (
	// ParseFailureIgnore keeps scanning.
	ParseFailureIgnore ParseFailurePolicy = "ignore"
	// ParseFailureFail moves to FAILED.
	ParseFailureFail ParseFailurePolicy = "fail"
)

// SubmissionFailurePolicy decides what follows a failed submission.
type SubmissionFailurePolicy string

const (
	// SubmissionFailureRescan returns to SCANNING after RescanDelay.
	SubmissionFailureRescan SubmissionFailurePolicy = "rescan"
	// SubmissionFailureStay keeps FAILED until reset.
	SubmissionFailureStay SubmissionFailurePolicy = "stay"
)

const (
	DefaultRescanDelay   = 1500 * time.Millisecond
	DefaultSubmitTimeout = 20 * time.Second
)

var (
	ErrMissingIdentity = errors.New("orchestrator: identity is required")
	ErrMissingPort     = errors.New("orchestrator: collaborator is required")
	ErrAlreadyRunning  = errors.New("orchestrator: already running")
)

// Config wires the orchestrator to its collaborators.
type Config struct {
	Identity  model.Identity
	Presence  ports.PresenceListener
	Biometric ports.BiometricAuthenticator
	Gateway   ports.SubmissionGateway

	// Bus receives model.StageChanged on model.TopicStage. Optional.
	Bus bus.Bus

	// Parse extracts the session id from scanned text. Defaults to
	// qr.ExtractSessionID.
	Parse func(raw string) (string, bool)

	ParseFailure      ParseFailurePolicy
	SubmissionFailure SubmissionFailurePolicy
	RescanDelay       time.Duration
	SubmitTimeout     time.Duration
}

func (c *Config) validate() error {
	if c.Identity.IsZero() {
		return ErrMissingIdentity
	}
	if c.Presence == nil {
		return fmt.Errorf("%w: presence listener", ErrMissingPort)
	}
	if c.Biometric == nil {
		return fmt.Errorf("%w: biometric authenticator", ErrMissingPort)
	}
	if c.Gateway == nil {
		return fmt.Errorf("%w: submission gateway", ErrMissingPort)
	}
	switch c.ParseFailure {
	case "":
		c.ParseFailure = ParseFailureIgnore
	case ParseFailureIgnore, ParseFailureFail:
	default:
		return fmt.Errorf("orchestrator: unknown parse failure policy %q", c.ParseFailure)
	}
	switch c.SubmissionFailure {
	case "":
		c.SubmissionFailure = SubmissionFailureRescan
	case SubmissionFailureRescan, SubmissionFailureStay:
	default:
		return fmt.Errorf("orchestrator: unknown submission failure policy %q", c.SubmissionFailure)
	}
	if c.RescanDelay <= 0 {
		c.RescanDelay = DefaultRescanDelay
	}
	if c.SubmitTimeout <= 0 {
		c.SubmitTimeout = DefaultSubmitTimeout
	}
	return nil
}
