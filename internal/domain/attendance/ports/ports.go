// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package ports declares the external collaborators the attendance
// orchestrator drives. Implementations live with their transports.
package ports

import (
	"context"
	"errors"

	"github.com/ManuGH/classcheck/internal/domain/attendance/model"
)

// PresenceListener wraps the proximity beacon classifier. Start begins a
// listening period and calls onConfirmed at most once; Stop ends the period
// and guarantees onConfirmed is not called afterwards.
type PresenceListener interface {
	Start(ctx context.Context, onConfirmed func()) error
	Stop()
}

// BiometricAuthenticator asks the platform for a biometric challenge. The
// answer arrives later through the orchestrator's biometric entry points.
type BiometricAuthenticator interface {
	RequestChallenge(ctx context.Context, attemptID string) error
}

// SubmitRequest is the payload of one attendance write.
type SubmitRequest struct {
	Identity  model.Identity
	SessionID string
}

// SubmissionGateway performs one remote write. A nil error means the remote
// system acknowledged the attendance; any error is a failure.
type SubmissionGateway interface {
	Submit(ctx context.Context, req SubmitRequest) error
}

// Diagnostic is implemented by errors that carry a short human-readable
// message distinct from their full error string.
type Diagnostic interface {
	Diagnostic() string
}

// DiagnosticMessage returns the diagnostic of err, falling back to
// err.Error().
func DiagnosticMessage(err error) string {
	if err == nil {
		return ""
	}
	var d Diagnostic
	if errors.As(err, &d) {
		if msg := d.Diagnostic(); msg != "" {
			return msg
		}
	}
	return err.Error()
}
