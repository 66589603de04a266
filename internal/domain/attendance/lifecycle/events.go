// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package lifecycle

// EventKind is a domain event in the attendance lifecycle.
type EventKind string

const (
	EvPermissionsGranted  EventKind = "permissions_granted"
	EvPresenceConfirmed   EventKind = "presence_confirmed"
	EvBiometricSucceeded  EventKind = "biometric_succeeded"
	EvBiometricFailed     EventKind = "biometric_failed"
	EvBiometricCancelled  EventKind = "biometric_cancelled"
	EvCodeAccepted        EventKind = "code_accepted"
	EvParseFailed         EventKind = "parse_failed"
	EvSubmissionSucceeded EventKind = "submission_succeeded"
	EvSubmissionFailed    EventKind = "submission_failed"
	EvPresenceFailed      EventKind = "presence_failed"
	EvRescan              EventKind = "rescan"
	EvReset               EventKind = "reset"
)
