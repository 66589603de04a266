// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package model

import "time"

// VerificationSession is the live attempt. An empty AcceptedSessionID means
// no code has been accepted yet. AttemptID correlates logs of one attempt and
// changes on every reset.
type VerificationSession struct {
	Stage             Stage  `json:"stage"`
	AcceptedSessionID string `json:"acceptedSessionId,omitempty"`
	AttemptID         string `json:"attemptId"`
	// LastError carries the diagnostic message of the last failure, if any.
	LastError string    `json:"lastError,omitempty"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// HasAcceptedCode reports whether a session identifier was accepted.
func (v VerificationSession) HasAcceptedCode() bool {
	return v.AcceptedSessionID != ""
}

// ScanBurst guards acceptance within one scanning period. Generation changes
// every time the stage enters Scanning so results from an older burst can be
// told apart.
type ScanBurst struct {
	AlreadyAccepted bool
	Generation      uint64
}

// Open starts a new burst.
func (b *ScanBurst) Open() {
	b.AlreadyAccepted = false
	b.Generation++
}

// Clear resets the flag without opening a new burst.
func (b *ScanBurst) Clear() {
	b.AlreadyAccepted = false
}

// StageChanged is published on every transition.
type StageChanged struct {
	From      Stage     `json:"from"`
	To        Stage     `json:"to"`
	Event     string    `json:"event"`
	AttemptID string    `json:"attemptId"`
	Reason    string    `json:"reason,omitempty"`
	At        time.Time `json:"at"`
}

// ChallengeRequested is published when the orchestrator asks the external
// biometric authenticator for a challenge.
type ChallengeRequested struct {
	AttemptID string    `json:"attemptId"`
	At        time.Time `json:"at"`
}

// Bus topics.
const (
	TopicStage     = "attendance.stage"
	TopicChallenge = "attendance.challenge"
)
