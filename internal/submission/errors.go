// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package submission

import (
	"errors"
	"fmt"
)

var (
	// Sentinel errors for errors.Is checks at the boundary.
	ErrRejected     = errors.New("attendance service rejected the submission")
	ErrTransport    = errors.New("attendance service unreachable or transport failure")
	ErrBadResponse  = errors.New("attendance service returned an invalid response")
	ErrTimeout      = errors.New("attendance submission timed out")
	ErrMissingInput = errors.New("submission requires a roll number and a session id")
)

// Kind separates application-level rejections from everything else.
type Kind string

const (
	KindRejected  Kind = "rejected"
	KindTransport Kind = "transport"
)

const (
	defaultRejectedMessage  = "Failed"
	defaultTransportMessage = "Network error"
)

// SubmitError is returned by HTTPGateway for every failed submission.
// Message is the human-readable diagnostic (the remote message for
// rejections).
type SubmitError struct {
	Kind      Kind
	Sentinel  error
	SessionID string
	Status    int
	Message   string
	Err       error
}

func (e *SubmitError) Error() string {
	msg := fmt.Sprintf("submission %s: %v", e.SessionID, e.Sentinel)
	if e.Status > 0 {
		msg = fmt.Sprintf("%s (HTTP %d)", msg, e.Status)
	}
	if e.Message != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Message)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap exposes both the sentinel and the underlying cause.
func (e *SubmitError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Sentinel}
	}
	return []error{e.Sentinel, e.Err}
}

// IsTransport reports whether err is a transport-class failure. Only these
// count against the circuit breaker.
func IsTransport(err error) bool {
	var se *SubmitError
	if errors.As(err, &se) {
		return se.Kind == KindTransport
	}
	return false
}

// Diagnostic returns the short message shown to the user.
func (e *SubmitError) Diagnostic() string {
	return e.Message
}

func rejected(sessionID, message string) *SubmitError {
	if message == "" {
		message = defaultRejectedMessage
	}
	return &SubmitError{
		Kind:      KindRejected,
		Sentinel:  ErrRejected,
		SessionID: sessionID,
		Message:   message,
	}
}

func transport(sentinel error, sessionID string, status int, err error) *SubmitError {
	return &SubmitError{
		Kind:      KindTransport,
		Sentinel:  sentinel,
		SessionID: sessionID,
		Status:    status,
		Message:   defaultTransportMessage,
		Err:       err,
	}
}
