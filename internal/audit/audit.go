// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package audit writes the attendance audit trail: who granted what, which
// biometric answers arrived and how each attempt ended. It follows the
// WHO/WHAT/WHEN pattern.
package audit

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/ManuGH/classcheck/internal/bus"
	"github.com/ManuGH/classcheck/internal/domain/attendance/model"
	"github.com/ManuGH/classcheck/internal/log"
)

// EventType represents the type of audit event.
type EventType string

const (
	EventPermissions EventType = "attendance.permissions"
	EventBiometric   EventType = "attendance.biometric"
	EventReset       EventType = "attendance.reset"
	EventRecorded    EventType = "attendance.recorded"
	EventFailed      EventType = "attendance.failed"
)

// Event represents a structured audit event.
type Event struct {
	Timestamp  time.Time         `json:"timestamp"`
	Type       EventType         `json:"type"`
	Actor      string            `json:"actor"`    // WHO: roll number, client address or "system"
	Action     string            `json:"action"`   // WHAT: human-readable action description
	Resource   string            `json:"resource"` // endpoint or attempt id
	Result     string            `json:"result"`   // success, failure, denied
	RemoteAddr string            `json:"remote_addr"`
	UserAgent  string            `json:"user_agent"`
	RequestID  string            `json:"request_id"`
	Details    map[string]string `json:"details,omitempty"`
}

// Logger provides audit logging functionality.
type Logger struct {
	logger zerolog.Logger
}

// NewLogger creates a new audit logger with a dedicated "audit" component.
func NewLogger() *Logger {
	return NewLoggerWith(log.WithComponent("audit"))
}

// NewLoggerWith writes audit events through base.
func NewLoggerWith(base zerolog.Logger) *Logger {
	return &Logger{logger: base.With().Str("log_type", "audit").Logger()}
}

// Log writes an audit event to the audit log.
func (l *Logger) Log(event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	logEvent := l.logger.Info().
		Time("timestamp", event.Timestamp).
		Str("event_type", string(event.Type)).
		Str("actor", event.Actor).
		Str("action", event.Action).
		Str("resource", event.Resource).
		Str("result", event.Result)

	if event.RemoteAddr != "" {
		logEvent.Str("remote_addr", event.RemoteAddr)
	}
	if event.UserAgent != "" {
		logEvent.Str("user_agent", event.UserAgent)
	}
	if event.RequestID != "" {
		logEvent.Str("request_id", event.RequestID)
	}
	for key, value := range event.Details {
		logEvent.Str(key, value)
	}

	logEvent.Msg("audit event")
}

// LogRequest fills the client fields of event from r and logs it. The actor
// defaults to the client address.
func (l *Logger) LogRequest(r *http.Request, event Event) {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	if event.RemoteAddr == "" {
		event.RemoteAddr = host
	}
	if event.Actor == "" {
		event.Actor = host
	}
	if event.UserAgent == "" {
		event.UserAgent = r.UserAgent()
	}
	if event.RequestID == "" {
		event.RequestID = log.RequestIDFromContext(r.Context())
	}
	if event.Resource == "" {
		event.Resource = r.URL.Path
	}
	l.Log(event)
}

// Permissions logs the platform's permission answer.
func (l *Logger) Permissions(r *http.Request, granted bool) {
	result := "success"
	if !granted {
		result = "denied"
	}
	l.LogRequest(r, Event{
		Type:   EventPermissions,
		Action: "answered device permissions",
		Result: result,
	})
}

// Biometric logs a biometric answer.
func (l *Logger) Biometric(r *http.Request, result, reason string) {
	ev := Event{
		Type:   EventBiometric,
		Action: "answered biometric challenge",
		Result: result,
	}
	if reason != "" {
		ev.Details = map[string]string{"reason": reason}
	}
	l.LogRequest(r, ev)
}

// Reset logs an operator reset.
func (l *Logger) Reset(r *http.Request) {
	l.LogRequest(r, Event{
		Type:   EventReset,
		Action: "reset verification attempt",
		Result: "success",
	})
}

// StageFollower records how each attempt ends by watching stage changes.
type StageFollower struct {
	audit  *Logger
	bus    bus.Bus
	rollNo string
}

// NewStageFollower attributes outcomes to rollNo.
func NewStageFollower(l *Logger, b bus.Bus, rollNo string) *StageFollower {
	return &StageFollower{audit: l, bus: b, rollNo: rollNo}
}

// Run follows model.TopicStage until ctx is done.
func (f *StageFollower) Run(ctx context.Context) error {
	sub, err := f.bus.Subscribe(ctx, model.TopicStage)
	if err != nil {
		return err
	}
	defer func() { _ = sub.Close() }()

	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-sub.C():
			if !ok {
				if ctx.Err() != nil {
					return nil
				}
				return errors.New("audit: stage subscription closed")
			}
			if ev, ok := msg.(model.StageChanged); ok {
				f.record(ev)
			}
		}
	}
}

func (f *StageFollower) record(ev model.StageChanged) {
	var out Event
	switch ev.To {
	case model.StageSucceeded:
		out = Event{Type: EventRecorded, Action: "attendance recorded", Result: "success"}
	case model.StageFailed:
		out = Event{Type: EventFailed, Action: "attendance attempt failed", Result: "failure"}
	default:
		return
	}
	out.Timestamp = ev.At
	out.Actor = f.rollNo
	out.Resource = ev.AttemptID
	out.Details = map[string]string{"from_stage": ev.From.String()}
	if ev.Reason != "" {
		out.Details["reason"] = ev.Reason
	}
	f.audit.Log(out)
}
