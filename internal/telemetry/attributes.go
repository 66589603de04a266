// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package telemetry

import (
	"go.opentelemetry.io/otel/attribute"
)

// Attribute keys used across spans.
const (
	HTTPMethodKey     = "http.method"
	HTTPStatusCodeKey = "http.status_code"
	HTTPRouteKey      = "http.route"

	AttemptIDKey = "attendance.attempt_id"
	StageKey     = "attendance.stage"
	EventKey     = "attendance.event"

	SubmissionSessionIDKey = "submission.session_id"
	SubmissionRollNoKey    = "submission.roll_no"
	SubmissionOutcomeKey   = "submission.outcome"

	ScanFrameSeqKey = "scan.frame_seq"
	ScanBurstKey    = "scan.burst"

	ErrorKey     = "error"
	ErrorTypeKey = "error.type"
)

// HTTPAttributes creates common HTTP span attributes.
func HTTPAttributes(method, route string, statusCode int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(HTTPMethodKey, method),
		attribute.String(HTTPRouteKey, route),
		attribute.Int(HTTPStatusCodeKey, statusCode),
	}
}

// TransitionAttributes describes one stage change.
func TransitionAttributes(attemptID, event, stage string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(AttemptIDKey, attemptID),
		attribute.String(EventKey, event),
		attribute.String(StageKey, stage),
	}
}

// SubmissionAttributes describes one attendance submission. Empty values are
// omitted.
func SubmissionAttributes(sessionID, rollNo string) []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 0, 2)
	if sessionID != "" {
		attrs = append(attrs, attribute.String(SubmissionSessionIDKey, sessionID))
	}
	if rollNo != "" {
		attrs = append(attrs, attribute.String(SubmissionRollNoKey, rollNo))
	}
	return attrs
}

// ScanAttributes describes one recognition.
func ScanAttributes(frameSeq, burst uint64) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Int64(ScanFrameSeqKey, int64(frameSeq)),
		attribute.Int64(ScanBurstKey, int64(burst)),
	}
}

// ErrorAttributes marks a span as failed with a classification.
func ErrorAttributes(errorType string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Bool(ErrorKey, true),
		attribute.String(ErrorTypeKey, errorType),
	}
}
