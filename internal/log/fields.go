// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package log

// Canonical field name constants for structured logging.
const (
	// Identity fields
	FieldAttemptID     = "attempt_id"
	FieldSessionID     = "session_id"
	FieldRollNo        = "roll_no"
	FieldRequestID     = "request_id"
	FieldCorrelationID = "correlation_id"

	// Process / pipeline fields
	FieldEvent     = "event"
	FieldComponent = "component"

	// State fields
	FieldOldState = "old_state"
	FieldNewState = "new_state"
	FieldStage    = "stage"

	// Scan fields
	FieldFrameSeq = "frame_seq"
	FieldBurst    = "burst"

	// Path / URL fields
	FieldPath    = "path"
	FieldBaseURL = "base_url"
)
