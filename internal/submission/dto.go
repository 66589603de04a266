// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package submission

// MarkPath is the attendance endpoint relative to the service base URL.
const MarkPath = "/api/attendance/mark"

// MarkRequest is the wire body of a submission.
type MarkRequest struct {
	RollNo    string `json:"rollNo"`
	SessionID string `json:"sessionId"`
}

// MarkResponse is the wire body the attendance service answers with.
type MarkResponse struct {
	Success bool    `json:"success"`
	Message *string `json:"message,omitempty"`
}
