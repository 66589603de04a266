// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package api

import (
	"encoding/json"
	"net/http"

	"github.com/ManuGH/classcheck/internal/log"
)

// APIError is the JSON error body.
type APIError struct {
	Code      string `json:"error"`
	Detail    string `json:"detail,omitempty"`
	RequestID string `json:"requestId,omitempty"`
}

var (
	ErrBadRequest       = &APIError{Code: "bad_request"}
	ErrPayloadTooLarge  = &APIError{Code: "payload_too_large"}
	ErrStreamingBlocked = &APIError{Code: "streaming_unsupported"}
	ErrUnavailable      = &APIError{Code: "unavailable"}
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, status int, base *APIError, detail string) {
	writeJSON(w, status, APIError{
		Code:      base.Code,
		Detail:    detail,
		RequestID: log.RequestIDFromContext(r.Context()),
	})
}
