// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package qr extracts class session identifiers from scanned code payloads.
package qr

import (
	"bytes"
	"encoding/json"
	"net/url"
	"strings"
)

const (
	// SessionPrefix marks plain-text session codes.
	SessionPrefix = "CLASS_SESSION_"

	jsonField      = "sessionId"
	queryPrimary   = "sid"
	querySecondary = "sessionId"
)

// ExtractSessionID returns the session identifier carried by raw, trying a
// JSON object, then the plain-text prefix, then URL query parameters. It never
// panics; malformed input falls through to the next strategy.
func ExtractSessionID(raw string) (string, bool) {
	if isBlank(raw) {
		return "", false
	}
	if id, ok := fromJSON(raw); ok {
		return id, true
	}
	if id, ok := fromPrefix(raw); ok {
		return id, true
	}
	if id, ok := fromURL(raw); ok {
		return id, true
	}
	return "", false
}

func fromJSON(raw string) (string, bool) {
	trimmed := strings.TrimSpace(raw)
	if !strings.HasPrefix(trimmed, "{") {
		return "", false
	}
	dec := json.NewDecoder(bytes.NewReader([]byte(trimmed)))
	dec.UseNumber()
	var obj map[string]any
	if err := dec.Decode(&obj); err != nil {
		return "", false
	}
	var id string
	switch v := obj[jsonField].(type) {
	case string:
		id = v
	case json.Number:
		id = v.String()
	default:
		return "", false
	}
	if isBlank(id) {
		return "", false
	}
	return id, true
}

func fromPrefix(raw string) (string, bool) {
	rest, ok := strings.CutPrefix(raw, SessionPrefix)
	if !ok || isBlank(rest) {
		return "", false
	}
	return rest, true
}

func fromURL(raw string) (string, bool) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", false
	}
	q, err := url.ParseQuery(u.RawQuery)
	if err != nil && len(q) == 0 {
		return "", false
	}
	for _, key := range []string{queryPrimary, querySecondary} {
		if v := q.Get(key); !isBlank(v) {
			return v, true
		}
	}
	return "", false
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}
