// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package model

import (
	"errors"
	"strings"
)

// ErrBlankIdentity is returned when no roll number is configured.
var ErrBlankIdentity = errors.New("identity: roll number is blank")

// Identity is the immutable identity of the current user. It is injected into
// the orchestrator at construction and never changes for its lifetime.
type Identity struct {
	rollNo string
}

// NewIdentity trims rollNo and rejects blank values.
func NewIdentity(rollNo string) (Identity, error) {
	r := strings.TrimSpace(rollNo)
	if r == "" {
		return Identity{}, ErrBlankIdentity
	}
	return Identity{rollNo: r}, nil
}

// RollNo returns the roll number sent to the attendance service.
func (i Identity) RollNo() string { return i.rollNo }

// IsZero reports whether the identity was never initialised.
func (i Identity) IsZero() bool { return i.rollNo == "" }
