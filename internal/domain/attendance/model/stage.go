// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package model

// Stage is the single current step of the verification pipeline. It is the
// only source of truth for which event streams may produce effects.
type Stage string

const (
	StageAwaitingPermissions  Stage = "AWAITING_PERMISSIONS"
	StageListeningForPresence Stage = "LISTENING_FOR_PRESENCE"
	StageAuthenticating       Stage = "AUTHENTICATING"
	StageScanning             Stage = "SCANNING"
	StageSubmitting           Stage = "SUBMITTING"
	StageSucceeded            Stage = "SUCCEEDED"
	StageFailed               Stage = "FAILED"
)

// Stages lists every stage in pipeline order.
var Stages = []Stage{
	StageAwaitingPermissions,
	StageListeningForPresence,
	StageAuthenticating,
	StageScanning,
	StageSubmitting,
	StageSucceeded,
	StageFailed,
}

// IsTerminal returns true if the stage ends the pipeline.
func (s Stage) IsTerminal() bool {
	switch s {
	case StageSucceeded, StageFailed:
		return true
	}
	return false
}

// Valid reports whether s is a known stage.
func (s Stage) Valid() bool {
	for _, k := range Stages {
		if k == s {
			return true
		}
	}
	return false
}

func (s Stage) String() string { return string(s) }

// StageNames returns the stages as plain strings (metric label values).
func StageNames() []string {
	out := make([]string, len(Stages))
	for i, s := range Stages {
		out[i] = string(s)
	}
	return out
}
