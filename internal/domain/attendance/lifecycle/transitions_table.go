// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package lifecycle

import (
	"errors"

	"github.com/ManuGH/classcheck/internal/domain/attendance/model"
	"github.com/ManuGH/classcheck/internal/fsm"
)

// Transition is a single allowed edge in the lifecycle state machine.
type Transition = fsm.Transition[model.Stage, EventKind]

// Machine runs the lifecycle table.
type Machine = fsm.Machine[model.Stage, EventKind]

var transitionsTable = []Transition{
	// Happy path
	{From: model.StageAwaitingPermissions, To: model.StageListeningForPresence, Event: EvPermissionsGranted},
	{From: model.StageListeningForPresence, To: model.StageAuthenticating, Event: EvPresenceConfirmed},
	// The biometric callback is one-shot and answers the most recent request,
	// so success is honoured from any stage.
	{AnySource: true, To: model.StageScanning, Event: EvBiometricSucceeded},
	{From: model.StageScanning, To: model.StageSubmitting, Event: EvCodeAccepted},
	{From: model.StageSubmitting, To: model.StageSucceeded, Event: EvSubmissionSucceeded},

	// Biometric failure is fatal from every non-terminal stage.
	{From: model.StageAwaitingPermissions, To: model.StageFailed, Event: EvBiometricFailed},
	{From: model.StageListeningForPresence, To: model.StageFailed, Event: EvBiometricFailed},
	{From: model.StageAuthenticating, To: model.StageFailed, Event: EvBiometricFailed},
	{From: model.StageScanning, To: model.StageFailed, Event: EvBiometricFailed},
	{From: model.StageSubmitting, To: model.StageFailed, Event: EvBiometricFailed},

	// Cancelling the prompt is not a failure: go back to listening.
	{From: model.StageAuthenticating, To: model.StageListeningForPresence, Event: EvBiometricCancelled},

	// Failure paths
	{From: model.StageListeningForPresence, To: model.StageFailed, Event: EvPresenceFailed},
	{From: model.StageScanning, To: model.StageFailed, Event: EvParseFailed},
	{From: model.StageSubmitting, To: model.StageFailed, Event: EvSubmissionFailed},

	// Recovery
	{From: model.StageFailed, To: model.StageScanning, Event: EvRescan},
	{AnySource: true, To: model.StageAwaitingPermissions, Event: EvReset},
}

// Table returns a copy of the transition table.
func Table() []Transition {
	return append([]Transition(nil), transitionsTable...)
}

// NewMachine returns a machine positioned at AwaitingPermissions.
func NewMachine() *Machine {
	m, err := fsm.New(model.StageAwaitingPermissions, transitionsTable)
	if err != nil {
		// The table is static; a duplicate edge is a programming error.
		panic(err)
	}
	return m
}

// Allowed reports whether ev has an edge out of from.
func Allowed(from model.Stage, ev EventKind) bool {
	for _, tr := range transitionsTable {
		if tr.Event != ev {
			continue
		}
		if tr.AnySource || tr.From == from {
			return true
		}
	}
	return false
}

// Target returns the stage ev leads to from from.
func Target(from model.Stage, ev EventKind) (model.Stage, bool) {
	var wild *Transition
	for i, tr := range transitionsTable {
		if tr.Event != ev {
			continue
		}
		if !tr.AnySource && tr.From == from {
			return tr.To, true
		}
		if tr.AnySource {
			wild = &transitionsTable[i]
		}
	}
	if wild != nil {
		return wild.To, true
	}
	return "", false
}

// IsStale reports whether err means the event did not apply to the current stage.
func IsStale(err error) bool {
	return errors.Is(err, fsm.ErrInvalidTransition)
}
