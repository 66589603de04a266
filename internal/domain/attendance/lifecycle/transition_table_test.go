// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package lifecycle

import (
	"testing"

	"github.com/ManuGH/classcheck/internal/domain/attendance/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransitionTable_HappyPath(t *testing.T) {
	m := NewMachine()
	steps := []struct {
		ev   EventKind
		want model.Stage
	}{
		{EvPermissionsGranted, model.StageListeningForPresence},
		{EvPresenceConfirmed, model.StageAuthenticating},
		{EvBiometricSucceeded, model.StageScanning},
		{EvCodeAccepted, model.StageSubmitting},
		{EvSubmissionSucceeded, model.StageSucceeded},
	}
	for _, s := range steps {
		_, to, err := m.Fire(s.ev)
		require.NoError(t, err, s.ev)
		assert.Equal(t, s.want, to)
	}
}

func TestTransitionTable_ResetFromEveryStage(t *testing.T) {
	for _, s := range model.Stages {
		to, ok := Target(s, EvReset)
		require.True(t, ok, s)
		assert.Equal(t, model.StageAwaitingPermissions, to)
	}
}

func TestTransitionTable_BiometricSuccessIsUnconditional(t *testing.T) {
	for _, s := range model.Stages {
		to, ok := Target(s, EvBiometricSucceeded)
		require.True(t, ok, s)
		assert.Equal(t, model.StageScanning, to)
	}
}

func TestTransitionTable_BiometricFailureNeverLeavesTerminal(t *testing.T) {
	for _, s := range model.Stages {
		assert.Equal(t, !s.IsTerminal(), Allowed(s, EvBiometricFailed), s)
	}
}

func TestTransitionTable_ScanOnlyInScanning(t *testing.T) {
	for _, s := range model.Stages {
		assert.Equal(t, s == model.StageScanning, Allowed(s, EvCodeAccepted), s)
		assert.Equal(t, s == model.StageScanning, Allowed(s, EvParseFailed), s)
	}
}

func TestTransitionTable_SubmissionResultOnlyInSubmitting(t *testing.T) {
	for _, s := range model.Stages {
		assert.Equal(t, s == model.StageSubmitting, Allowed(s, EvSubmissionSucceeded), s)
		assert.Equal(t, s == model.StageSubmitting, Allowed(s, EvSubmissionFailed), s)
	}
}

func TestTransitionTable_StaleEventIsReported(t *testing.T) {
	m := NewMachine()
	_, _, err := m.Fire(EvPresenceConfirmed)
	require.Error(t, err)
	assert.True(t, IsStale(err))
	assert.Equal(t, model.StageAwaitingPermissions, m.State())
}

func TestTransitionTable_CancelReturnsToListening(t *testing.T) {
	to, ok := Target(model.StageAuthenticating, EvBiometricCancelled)
	require.True(t, ok)
	assert.Equal(t, model.StageListeningForPresence, to)
	assert.False(t, Allowed(model.StageScanning, EvBiometricCancelled))
}
