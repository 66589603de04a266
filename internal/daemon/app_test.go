// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package daemon

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/classcheck/internal/log"
)

type runnerFunc func(ctx context.Context) error

func (f runnerFunc) Run(ctx context.Context) error { return f(ctx) }

func newTestManager(t *testing.T) (Manager, string) {
	t.Helper()
	addr := reserveListenAddr(t)
	mgr, err := NewManager(testServerConfig(addr), Deps{
		Logger:     log.WithComponent("test"),
		APIHandler: http.NotFoundHandler(),
	})
	require.NoError(t, err)
	return mgr, addr
}

func TestApp_RequiresCollaborators(t *testing.T) {
	mgr, _ := newTestManager(t)
	assert.ErrorIs(t, NewApp(log.WithComponent("test"), nil, NamedRunner{"loop", runnerFunc(nil)}).Run(context.Background()), ErrMissingManager)
	assert.ErrorIs(t, NewApp(log.WithComponent("test"), mgr).Run(context.Background()), ErrMissingOrchestrator)
	assert.ErrorIs(t, NewApp(log.WithComponent("test"), mgr, NamedRunner{Name: "nil"}).Run(context.Background()), ErrMissingOrchestrator)
}

func TestApp_RunnerFailureStopsServers(t *testing.T) {
	mgr, addr := newTestManager(t)
	boom := errors.New("loop failed")
	started := make(chan struct{})

	idleStopped := make(chan struct{})
	app := NewApp(log.WithComponent("test"), mgr,
		NamedRunner{"failing", runnerFunc(func(ctx context.Context) error {
			close(started)
			if err := waitForListen(addr, 2*time.Second); err != nil {
				return err
			}
			return boom
		})},
		NamedRunner{"idle", runnerFunc(func(ctx context.Context) error {
			<-ctx.Done()
			close(idleStopped)
			return nil
		})},
	)

	done := make(chan error, 1)
	go func() { done <- app.Run(context.Background()) }()
	<-started

	select {
	case err := <-done:
		assert.ErrorIs(t, err, boom)
	case <-time.After(5 * time.Second):
		t.Fatal("app did not stop after runner failure")
	}
	<-idleStopped
}

func TestApp_CancelStopsEverything(t *testing.T) {
	mgr, addr := newTestManager(t)
	runnerStopped := make(chan struct{})

	app := NewApp(log.WithComponent("test"), mgr, NamedRunner{"loop", runnerFunc(func(ctx context.Context) error {
		<-ctx.Done()
		close(runnerStopped)
		return nil
	})})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.Run(ctx) }()
	require.NoError(t, waitForListen(addr, 2*time.Second))

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("app did not stop")
	}
	<-runnerStopped
}
