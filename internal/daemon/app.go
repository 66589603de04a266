// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package daemon

import (
	"context"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Runner is a long-lived loop stopped through its context.
type Runner interface {
	Run(ctx context.Context) error
}

// NamedRunner labels a Runner for logs.
type NamedRunner struct {
	Name string
	Runner
}

// App owns the runtime lifecycle: the orchestrator loop, its followers and
// the servers managed by Manager.
type App struct {
	logger  zerolog.Logger
	manager Manager
	runners []NamedRunner
}

// NewApp creates a new App.
func NewApp(logger zerolog.Logger, manager Manager, runners ...NamedRunner) *App {
	return &App{
		logger:  logger,
		manager: manager,
		runners: runners,
	}
}

// Run blocks until ctx is cancelled or a fatal error occurs. Any runner or
// the manager failing stops the rest.
func (a *App) Run(ctx context.Context) error {
	if a.manager == nil {
		return ErrMissingManager
	}
	if len(a.runners) == 0 {
		return ErrMissingOrchestrator
	}
	for _, r := range a.runners {
		if r.Runner == nil {
			return ErrMissingOrchestrator
		}
	}

	g, ctx := errgroup.WithContext(ctx)

	for _, r := range a.runners {
		g.Go(func() error {
			err := r.Run(ctx)
			if err != nil {
				a.logger.Error().Err(err).
					Str("event", "runner.failed").
					Str("runner", r.Name).
					Msg("runner stopped with error")
			}
			return err
		})
	}

	g.Go(func() error {
		return a.manager.Start(ctx)
	})

	return g.Wait()
}
