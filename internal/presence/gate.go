// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package presence turns a continuous stream of "beacon heard" samples into a
// single presence confirmation per listening period.
package presence

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/ManuGH/classcheck/internal/log"
)

// ErrNoClassifier is returned by Start when the gate has no sample source.
var ErrNoClassifier = errors.New("presence: classifier is nil")

// Classifier produces boolean "beacon present" samples until ctx is done.
// The returned channel must be closed or abandoned once ctx is cancelled.
type Classifier interface {
	Listen(ctx context.Context) (<-chan bool, error)
}

// Gate emits at most one confirmation per listening period.
type Gate struct {
	classifier Classifier
	logger     zerolog.Logger

	mu     sync.Mutex
	active bool
	period uint64
	cancel context.CancelFunc
	done   chan struct{}
}

// NewGate wraps classifier.
func NewGate(classifier Classifier) *Gate {
	return &Gate{
		classifier: classifier,
		logger:     log.WithComponent("presence"),
	}
}

// Start opens a listening period. onConfirmed runs on the gate's goroutine on
// the first true sample and must not block. Calling Start while a period is
// active is a no-op.
func (g *Gate) Start(ctx context.Context, onConfirmed func()) error {
	if g.classifier == nil {
		return ErrNoClassifier
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if g.active {
		return nil
	}

	lctx, cancel := context.WithCancel(ctx)
	samples, err := g.classifier.Listen(lctx)
	if err != nil {
		cancel()
		return fmt.Errorf("presence: start listening: %w", err)
	}

	g.period++
	g.active = true
	g.cancel = cancel
	done := make(chan struct{})
	g.done = done

	period := g.period
	g.logger.Debug().
		Str(log.FieldEvent, "presence.listening_started").
		Uint64("period", period).
		Msg("listening for presence beacon")

	go g.consume(lctx, period, samples, onConfirmed, done)
	return nil
}

func (g *Gate) consume(ctx context.Context, period uint64, samples <-chan bool, onConfirmed func(), done chan struct{}) {
	defer close(done)
	for {
		select {
		case <-ctx.Done():
			return
		case heard, ok := <-samples:
			if !ok {
				return
			}
			if !heard {
				continue
			}
			g.confirm(period, onConfirmed)
			return
		}
	}
}

// confirm delivers the confirmation under the gate lock so that Stop cannot
// return while a delivery is in progress.
func (g *Gate) confirm(period uint64, onConfirmed func()) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.active || g.period != period {
		return
	}
	g.active = false
	g.cancel()

	g.logger.Info().
		Str(log.FieldEvent, "presence.confirmed").
		Uint64("period", period).
		Msg("presence beacon detected")
	if onConfirmed != nil {
		onConfirmed()
	}
}

// Stop ends the current listening period, if any, and waits for the
// consuming goroutine to exit. No confirmation is delivered after Stop returns.
func (g *Gate) Stop() {
	g.mu.Lock()
	done := g.done
	if g.active {
		g.active = false
		g.cancel()
		g.logger.Debug().
			Str(log.FieldEvent, "presence.listening_stopped").
			Uint64("period", g.period).
			Msg("stopped listening for presence beacon")
	}
	g.mu.Unlock()

	if done != nil {
		<-done
	}
}

// Active reports whether a listening period is open.
func (g *Gate) Active() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.active
}
