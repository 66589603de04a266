// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package orchestrator

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ManuGH/classcheck/internal/bus"
	"github.com/ManuGH/classcheck/internal/domain/attendance/model"
	"github.com/ManuGH/classcheck/internal/domain/attendance/ports"
)

type fakePresence struct {
	mu       sync.Mutex
	active   bool
	starts   int
	stops    int
	startErr error
	confirm  func()
}

func (p *fakePresence) Start(_ context.Context, onConfirmed func()) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.startErr != nil {
		return p.startErr
	}
	p.starts++
	p.active = true
	p.confirm = onConfirmed
	return nil
}

func (p *fakePresence) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stops++
	p.active = false
}

// beacon simulates the first true sample of the current period.
func (p *fakePresence) beacon() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.active || p.confirm == nil {
		return false
	}
	p.active = false
	p.confirm()
	return true
}

// callback returns the confirmation function of the latest period.
func (p *fakePresence) callback() func() {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.confirm
}

func (p *fakePresence) isActive() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.active
}

func (p *fakePresence) startCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.starts
}

type fakeBiometric struct {
	mu       sync.Mutex
	requests []string
	err      error
}

func (b *fakeBiometric) RequestChallenge(_ context.Context, attemptID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.requests = append(b.requests, attemptID)
	return b.err
}

func (b *fakeBiometric) count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.requests)
}

type fakeGateway struct {
	mu      sync.Mutex
	calls   []ports.SubmitRequest
	result  func(ports.SubmitRequest) error
	release chan struct{}
}

func (g *fakeGateway) Submit(ctx context.Context, req ports.SubmitRequest) error {
	g.mu.Lock()
	g.calls = append(g.calls, req)
	result, release := g.result, g.release
	g.mu.Unlock()

	if release != nil {
		select {
		case <-release:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if result == nil {
		return nil
	}
	return result(req)
}

func (g *fakeGateway) requests() []ports.SubmitRequest {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]ports.SubmitRequest(nil), g.calls...)
}

type rejection string

func (r rejection) Error() string      { return "attendance service rejected: " + string(r) }
func (r rejection) Diagnostic() string { return string(r) }

// recordingBus captures stage changes synchronously.
type recordingBus struct {
	mu      sync.Mutex
	changes []model.StageChanged
}

func (b *recordingBus) Publish(_ context.Context, topic string, msg bus.Message) error {
	b.TryPublish(topic, msg)
	return nil
}

func (b *recordingBus) TryPublish(topic string, msg bus.Message) bool {
	if topic != model.TopicStage {
		return true
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.changes = append(b.changes, msg.(model.StageChanged))
	return true
}

func (b *recordingBus) Subscribe(context.Context, string) (bus.Subscriber, error) {
	return nil, errors.New("not supported")
}

func (b *recordingBus) transitions() []model.StageChanged {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]model.StageChanged(nil), b.changes...)
}

type harness struct {
	o         *Orchestrator
	presence  *fakePresence
	biometric *fakeBiometric
	gateway   *fakeGateway
	bus       *recordingBus
}

func newHarness(t *testing.T, mutate func(*Config)) *harness {
	t.Helper()
	id, err := model.NewIdentity("R-17")
	require.NoError(t, err)

	h := &harness{
		presence:  &fakePresence{},
		biometric: &fakeBiometric{},
		gateway:   &fakeGateway{},
		bus:       &recordingBus{},
	}
	cfg := Config{
		Identity:          id,
		Presence:          h.presence,
		Biometric:         h.biometric,
		Gateway:           h.gateway,
		Bus:               h.bus,
		SubmissionFailure: SubmissionFailureStay,
	}
	if mutate != nil {
		mutate(&cfg)
	}
	h.o, err = New(cfg)
	require.NoError(t, err)
	return h
}

// settle processes queued events without a running loop, waiting for
// in-flight submissions to report back.
func (h *harness) settle() {
	h.o.drain()
	h.o.inflight.Wait()
	h.o.drain()
}

// toScanning drives a fresh orchestrator to SCANNING.
func (h *harness) toScanning(t *testing.T) {
	t.Helper()
	h.o.OnPermissionsGranted()
	h.settle()
	require.True(t, h.presence.beacon())
	h.settle()
	h.o.OnBiometricSucceeded()
	h.settle()
	require.Equal(t, model.StageScanning, h.o.Stage())
}

func (h *harness) queued() int {
	h.o.mu.Lock()
	defer h.o.mu.Unlock()
	return len(h.o.queue)
}
