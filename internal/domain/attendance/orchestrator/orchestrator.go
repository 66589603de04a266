// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package orchestrator drives one attendance verification: permissions,
// presence, biometric challenge, code scan and submission. All state lives
// on a single loop goroutine; producers only enqueue events.
package orchestrator

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"

	"github.com/ManuGH/classcheck/internal/domain/attendance/lifecycle"
	"github.com/ManuGH/classcheck/internal/domain/attendance/model"
	"github.com/ManuGH/classcheck/internal/log"
	"github.com/ManuGH/classcheck/internal/qr"
	"github.com/ManuGH/classcheck/internal/telemetry"
)

type inputKind string

const (
	inPermissions        inputKind = "permissions"
	inPresence           inputKind = "presence"
	inBiometricSucceeded inputKind = "biometric_succeeded"
	inBiometricFailed    inputKind = "biometric_failed"
	inBiometricCancelled inputKind = "biometric_cancelled"
	inCode               inputKind = "code"
	inSubmissionResult   inputKind = "submission_result"
	inRescan             inputKind = "rescan"
	inReset              inputKind = "reset"
)

type input struct {
	kind   inputKind
	reason string
	raw    string
	gen    uint64
	seq    uint64
	epoch  uint64
	period uint64
	err    error
}

// Orchestrator is the single writer of the verification session.
type Orchestrator struct {
	cfg     Config
	logger  zerolog.Logger
	tracer  trace.Tracer
	machine *lifecycle.Machine

	mu    sync.Mutex
	queue []input
	wake  chan struct{}

	running atomic.Bool
	stopped atomic.Bool
	runCtx  context.Context

	// Loop-owned state.
	session   model.VerificationSession
	burst     model.ScanBurst
	submitSeq uint64
	epoch     uint64
	period    uint64
	rescan    *time.Timer
	inflight  sync.WaitGroup

	snapshot atomic.Pointer[model.VerificationSession]
	window   atomic.Uint64

	changedMu sync.Mutex
	changed   chan struct{}
}

// New validates cfg and returns an orchestrator in AWAITING_PERMISSIONS.
func New(cfg Config) (*Orchestrator, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if cfg.Parse == nil {
		cfg.Parse = qr.ExtractSessionID
	}
	o := &Orchestrator{
		cfg:     cfg,
		logger:  log.WithComponent("orchestrator"),
		tracer:  telemetry.Tracer("classcheck/orchestrator"),
		machine: lifecycle.NewMachine(),
		wake:    make(chan struct{}, 1),
		changed: make(chan struct{}),
		runCtx:  context.Background(),
	}
	o.session = model.VerificationSession{
		Stage:     o.machine.State(),
		AttemptID: uuid.NewString(),
		UpdatedAt: time.Now(),
	}
	o.publish()
	return o, nil
}

// Run processes events until ctx is done. On exit it stops presence
// listening, cancels the rescan timer and waits for in-flight submissions.
func (o *Orchestrator) Run(ctx context.Context) error {
	if !o.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	o.runCtx = runCtx

	o.logger.Info().
		Str(log.FieldEvent, "orchestrator.started").
		Str(log.FieldAttemptID, o.session.AttemptID).
		Str(log.FieldStage, o.session.Stage.String()).
		Msg("attendance orchestrator running")

	for {
		o.drain()
		select {
		case <-ctx.Done():
			o.shutdown(cancel)
			return nil
		case <-o.wake:
		}
	}
}

func (o *Orchestrator) shutdown(cancel context.CancelFunc) {
	defer o.stopped.Store(true)
	o.cfg.Presence.Stop()
	o.stopRescan()
	cancel()
	o.inflight.Wait()
	o.logger.Info().
		Str(log.FieldEvent, "orchestrator.stopped").
		Str(log.FieldStage, o.session.Stage.String()).
		Msg("attendance orchestrator stopped")
}

func (o *Orchestrator) post(in input) {
	o.mu.Lock()
	o.queue = append(o.queue, in)
	o.mu.Unlock()
	select {
	case o.wake <- struct{}{}:
	default:
	}
}

func (o *Orchestrator) drain() {
	for {
		o.mu.Lock()
		batch := o.queue
		o.queue = nil
		o.mu.Unlock()
		if len(batch) == 0 {
			return
		}
		for _, in := range batch {
			o.handle(in)
			o.publish()
		}
	}
}

// OnPermissionsGranted reports that the platform granted camera and
// microphone access.
func (o *Orchestrator) OnPermissionsGranted() { o.post(input{kind: inPermissions}) }

// OnPresenceConfirmed reports a detected proximity beacon for the current
// listening period.
func (o *Orchestrator) OnPresenceConfirmed() { o.post(input{kind: inPresence}) }

// OnBiometricSucceeded answers the latest challenge positively.
func (o *Orchestrator) OnBiometricSucceeded() { o.post(input{kind: inBiometricSucceeded}) }

// OnBiometricFailed answers the latest challenge negatively.
func (o *Orchestrator) OnBiometricFailed(reason string) {
	o.post(input{kind: inBiometricFailed, reason: reason})
}

// OnBiometricCancelled reports that the user dismissed the prompt.
func (o *Orchestrator) OnBiometricCancelled() { o.post(input{kind: inBiometricCancelled}) }

// OnCodeScanned delivers scanned text for the current burst.
func (o *Orchestrator) OnCodeScanned(raw string) { o.post(input{kind: inCode, raw: raw}) }

// SubmitCode delivers scanned text recognized during burst generation. It is
// dropped if that burst is no longer current. Generation zero means the
// current burst.
func (o *Orchestrator) SubmitCode(generation uint64, raw string) {
	o.post(input{kind: inCode, raw: raw, gen: generation})
}

// OnSubmissionResult applies an externally obtained result to the current
// submission. A nil err is success.
func (o *Orchestrator) OnSubmissionResult(err error) {
	o.post(input{kind: inSubmissionResult, err: err})
}

// ResetState abandons the attempt and returns to AWAITING_PERMISSIONS.
func (o *Orchestrator) ResetState() { o.post(input{kind: inReset}) }

// Running reports whether the event loop is active.
func (o *Orchestrator) Running() bool {
	return o.running.Load() && !o.stopped.Load()
}

// Snapshot returns the last published session.
func (o *Orchestrator) Snapshot() model.VerificationSession {
	return *o.snapshot.Load()
}

// Stage returns the last published stage.
func (o *Orchestrator) Stage() model.Stage {
	return o.snapshot.Load().Stage
}

// ScanWindow reports the current burst generation and whether a code may
// still be accepted in it.
func (o *Orchestrator) ScanWindow() (uint64, bool) {
	w := o.window.Load()
	return w >> 1, w&1 == 1
}

// Changed returns a channel closed on the next published change.
func (o *Orchestrator) Changed() <-chan struct{} {
	o.changedMu.Lock()
	defer o.changedMu.Unlock()
	return o.changed
}

// WaitForStage blocks until the published stage equals stage or ctx is done.
func (o *Orchestrator) WaitForStage(ctx context.Context, stage model.Stage) (model.VerificationSession, error) {
	for {
		ch := o.Changed()
		snap := o.Snapshot()
		if snap.Stage == stage {
			return snap, nil
		}
		select {
		case <-ctx.Done():
			return snap, ctx.Err()
		case <-ch:
		}
	}
}

func (o *Orchestrator) publish() {
	snap := o.session
	o.snapshot.Store(&snap)

	w := o.burst.Generation << 1
	if o.session.Stage == model.StageScanning && !o.burst.AlreadyAccepted {
		w |= 1
	}
	o.window.Store(w)

	o.changedMu.Lock()
	close(o.changed)
	o.changed = make(chan struct{})
	o.changedMu.Unlock()
}
