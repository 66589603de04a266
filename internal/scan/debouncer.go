// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package scan bridges a continuous frame stream into single code
// acceptances: one recognition in flight at a time, newer frames dropped,
// results checked against the scanning window they started in.
package scan

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/ManuGH/classcheck/internal/log"
	"github.com/ManuGH/classcheck/internal/metrics"
)

// Window exposes the scanning window of the consumer. Generation identifies
// the current burst; open is true while a code may still be accepted.
type Window interface {
	ScanWindow() (generation uint64, open bool)
	// SubmitCode forwards a recognized payload captured during burst generation.
	SubmitCode(generation uint64, raw string)
}

// Stats are cumulative frame counters.
type Stats struct {
	Received        uint64
	Submitted       uint64
	DroppedBusy     uint64
	DroppedInactive uint64
	DroppedRate     uint64
	Forwarded       uint64
	Empty           uint64
	Stale           uint64
	Errors          uint64
}

// Config tunes the debouncer.
type Config struct {
	// RecognitionTimeout bounds one recognizer call. Zero means 5s.
	RecognitionTimeout time.Duration
	// FramesPerSecond caps recognition attempts. Zero disables the limit.
	FramesPerSecond float64
}

const defaultRecognitionTimeout = 5 * time.Second

// Debouncer runs recognition on at most one frame at a time.
type Debouncer struct {
	recognizer Recognizer
	window     Window
	timeout    time.Duration
	limiter    *rate.Limiter
	logger     zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	inFlight atomic.Bool
	wg       sync.WaitGroup

	mu     sync.Mutex
	closed bool
	seq      atomic.Uint64

	received        atomic.Uint64
	submitted       atomic.Uint64
	droppedBusy     atomic.Uint64
	droppedInactive atomic.Uint64
	droppedRate     atomic.Uint64
	forwarded       atomic.Uint64
	empty           atomic.Uint64
	stale           atomic.Uint64
	errs            atomic.Uint64
}

// NewDebouncer wires recognizer output into window.
func NewDebouncer(recognizer Recognizer, window Window, cfg Config) *Debouncer {
	timeout := cfg.RecognitionTimeout
	if timeout <= 0 {
		timeout = defaultRecognitionTimeout
	}
	ctx, cancel := context.WithCancel(context.Background())
	d := &Debouncer{
		recognizer: recognizer,
		window:     window,
		timeout:    timeout,
		logger:     log.WithComponent("scan"),
		ctx:        ctx,
		cancel:     cancel,
	}
	if cfg.FramesPerSecond > 0 {
		d.limiter = rate.NewLimiter(rate.Limit(cfg.FramesPerSecond), 1)
	}
	return d
}

// Offer submits f for recognition if the window is open and nothing is in
// flight; otherwise f is discarded. It never blocks and reports whether the
// frame was taken.
func (d *Debouncer) Offer(f Frame) bool {
	d.received.Add(1)
	if f.Seq == 0 {
		f.Seq = d.seq.Add(1)
	}
	if f.ReceivedAt.IsZero() {
		f.ReceivedAt = time.Now()
	}
	if d.ctx.Err() != nil {
		d.drop(&d.droppedInactive, "dropped_inactive", f)
		return false
	}

	gen, open := d.window.ScanWindow()
	if !open {
		d.drop(&d.droppedInactive, "dropped_inactive", f)
		return false
	}
	if !d.inFlight.CompareAndSwap(false, true) {
		d.drop(&d.droppedBusy, "dropped_busy", f)
		return false
	}
	if d.limiter != nil && !d.limiter.Allow() {
		d.inFlight.Store(false)
		d.drop(&d.droppedRate, "dropped_rate", f)
		return false
	}

	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		d.inFlight.Store(false)
		d.drop(&d.droppedInactive, "dropped_inactive", f)
		return false
	}
	d.wg.Add(1)
	d.mu.Unlock()

	d.submitted.Add(1)
	metrics.IncScanFrame("submitted")
	go d.recognize(gen, f)
	return true
}

func (d *Debouncer) drop(counter *atomic.Uint64, outcome string, f Frame) {
	n := counter.Add(1)
	metrics.IncScanFrame(outcome)
	if n%50 == 1 {
		d.logger.Debug().
			Str(log.FieldEvent, "scan.frame_dropped").
			Str("reason", outcome).
			Uint64(log.FieldFrameSeq, f.Seq).
			Uint64("count", n).
			Msg("frame discarded")
	}
}

func (d *Debouncer) recognize(gen uint64, f Frame) {
	defer d.wg.Done()
	defer d.inFlight.Store(false)

	ctx, cancel := context.WithTimeout(d.ctx, d.timeout)
	defer cancel()

	text, err := d.recognizer.Recognize(ctx, f)
	if err != nil {
		d.errs.Add(1)
		metrics.IncRecognitionResult("error")
		d.logger.Warn().
			Err(err).
			Str(log.FieldEvent, "scan.recognition_failed").
			Uint64(log.FieldFrameSeq, f.Seq).
			Msg("recognition failed, treating frame as empty")
		return
	}
	if strings.TrimSpace(text) == "" {
		d.empty.Add(1)
		metrics.IncRecognitionResult("empty")
		return
	}

	cur, open := d.window.ScanWindow()
	if !open || cur != gen || d.ctx.Err() != nil {
		d.stale.Add(1)
		metrics.IncRecognitionResult("stale")
		d.logger.Debug().
			Str(log.FieldEvent, "scan.result_stale").
			Uint64(log.FieldFrameSeq, f.Seq).
			Uint64(log.FieldBurst, gen).
			Msg("recognition finished after the scanning window moved on")
		return
	}

	d.forwarded.Add(1)
	metrics.IncRecognitionResult("forwarded")
	d.logger.Info().
		Str(log.FieldEvent, "scan.code_detected").
		Uint64(log.FieldFrameSeq, f.Seq).
		Uint64(log.FieldBurst, gen).
		Str("payload", truncate(text, 120)).
		Msg("code detected")
	d.window.SubmitCode(gen, text)
}

// Close stops accepting frames, cancels in-flight recognition contexts and
// waits for their goroutines. Results of cancelled work are discarded.
func (d *Debouncer) Close() {
	d.mu.Lock()
	d.closed = true
	d.cancel()
	d.mu.Unlock()
	d.wg.Wait()
}

// Busy reports whether a recognition is in flight.
func (d *Debouncer) Busy() bool {
	return d.inFlight.Load()
}

// Stats returns a snapshot of the frame counters.
func (d *Debouncer) Stats() Stats {
	return Stats{
		Received:        d.received.Load(),
		Submitted:       d.submitted.Load(),
		DroppedBusy:     d.droppedBusy.Load(),
		DroppedInactive: d.droppedInactive.Load(),
		DroppedRate:     d.droppedRate.Load(),
		Forwarded:       d.forwarded.Load(),
		Empty:           d.empty.Load(),
		Stale:           d.stale.Load(),
		Errors:          d.errs.Load(),
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
