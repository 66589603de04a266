// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package submission talks to the remote attendance service.
package submission

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"github.com/ManuGH/classcheck/internal/domain/attendance/ports"
	"github.com/ManuGH/classcheck/internal/log"
	"github.com/ManuGH/classcheck/internal/metrics"
	"github.com/ManuGH/classcheck/internal/resilience"
	"github.com/ManuGH/classcheck/internal/telemetry"
)

const (
	// DefaultTimeout bounds one submission end to end.
	DefaultTimeout = 20 * time.Second

	maxResponseBytes = 64 << 10
	tracerName       = "classcheck/submission"
)

// Options configure an HTTPGateway.
type Options struct {
	BaseURL string
	Timeout time.Duration

	// BreakerThreshold consecutive transport failures open the breaker.
	// Zero disables the breaker.
	BreakerThreshold    int
	BreakerResetTimeout time.Duration

	// HTTPClient overrides the default otelhttp-instrumented client.
	HTTPClient *http.Client
}

// HTTPGateway posts accepted session identifiers to the attendance service.
// It never retries.
type HTTPGateway struct {
	endpoint string
	timeout  time.Duration
	client   *http.Client
	breaker  *resilience.CircuitBreaker
	group    singleflight.Group
	logger   zerolog.Logger
	tracer   trace.Tracer
}

var _ ports.SubmissionGateway = (*HTTPGateway)(nil)

// NewHTTPGateway validates opts and builds a gateway.
func NewHTTPGateway(opts Options) (*HTTPGateway, error) {
	base := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	u, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("submission: invalid base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("submission: base url scheme must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return nil, errors.New("submission: base url has no host")
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		}
	}

	g := &HTTPGateway{
		endpoint: base + MarkPath,
		timeout:  timeout,
		client:   client,
		logger:   log.WithComponent("submission"),
		tracer:   telemetry.Tracer(tracerName),
	}
	if opts.BreakerThreshold > 0 {
		reset := opts.BreakerResetTimeout
		if reset <= 0 {
			reset = 30 * time.Second
		}
		g.breaker = resilience.NewCircuitBreaker("attendance_service", opts.BreakerThreshold, reset,
			resilience.WithFailurePredicate(IsTransport))
	}
	return g, nil
}

// Submit performs one remote write. Concurrent calls for the same roll
// number and session id share a single request.
func (g *HTTPGateway) Submit(ctx context.Context, req ports.SubmitRequest) error {
	rollNo := req.Identity.RollNo()
	sessionID := strings.TrimSpace(req.SessionID)
	if rollNo == "" || sessionID == "" {
		return &SubmitError{
			Kind:      KindRejected,
			Sentinel:  ErrMissingInput,
			SessionID: sessionID,
			Message:   "Missing roll number or session id",
		}
	}

	start := time.Now()
	ctx, span := g.tracer.Start(ctx, "attendance.submit",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(telemetry.SubmissionAttributes(sessionID, rollNo)...),
	)
	defer span.End()

	key := rollNo + "\x00" + sessionID
	_, err, shared := g.group.Do(key, func() (any, error) {
		if g.breaker == nil {
			return nil, g.post(ctx, rollNo, sessionID)
		}
		return nil, g.breaker.Execute(func() error {
			return g.post(ctx, rollNo, sessionID)
		})
	})
	if errors.Is(err, resilience.ErrCircuitOpen) && !IsTransport(err) {
		err = transport(ErrTransport, sessionID, 0, err)
	}

	outcome := outcomeOf(err)
	metrics.ObserveSubmission(outcome, start)
	span.SetAttributes(attribute.String(telemetry.SubmissionOutcomeKey, outcome))

	logger := g.logger.With().
		Str(log.FieldSessionID, sessionID).
		Str(log.FieldRollNo, rollNo).
		Bool("shared", shared).
		Dur("duration", time.Since(start)).
		Logger()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, outcome)
		span.SetAttributes(telemetry.ErrorAttributes(outcome)...)
		logger.Warn().Err(err).Str(log.FieldEvent, "submission.failed").Str("outcome", outcome).Msg("attendance submission failed")
		return err
	}
	span.SetStatus(codes.Ok, "")
	logger.Info().Str(log.FieldEvent, "submission.succeeded").Msg("attendance marked")
	return nil
}

func (g *HTTPGateway) post(ctx context.Context, rollNo, sessionID string) error {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	body, err := json.Marshal(MarkRequest{RollNo: rollNo, SessionID: sessionID})
	if err != nil {
		return transport(ErrBadResponse, sessionID, 0, err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.endpoint, bytes.NewReader(body))
	if err != nil {
		return transport(ErrTransport, sessionID, 0, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	g.logger.Debug().
		Str(log.FieldEvent, "submission.request").
		Str("url", maskURL(g.endpoint)).
		Str(log.FieldSessionID, sessionID).
		Msg("POST attendance")

	resp, err := g.client.Do(httpReq)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return transport(ErrTimeout, sessionID, 0, err)
		}
		return transport(ErrTransport, sessionID, 0, err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return transport(ErrTransport, sessionID, resp.StatusCode, err)
	}
	g.logger.Debug().
		Str(log.FieldEvent, "submission.response").
		Int("status", resp.StatusCode).
		Int("bytes", len(raw)).
		Msg("attendance response")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return transport(ErrTransport, sessionID, resp.StatusCode, fmt.Errorf("unexpected status %s", resp.Status))
	}

	var out MarkResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return transport(ErrBadResponse, sessionID, resp.StatusCode, err)
	}
	if !out.Success {
		msg := ""
		if out.Message != nil {
			msg = *out.Message
		}
		return rejected(sessionID, msg)
	}
	return nil
}

// BreakerState reports the circuit breaker state. ok is false when the
// breaker is disabled.
func (g *HTTPGateway) BreakerState() (state resilience.State, ok bool) {
	if g.breaker == nil {
		return resilience.StateClosed, false
	}
	return g.breaker.State(), true
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, resilience.ErrCircuitOpen):
		return "circuit_open"
	case IsTransport(err):
		return "transport"
	default:
		return "rejected"
	}
}

// maskURL drops credentials and the query string.
func maskURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "invalid-url"
	}
	u.User = nil
	u.RawQuery = ""
	return u.String()
}
