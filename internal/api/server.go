// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package api exposes the attendance orchestrator over HTTP: event
// ingestion for the platform adapters and an observable state stream.
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/ManuGH/classcheck/internal/api/middleware"
	"github.com/ManuGH/classcheck/internal/audit"
	"github.com/ManuGH/classcheck/internal/bus"
	"github.com/ManuGH/classcheck/internal/domain/attendance/model"
	"github.com/ManuGH/classcheck/internal/health"
	"github.com/ManuGH/classcheck/internal/log"
	"github.com/ManuGH/classcheck/internal/scan"
)

const (
	defaultMaxFrameBytes = 1 << 20
	defaultHeartbeat     = 15 * time.Second
)

// Orchestrator is the subset of the attendance orchestrator driven by HTTP.
type Orchestrator interface {
	OnPermissionsGranted()
	OnBiometricSucceeded()
	OnBiometricFailed(reason string)
	OnBiometricCancelled()
	ResetState()
	Snapshot() model.VerificationSession
}

// FrameSink accepts camera frames.
type FrameSink interface {
	Offer(f scan.Frame) bool
}

// PresenceSink accepts classifier samples.
type PresenceSink interface {
	Push(heard bool) bool
}

// Deps wires the server.
type Deps struct {
	Orchestrator Orchestrator
	Frames       FrameSink
	Presence     PresenceSink
	Challenges   *ChallengeRelay
	Bus          bus.Bus
	// Health serves /healthz and /readyz. Without it /healthz answers a
	// static "ok" and /readyz is not routed.
	Health *health.Manager
	// Audit records permission, biometric and reset requests. Optional.
	Audit *audit.Logger

	// RequestsPerMinute bounds /v1/presence and /v1/frames per client.
	RequestsPerMinute int
	TracingService    string
	MaxFrameBytes     int64
	Heartbeat         time.Duration
}

// Server is the control API.
type Server struct {
	deps   Deps
	logger zerolog.Logger
	router *chi.Mux
}

// New builds the router.
func New(deps Deps) *Server {
	if deps.MaxFrameBytes <= 0 {
		deps.MaxFrameBytes = defaultMaxFrameBytes
	}
	if deps.Heartbeat <= 0 {
		deps.Heartbeat = defaultHeartbeat
	}
	s := &Server{
		deps:   deps,
		logger: log.WithComponent("api"),
	}
	s.router = s.routes()
	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() *chi.Mux {
	r := middleware.NewRouter(middleware.StackConfig{
		EnableSecurityHeaders: true,
		EnableMetrics:         true,
		TracingService:        s.deps.TracingService,
		EnableLogging:         true,
	})

	if s.deps.Health != nil {
		r.Get("/healthz", s.deps.Health.ServeHealth)
		r.Get("/readyz", s.deps.Health.ServeReady)
	} else {
		r.Get("/healthz", s.handleHealth)
	}
	r.Route("/v1", func(r chi.Router) {
		r.Post("/permissions", s.handlePermissions)
		r.Post("/biometric", s.handleBiometric)
		r.Get("/challenge", s.handleChallenge)
		r.Post("/reset", s.handleReset)
		r.Get("/state", s.handleState)
		r.Get("/state/stream", s.handleStream)

		r.Group(func(r chi.Router) {
			r.Use(middleware.IngestRateLimit(s.deps.RequestsPerMinute))
			r.Post("/presence", s.handlePresence)
			r.Post("/frames", s.handleFrame)
		})
	})
	return r
}
