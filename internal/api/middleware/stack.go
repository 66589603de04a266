// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package middleware

import (
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/ManuGH/classcheck/internal/log"
)

// StackConfig configures the ingress middleware stack.
type StackConfig struct {
	EnableSecurityHeaders bool
	EnableMetrics         bool
	TracingService        string // empty disables tracing
	EnableLogging         bool
}

// NewRouter constructs a chi router with the middleware stack applied.
func NewRouter(cfg StackConfig) *chi.Mux {
	r := chi.NewRouter()
	ApplyStack(r, cfg)
	return r
}

// ApplyStack applies the middleware stack to r, outermost first.
func ApplyStack(r chi.Router, cfg StackConfig) {
	r.Use(chimw.Recoverer)
	if cfg.EnableLogging {
		// Sets X-Request-ID, so it runs before anything that logs.
		r.Use(log.Middleware())
	}
	if cfg.EnableSecurityHeaders {
		r.Use(SecurityHeaders())
	}
	if cfg.EnableMetrics {
		r.Use(Metrics())
	}
	if cfg.TracingService != "" {
		r.Use(Tracing(cfg.TracingService))
	}
}
