// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package health

import (
	"context"

	"github.com/ManuGH/classcheck/internal/resilience"
)

// FuncChecker adapts a function to Checker.
type FuncChecker struct {
	name string
	fn   func(ctx context.Context) CheckResult
}

func NewFuncChecker(name string, fn func(ctx context.Context) CheckResult) *FuncChecker {
	return &FuncChecker{name: name, fn: fn}
}

func (c *FuncChecker) Name() string { return c.name }

func (c *FuncChecker) Check(ctx context.Context) CheckResult { return c.fn(ctx) }

// NewLoopChecker reports unhealthy while running returns false.
func NewLoopChecker(name string, running func() bool) *FuncChecker {
	return NewFuncChecker(name, func(context.Context) CheckResult {
		if running() {
			return CheckResult{Status: StatusHealthy, Message: "event loop running"}
		}
		return CheckResult{Status: StatusUnhealthy, Error: "event loop not running"}
	})
}

// NewBreakerChecker maps a circuit breaker to a status: open is degraded,
// since submissions fail fast but the daemon still serves its state.
func NewBreakerChecker(name string, state func() (resilience.State, bool)) *FuncChecker {
	return NewFuncChecker(name, func(context.Context) CheckResult {
		s, ok := state()
		switch {
		case !ok:
			return CheckResult{Status: StatusHealthy, Message: "circuit breaker disabled"}
		case s == resilience.StateOpen:
			return CheckResult{Status: StatusDegraded, Message: "circuit breaker open"}
		default:
			return CheckResult{Status: StatusHealthy, Message: "circuit breaker " + string(s)}
		}
	})
}
