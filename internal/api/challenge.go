// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package api

import (
	"context"
	"sync"
	"time"

	"github.com/ManuGH/classcheck/internal/bus"
	"github.com/ManuGH/classcheck/internal/domain/attendance/model"
	"github.com/ManuGH/classcheck/internal/domain/attendance/ports"
	"github.com/ManuGH/classcheck/internal/log"
)

// ChallengeRelay forwards biometric challenge requests to the client: it
// publishes model.ChallengeRequested on the bus and remembers the pending
// one for clients that poll. The client answers on /v1/biometric.
type ChallengeRelay struct {
	bus bus.Bus

	mu      sync.Mutex
	pending *model.ChallengeRequested
}

var _ ports.BiometricAuthenticator = (*ChallengeRelay)(nil)

func NewChallengeRelay(b bus.Bus) *ChallengeRelay {
	return &ChallengeRelay{bus: b}
}

// RequestChallenge never blocks.
func (c *ChallengeRelay) RequestChallenge(ctx context.Context, attemptID string) error {
	req := model.ChallengeRequested{AttemptID: attemptID, At: time.Now()}

	c.mu.Lock()
	c.pending = &req
	c.mu.Unlock()

	delivered := false
	if c.bus != nil {
		delivered = c.bus.TryPublish(model.TopicChallenge, req)
	}
	log.WithComponentFromContext(ctx, "biometric").Info().
		Str(log.FieldEvent, "biometric.challenge_requested").
		Str(log.FieldAttemptID, attemptID).
		Bool("delivered", delivered).
		Msg("biometric challenge requested")
	return nil
}

// Pending returns the unanswered challenge, if any.
func (c *ChallengeRelay) Pending() (model.ChallengeRequested, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pending == nil {
		return model.ChallengeRequested{}, false
	}
	return *c.pending, true
}

// Answered clears the pending challenge.
func (c *ChallengeRelay) Answered() {
	c.mu.Lock()
	c.pending = nil
	c.mu.Unlock()
}
