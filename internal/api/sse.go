// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/ManuGH/classcheck/internal/bus"
	"github.com/ManuGH/classcheck/internal/domain/attendance/model"
)

// handleStream serves a text/event-stream of "state", "stage" and
// "challenge" events. The first event is always the current snapshot.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, r, http.StatusInternalServerError, ErrStreamingBlocked, "response writer cannot flush")
		return
	}
	if s.deps.Bus == nil {
		writeError(w, r, http.StatusServiceUnavailable, ErrUnavailable, "event bus not configured")
		return
	}

	ctx := r.Context()
	stages, err := s.deps.Bus.Subscribe(ctx, model.TopicStage)
	if err != nil {
		writeError(w, r, http.StatusServiceUnavailable, ErrUnavailable, err.Error())
		return
	}
	defer func() { _ = stages.Close() }()
	challenges, err := s.deps.Bus.Subscribe(ctx, model.TopicChallenge)
	if err != nil {
		writeError(w, r, http.StatusServiceUnavailable, ErrUnavailable, err.Error())
		return
	}
	defer func() { _ = challenges.Close() }()

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-store")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	if err := writeEvent(w, "state", s.deps.Orchestrator.Snapshot()); err != nil {
		return
	}
	flusher.Flush()

	heartbeat := time.NewTicker(s.deps.Heartbeat)
	defer heartbeat.Stop()

	for {
		var err error
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-stages.C():
			if !ok {
				return
			}
			err = writeEvent(w, "stage", msg)
		case msg, ok := <-challenges.C():
			if !ok {
				return
			}
			err = writeEvent(w, "challenge", msg)
		case <-heartbeat.C:
			_, err = fmt.Fprint(w, ": ping\n\n")
		}
		if err != nil {
			s.logger.Debug().Err(err).Msg("state stream closed")
			return
		}
		flusher.Flush()
	}
}

func writeEvent(w http.ResponseWriter, name string, v bus.Message) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s event: %w", name, err)
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", name, data)
	return err
}
