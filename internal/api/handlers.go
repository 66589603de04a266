// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/ManuGH/classcheck/internal/log"
	"github.com/ManuGH/classcheck/internal/scan"
)

const maxJSONBody = 4 << 10

// Biometric results accepted on /v1/biometric.
const (
	BiometricSucceeded = "succeeded"
	BiometricFailed    = "failed"
	BiometricCancelled = "cancelled"
)

type permissionsRequest struct {
	Granted bool `json:"granted"`
}

type presenceRequest struct {
	Present bool `json:"present"`
}

type biometricRequest struct {
	Result string `json:"result"`
	Reason string `json:"reason,omitempty"`
}

type acceptedResponse struct {
	Accepted bool   `json:"accepted"`
	Detail   string `json:"detail,omitempty"`
}

var frameSeq atomic.Uint64

func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxJSONBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handlePermissions(w http.ResponseWriter, r *http.Request) {
	var req permissionsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, ErrBadRequest, err.Error())
		return
	}
	if s.deps.Audit != nil {
		s.deps.Audit.Permissions(r, req.Granted)
	}
	if !req.Granted {
		writeJSON(w, http.StatusAccepted, acceptedResponse{Accepted: false, Detail: "permissions denied"})
		return
	}
	s.deps.Orchestrator.OnPermissionsGranted()
	writeJSON(w, http.StatusAccepted, acceptedResponse{Accepted: true})
}

func (s *Server) handlePresence(w http.ResponseWriter, r *http.Request) {
	var req presenceRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, ErrBadRequest, err.Error())
		return
	}
	if s.deps.Presence == nil {
		writeError(w, r, http.StatusServiceUnavailable, ErrUnavailable, "presence classifier not configured")
		return
	}
	ok := s.deps.Presence.Push(req.Present)
	resp := acceptedResponse{Accepted: ok}
	if !ok {
		resp.Detail = "presence gate not listening"
	}
	writeJSON(w, http.StatusAccepted, resp)
}

func (s *Server) handleBiometric(w http.ResponseWriter, r *http.Request) {
	var req biometricRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, ErrBadRequest, err.Error())
		return
	}
	switch req.Result {
	case BiometricSucceeded:
		s.deps.Orchestrator.OnBiometricSucceeded()
	case BiometricFailed:
		s.deps.Orchestrator.OnBiometricFailed(req.Reason)
	case BiometricCancelled:
		s.deps.Orchestrator.OnBiometricCancelled()
	default:
		writeError(w, r, http.StatusBadRequest, ErrBadRequest,
			fmt.Sprintf("result must be one of %s, %s, %s", BiometricSucceeded, BiometricFailed, BiometricCancelled))
		return
	}
	if s.deps.Audit != nil {
		s.deps.Audit.Biometric(r, req.Result, req.Reason)
	}
	if s.deps.Challenges != nil {
		s.deps.Challenges.Answered()
	}
	writeJSON(w, http.StatusAccepted, acceptedResponse{Accepted: true})
}

func (s *Server) handleChallenge(w http.ResponseWriter, _ *http.Request) {
	if s.deps.Challenges == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	req, ok := s.deps.Challenges.Pending()
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, req)
}

func (s *Server) handleFrame(w http.ResponseWriter, r *http.Request) {
	if s.deps.Frames == nil {
		writeError(w, r, http.StatusServiceUnavailable, ErrUnavailable, "scanner not configured")
		return
	}
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.deps.MaxFrameBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, r, http.StatusRequestEntityTooLarge, ErrPayloadTooLarge,
				fmt.Sprintf("frame exceeds %d bytes", tooLarge.Limit))
			return
		}
		writeError(w, r, http.StatusBadRequest, ErrBadRequest, "read frame body")
		return
	}
	if len(data) == 0 {
		writeError(w, r, http.StatusBadRequest, ErrBadRequest, "empty frame")
		return
	}

	ok := s.deps.Frames.Offer(scan.Frame{
		Seq:        frameSeq.Add(1),
		Data:       data,
		ReceivedAt: time.Now(),
	})
	resp := acceptedResponse{Accepted: ok}
	if !ok {
		resp.Detail = "frame dropped"
	}
	writeJSON(w, http.StatusAccepted, resp)
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	s.deps.Orchestrator.ResetState()
	if s.deps.Challenges != nil {
		s.deps.Challenges.Answered()
	}
	if s.deps.Audit != nil {
		s.deps.Audit.Reset(r)
	}
	log.WithComponentFromContext(r.Context(), "api").Info().
		Str(log.FieldEvent, "attendance.reset_requested").
		Msg("reset requested")
	writeJSON(w, http.StatusAccepted, acceptedResponse{Accepted: true})
}

func (s *Server) handleState(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.deps.Orchestrator.Snapshot())
}
