// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package orchestrator

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/ManuGH/classcheck/internal/domain/attendance/lifecycle"
	"github.com/ManuGH/classcheck/internal/domain/attendance/model"
	"github.com/ManuGH/classcheck/internal/domain/attendance/ports"
	"github.com/ManuGH/classcheck/internal/log"
	"github.com/ManuGH/classcheck/internal/metrics"
	"github.com/ManuGH/classcheck/internal/telemetry"
)

func (o *Orchestrator) handle(in input) {
	switch in.kind {
	case inPermissions:
		o.onPermissions()
	case inPresence:
		o.onPresence(in.period)
	case inBiometricSucceeded:
		o.onBiometricSucceeded()
	case inBiometricFailed:
		o.onBiometricFailed(in.reason)
	case inBiometricCancelled:
		o.onBiometricCancelled()
	case inCode:
		o.onCode(in.gen, in.raw)
	case inSubmissionResult:
		o.onSubmissionResult(in.seq, in.err)
	case inRescan:
		o.onRescan(in.epoch)
	case inReset:
		o.onReset()
	}
}

func (o *Orchestrator) onPermissions() {
	if !o.fire(lifecycle.EvPermissionsGranted, "") {
		return
	}
	o.startPresence()
}

// startPresence opens a new listening period. Confirmations are bound to
// the period that produced them.
func (o *Orchestrator) startPresence() {
	o.period++
	period := o.period
	err := o.cfg.Presence.Start(o.runCtx, func() {
		o.post(input{kind: inPresence, period: period})
	})
	if err == nil {
		return
	}
	o.logger.Error().Err(err).
		Str(log.FieldEvent, "presence.start_failed").
		Str(log.FieldAttemptID, o.session.AttemptID).
		Msg("could not start presence listening")
	o.session.LastError = err.Error()
	o.fire(lifecycle.EvPresenceFailed, err.Error())
}

func (o *Orchestrator) onPresence(period uint64) {
	if period != 0 && period != o.period {
		o.stale(string(lifecycle.EvPresenceConfirmed), "confirmation from an earlier listening period")
		return
	}
	if !o.fire(lifecycle.EvPresenceConfirmed, "") {
		return
	}
	o.cfg.Presence.Stop()

	ctx := log.ContextWithAttemptID(o.runCtx, o.session.AttemptID)
	if err := o.cfg.Biometric.RequestChallenge(ctx, o.session.AttemptID); err != nil {
		o.logger.Error().Err(err).
			Str(log.FieldEvent, "biometric.request_failed").
			Str(log.FieldAttemptID, o.session.AttemptID).
			Msg("could not request biometric challenge")
		o.onBiometricFailed("biometric challenge unavailable: " + err.Error())
	}
}

func (o *Orchestrator) onBiometricSucceeded() {
	if !o.fire(lifecycle.EvBiometricSucceeded, "") {
		return
	}
	o.cfg.Presence.Stop()
	o.stopRescan()
	o.openBurst()
}

func (o *Orchestrator) onBiometricFailed(reason string) {
	if reason == "" {
		reason = "biometric authentication failed"
	}
	if !o.fire(lifecycle.EvBiometricFailed, reason) {
		return
	}
	o.cfg.Presence.Stop()
	o.stopRescan()
	o.session.LastError = reason
}

func (o *Orchestrator) onBiometricCancelled() {
	if !o.fire(lifecycle.EvBiometricCancelled, "") {
		return
	}
	o.startPresence()
}

func (o *Orchestrator) onCode(gen uint64, raw string) {
	switch {
	case o.session.Stage != model.StageScanning:
		o.stale(string(lifecycle.EvCodeAccepted), "not scanning")
		return
	case o.burst.AlreadyAccepted:
		o.stale(string(lifecycle.EvCodeAccepted), "burst already accepted a code")
		return
	case gen != 0 && gen != o.burst.Generation:
		o.stale(string(lifecycle.EvCodeAccepted), "result from an earlier burst")
		return
	}

	sessionID, ok := o.cfg.Parse(raw)
	if !ok {
		if o.cfg.ParseFailure == ParseFailureFail {
			reason := "scanned code carries no session id"
			o.session.LastError = reason
			o.fire(lifecycle.EvParseFailed, reason)
			return
		}
		o.logger.Debug().
			Str(log.FieldEvent, "scan.unparsed").
			Str(log.FieldAttemptID, o.session.AttemptID).
			Int("length", len(raw)).
			Msg("scanned code carries no session id, still scanning")
		return
	}

	o.burst.AlreadyAccepted = true
	o.session.AcceptedSessionID = sessionID
	if !o.fire(lifecycle.EvCodeAccepted, "") {
		return
	}
	o.submit(sessionID)
}

func (o *Orchestrator) submit(sessionID string) {
	o.submitSeq++
	seq := o.submitSeq
	attemptID := o.session.AttemptID
	req := ports.SubmitRequest{Identity: o.cfg.Identity, SessionID: sessionID}

	o.logger.Info().
		Str(log.FieldEvent, "submission.started").
		Str(log.FieldAttemptID, attemptID).
		Str(log.FieldSessionID, sessionID).
		Uint64("seq", seq).
		Msg("submitting attendance")

	parent := log.ContextWithAttemptID(o.runCtx, attemptID)
	o.inflight.Add(1)
	go func() {
		defer o.inflight.Done()
		ctx, cancel := context.WithTimeout(parent, o.cfg.SubmitTimeout)
		err := o.cfg.Gateway.Submit(ctx, req)
		cancel()
		o.post(input{kind: inSubmissionResult, seq: seq, err: err})
	}()
}

func (o *Orchestrator) onSubmissionResult(seq uint64, err error) {
	if seq != 0 && seq != o.submitSeq {
		o.stale(string(lifecycle.EvSubmissionSucceeded), "result of a superseded submission")
		return
	}
	if err == nil {
		o.fire(lifecycle.EvSubmissionSucceeded, "")
		return
	}

	reason := ports.DiagnosticMessage(err)
	if !o.fire(lifecycle.EvSubmissionFailed, reason) {
		return
	}
	o.session.LastError = reason
	o.logger.Warn().Err(err).
		Str(log.FieldEvent, "submission.failed").
		Str(log.FieldAttemptID, o.session.AttemptID).
		Str(log.FieldSessionID, o.session.AcceptedSessionID).
		Str("policy", string(o.cfg.SubmissionFailure)).
		Msg("attendance submission failed")

	if o.cfg.SubmissionFailure == SubmissionFailureRescan {
		o.stopRescan()
		epoch := o.epoch
		o.rescan = time.AfterFunc(o.cfg.RescanDelay, func() {
			o.post(input{kind: inRescan, epoch: epoch})
		})
	}
}

func (o *Orchestrator) onRescan(epoch uint64) {
	if epoch != o.epoch {
		o.stale(string(lifecycle.EvRescan), "stage changed since the failure")
		return
	}
	o.stopRescan()
	if !o.fire(lifecycle.EvRescan, "") {
		return
	}
	o.openBurst()
}

func (o *Orchestrator) onReset() {
	o.cfg.Presence.Stop()
	o.stopRescan()

	o.session.AttemptID = uuid.NewString()
	o.session.AcceptedSessionID = ""
	o.session.LastError = ""
	o.burst = model.ScanBurst{Generation: o.burst.Generation + 1}
	o.submitSeq++
	o.fire(lifecycle.EvReset, "")

	o.logger.Info().
		Str(log.FieldEvent, "attempt.reset").
		Str(log.FieldAttemptID, o.session.AttemptID).
		Msg("verification attempt reset")
}

func (o *Orchestrator) openBurst() {
	o.burst.Open()
	o.session.AcceptedSessionID = ""
	o.session.LastError = ""
}

func (o *Orchestrator) stopRescan() {
	if o.rescan != nil {
		o.rescan.Stop()
		o.rescan = nil
	}
}

// fire applies ev atomically with its guard. It returns false, after
// logging, when ev is not valid in the current stage.
func (o *Orchestrator) fire(ev lifecycle.EventKind, reason string) bool {
	from, to, err := o.machine.Fire(ev)
	if err != nil {
		o.stale(string(ev), err.Error())
		return false
	}

	now := time.Now()
	o.epoch++
	o.session.Stage = to
	o.session.UpdatedAt = now
	metrics.RecordStageTransition(from.String(), to.String(), model.StageNames())

	_, span := o.tracer.Start(o.runCtx, "attendance.transition")
	span.SetAttributes(telemetry.TransitionAttributes(o.session.AttemptID, string(ev), to.String())...)
	span.End()

	o.logger.Info().
		Str(log.FieldEvent, "stage.transition").
		Str(log.FieldAttemptID, o.session.AttemptID).
		Str(log.FieldOldState, from.String()).
		Str(log.FieldNewState, to.String()).
		Str("trigger", string(ev)).
		Str("reason", reason).
		Msg("stage changed")

	if o.cfg.Bus != nil {
		o.cfg.Bus.TryPublish(model.TopicStage, model.StageChanged{
			From:      from,
			To:        to,
			Event:     string(ev),
			AttemptID: o.session.AttemptID,
			Reason:    reason,
			At:        now,
		})
	}
	return true
}

func (o *Orchestrator) stale(event, why string) {
	stage := o.session.Stage.String()
	metrics.IncStaleEvent(event, stage)
	o.logger.Debug().
		Str(log.FieldEvent, "event.stale").
		Str(log.FieldAttemptID, o.session.AttemptID).
		Str(log.FieldStage, stage).
		Str("input", event).
		Str("why", why).
		Msg("ignored event")
}
