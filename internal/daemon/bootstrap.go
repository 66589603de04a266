// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package daemon

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ManuGH/classcheck/internal/api"
	"github.com/ManuGH/classcheck/internal/audit"
	"github.com/ManuGH/classcheck/internal/bus"
	"github.com/ManuGH/classcheck/internal/config"
	"github.com/ManuGH/classcheck/internal/domain/attendance/model"
	"github.com/ManuGH/classcheck/internal/domain/attendance/orchestrator"
	"github.com/ManuGH/classcheck/internal/health"
	"github.com/ManuGH/classcheck/internal/log"
	"github.com/ManuGH/classcheck/internal/presence"
	"github.com/ManuGH/classcheck/internal/scan"
	"github.com/ManuGH/classcheck/internal/submission"
	"github.com/ManuGH/classcheck/internal/telemetry"
)

// Components exposes what Bootstrap built, mainly for tests.
type Components struct {
	Orchestrator *orchestrator.Orchestrator
	Debouncer    *scan.Debouncer
	Classifier   *presence.ChannelClassifier
	Challenges   *api.ChallengeRelay
	Bus          *bus.MemoryBus
	Server       *api.Server
	Health       *health.Manager
}

// Bootstrap wires the daemon from a validated configuration.
func Bootstrap(ctx context.Context, cfg config.AppConfig) (*App, *Components, error) {
	logger := log.WithComponent("daemon")

	identity, err := model.NewIdentity(cfg.Identity.RollNo)
	if err != nil {
		return nil, nil, fmt.Errorf("identity: %w", err)
	}

	provider, err := telemetry.NewProvider(ctx, telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		ServiceName:    cfg.LogService,
		ServiceVersion: cfg.Version,
		Environment:    cfg.Telemetry.Environment,
		ExporterType:   cfg.Telemetry.Exporter,
		Endpoint:       cfg.Telemetry.Endpoint,
		SamplingRate:   cfg.Telemetry.SamplingRate,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("telemetry: %w", err)
	}

	gateway, err := submission.NewHTTPGateway(submission.Options{
		BaseURL:             cfg.API.BaseURL,
		Timeout:             cfg.API.Timeout,
		BreakerThreshold:    cfg.Breaker.Threshold,
		BreakerResetTimeout: cfg.Breaker.ResetTimeout,
	})
	if err != nil {
		_ = provider.Shutdown(ctx)
		return nil, nil, err
	}

	c := &Components{
		Bus:        bus.NewMemoryBus(),
		Classifier: presence.NewChannelClassifier(),
	}
	c.Challenges = api.NewChallengeRelay(c.Bus)

	c.Orchestrator, err = orchestrator.New(orchestrator.Config{
		Identity:          identity,
		Presence:          presence.NewGate(c.Classifier),
		Biometric:         c.Challenges,
		Gateway:           gateway,
		Bus:               c.Bus,
		ParseFailure:      orchestrator.ParseFailurePolicy(cfg.Scan.ParseFailure),
		SubmissionFailure: orchestrator.SubmissionFailurePolicy(cfg.Submission.OnFailure),
		RescanDelay:       cfg.Submission.RescanDelay,
		SubmitTimeout:     cfg.API.Timeout,
	})
	if err != nil {
		_ = provider.Shutdown(ctx)
		return nil, nil, err
	}

	c.Debouncer = scan.NewDebouncer(scan.TextRecognizer{}, c.Orchestrator, scan.Config{
		RecognitionTimeout: cfg.Scan.RecognitionTimeout,
		FramesPerSecond:    cfg.Scan.FramesPerSecond,
	})

	auditLog := audit.NewLogger()

	c.Health = health.NewManager(cfg.Version)
	c.Health.RegisterChecker(health.NewLoopChecker("orchestrator", c.Orchestrator.Running))
	c.Health.RegisterChecker(health.NewBreakerChecker("attendance_service", gateway.BreakerState))

	tracingService := ""
	if cfg.Telemetry.Enabled {
		tracingService = cfg.LogService
	}
	c.Server = api.New(api.Deps{
		Orchestrator:      c.Orchestrator,
		Frames:            c.Debouncer,
		Presence:          c.Classifier,
		Challenges:        c.Challenges,
		Bus:               c.Bus,
		Health:            c.Health,
		Audit:             auditLog,
		RequestsPerMinute: cfg.RateLimit.RequestsPerMinute,
		TracingService:    tracingService,
	})

	mgr, err := NewManager(DefaultServerConfig(cfg.ListenAddr), Deps{
		Logger:         logger,
		APIHandler:     c.Server.Handler(),
		MetricsHandler: promhttp.Handler(),
		MetricsAddr:    cfg.MetricsAddr,
	})
	if err != nil {
		c.Debouncer.Close()
		_ = provider.Shutdown(ctx)
		return nil, nil, err
	}
	// LIFO: the debouncer stops before spans are flushed.
	mgr.RegisterShutdownHook("telemetry", provider.Shutdown)
	mgr.RegisterShutdownHook("scan_debouncer", func(context.Context) error {
		c.Debouncer.Close()
		return nil
	})

	logger.Info().
		Str(log.FieldRollNo, identity.RollNo()).
		Str(log.FieldBaseURL, cfg.API.BaseURL).
		Str("parse_failure", cfg.Scan.ParseFailure).
		Str("submission_failure", cfg.Submission.OnFailure).
		Msg("attendance daemon wired")

	return NewApp(logger, mgr,
		NamedRunner{Name: "orchestrator", Runner: c.Orchestrator},
		NamedRunner{Name: "audit", Runner: audit.NewStageFollower(auditLog, c.Bus, identity.RollNo())},
	), c, nil
}
