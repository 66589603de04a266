// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Command classcheckd runs the attendance verification daemon.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/ManuGH/classcheck/internal/config"
	"github.com/ManuGH/classcheck/internal/daemon"
	cclog "github.com/ManuGH/classcheck/internal/log"
	"github.com/ManuGH/classcheck/internal/version"
)

// EnvDataDir is where config.yaml is looked up when -config is not given.
const EnvDataDir = "CLASSCHECK_DATA"

// maskURL removes user info from a URL string for safe logging.
func maskURL(rawURL string) string {
	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return "invalid-url-redacted"
	}
	parsedURL.User = nil
	return parsedURL.String()
}

func resolveDefaultConfigPath() string {
	dataDir := strings.TrimSpace(config.ParseString(EnvDataDir, ""))
	if dataDir == "" {
		return ""
	}
	autoPath := filepath.Join(dataDir, "config.yaml")
	if _, err := os.Stat(autoPath); err == nil {
		return autoPath
	}
	return ""
}

func main() {
	if len(os.Args) > 1 && os.Args[1] == "config" {
		os.Exit(runConfigCLI(os.Args[2:]))
	}

	showVersion := flag.Bool("version", false, "print version and exit")
	configPath := flag.String("config", "", "path to config file (YAML)")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String())
		os.Exit(0)
	}

	// Safe defaults until config is loaded
	cclog.Configure(cclog.Config{
		Level:   "info",
		Service: "classcheck",
		Version: version.Version,
	})
	logger := cclog.WithComponent("daemon")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	effectiveConfigPath := strings.TrimSpace(*configPath)
	source := "file"
	if effectiveConfigPath == "" {
		effectiveConfigPath = resolveDefaultConfigPath()
		source = "file(auto)"
	}
	if effectiveConfigPath == "" {
		source = "env+defaults"
	}

	cfg, err := config.NewLoader(effectiveConfigPath, version.Version).Load()
	if err != nil {
		logger.Fatal().
			Err(err).
			Str("event", "config.load_failed").
			Str("config_path", effectiveConfigPath).
			Msg("failed to load configuration")
	}

	cclog.Configure(cclog.Config{
		Level:   cfg.LogLevel,
		Service: cfg.LogService,
		Version: cfg.Version,
	})
	logger = cclog.WithComponent("daemon")

	logger.Info().
		Str("event", "config.loaded").
		Str("source", source).
		Str("path", effectiveConfigPath).
		Msg("loaded configuration")

	logger.Info().
		Str("event", "startup").
		Str("version", version.Version).
		Str("commit", version.Commit).
		Str("build_date", version.Date).
		Str("addr", cfg.ListenAddr).
		Msg("starting classcheck")
	logger.Info().Msgf("→ Attendance service: %s (timeout %s)", maskURL(cfg.API.BaseURL), cfg.API.Timeout)
	logger.Info().Msgf("→ On parse failure: %s, on submission failure: %s", cfg.Scan.ParseFailure, cfg.Submission.OnFailure)
	if cfg.MetricsAddr != "" {
		logger.Info().Msgf("→ Metrics: %s", cfg.MetricsAddr)
	}
	if cfg.Telemetry.Enabled {
		logger.Info().Msgf("→ Tracing: %s via %s", cfg.Telemetry.Endpoint, cfg.Telemetry.Exporter)
	}

	app, _, err := daemon.Bootstrap(ctx, cfg)
	if err != nil {
		logger.Fatal().
			Err(err).
			Str("event", "startup.failed").
			Msg("failed to wire daemon")
	}

	if err := app.Run(ctx); err != nil {
		logger.Error().
			Err(err).
			Str("event", "daemon.failed").
			Msg("daemon stopped with error")
		os.Exit(1)
	}
	logger.Info().Str("event", "shutdown").Msg("classcheck stopped")
}
