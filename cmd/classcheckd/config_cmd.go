// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ManuGH/classcheck/internal/config"
	"github.com/ManuGH/classcheck/internal/version"
)

func runConfigCLI(args []string) int {
	return runConfigCLIWith(args, os.Stdout, os.Stderr)
}

func runConfigCLIWith(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 || args[0] == "-h" || args[0] == "--help" || args[0] == "help" {
		printConfigUsage(stderr)
		return 0
	}

	switch args[0] {
	case "validate":
		return runConfigValidate(args[1:], stdout, stderr)
	case "dump":
		return runConfigDump(args[1:], stdout, stderr)
	default:
		fmt.Fprintf(stderr, "Unknown subcommand: %s\n\n", args[0])
		printConfigUsage(stderr)
		return 2
	}
}

func printConfigUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  classcheckd config validate [--file|-f config.yaml]")
	fmt.Fprintln(w, "  classcheckd config dump [--file|-f config.yaml]")
}

func configFlags(name string, args []string, stderr io.Writer) (string, bool) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)

	var file string
	fs.StringVar(&file, "file", "", "path to YAML configuration file")
	fs.StringVar(&file, "f", "", "path to YAML configuration file (shorthand)")
	if err := fs.Parse(args); err != nil {
		return "", false
	}

	path := strings.TrimSpace(file)
	if path == "" {
		path = resolveDefaultConfigPath()
	}
	return path, true
}

func runConfigValidate(args []string, stdout, stderr io.Writer) int {
	path, ok := configFlags("classcheckd config validate", args, stderr)
	if !ok {
		return 2
	}
	if path == "" {
		fmt.Fprintf(stderr, "Error: --file is required (no default config.yaml found in $%s)\n", EnvDataDir)
		return 2
	}

	if _, err := config.NewLoader(path, version.Version).Load(); err != nil {
		fmt.Fprintf(stderr, "Configuration error in %s:\n  %v\n", path, err)
		return 1
	}
	fmt.Fprintf(stdout, "%s is valid\n", path)
	return 0
}

// runConfigDump prints the effective configuration (defaults, file, env).
func runConfigDump(args []string, stdout, stderr io.Writer) int {
	path, ok := configFlags("classcheckd config dump", args, stderr)
	if !ok {
		return 2
	}

	cfg, err := config.NewLoader(path, version.Version).Load()
	if err != nil {
		fmt.Fprintf(stderr, "Configuration error: %v\n", err)
		return 1
	}
	if err := cfg.WriteYAML(stdout); err != nil {
		fmt.Fprintf(stderr, "Failed to encode YAML: %v\n", err)
		return 1
	}
	return 0
}
