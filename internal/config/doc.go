// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package config loads classcheck configuration.
//
// Precedence is defaults, then the YAML file (strict, unknown keys are
// fatal), then CLASSCHECK_* environment variables. The merged result is
// validated before use.
package config
