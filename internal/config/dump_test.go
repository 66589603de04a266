// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"bytes"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func TestWriteYAMLRoundTripsThroughLoader(t *testing.T) {
	want := Defaults()
	want.Identity.RollNo = "21CS042"
	want.API.BaseURL = "https://attendance.example.edu"
	want.Submission.OnFailure = "stay"
	want.Scan.FramesPerSecond = 4

	var buf bytes.Buffer
	require.NoError(t, want.WriteYAML(&buf))

	fc, err := parseFile(buf.Bytes())
	require.NoError(t, err)

	got := Defaults()
	got.Scan.FramesPerSecond = 0
	got.Breaker.Threshold = 0
	require.NoError(t, mergeFileConfig(&got, fc))

	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("config mismatch (-want +got):\n%s", diff)
	}
}
