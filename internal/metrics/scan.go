// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ScanFramesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "classcheck_scan_frames_total",
		Help: "Camera frames offered to the scan debouncer by outcome",
	}, []string{"outcome"}) // outcome=submitted|dropped_busy|dropped_inactive|dropped_rate

	RecognitionResultsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "classcheck_recognition_results_total",
		Help: "Recognizer completions by result",
	}, []string{"result"}) // result=forwarded|empty|error|stale
)

// IncScanFrame records the fate of one offered frame.
func IncScanFrame(outcome string) {
	ScanFramesTotal.WithLabelValues(outcome).Inc()
}

// IncRecognitionResult records one recognizer completion.
func IncRecognitionResult(result string) {
	RecognitionResultsTotal.WithLabelValues(result).Inc()
}
