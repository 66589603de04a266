// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SubmissionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "classcheck_submissions_total",
		Help: "Attendance submissions by outcome",
	}, []string{"outcome"}) // outcome=ok|rejected|transport|circuit_open

	submissionDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "classcheck_submission_duration_seconds",
		Help:    "Round trip time of attendance submissions",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 20},
	}, []string{"outcome"})
)

// ObserveSubmission records a completed submission attempt.
func ObserveSubmission(outcome string, start time.Time) {
	SubmissionsTotal.WithLabelValues(outcome).Inc()
	submissionDuration.WithLabelValues(outcome).Observe(time.Since(start).Seconds())
}
