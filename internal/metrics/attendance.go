// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	StageTransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "classcheck_stage_transitions_total",
		Help: "Attendance stage transitions",
	}, []string{"from", "to"})

	StaleEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "classcheck_stale_events_total",
		Help: "Events dropped because the current stage does not accept them",
	}, []string{"event", "stage"})

	currentStage = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "classcheck_current_stage",
		Help: "Current attendance stage (active stage=1; others 0)",
	}, []string{"stage"})
)

// RecordStageTransition counts a transition and moves the current-stage gauge.
// stages lists every known stage so the gauge can be zeroed.
func RecordStageTransition(from, to string, stages []string) {
	StageTransitionsTotal.WithLabelValues(from, to).Inc()
	for _, s := range stages {
		value := 0.0
		if s == to {
			value = 1.0
		}
		currentStage.WithLabelValues(s).Set(value)
	}
}

// IncStaleEvent records an event that arrived for a stage the machine already left.
func IncStaleEvent(event, stage string) {
	StaleEventsTotal.WithLabelValues(event, stage).Inc()
}
