// Package metrics defines the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	MatchesCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "rps_matches_created_total",
			Help: "Total matches created",
		},
	)
	MovesApplied = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rps_moves_applied_total",
			Help: "Total moves accepted, by slot",
		},
		[]string{"slot"},
	)
	MovesRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rps_moves_rejected_total",
			Help: "Total moves rejected, by error kind",
		},
		[]string{"kind"},
	)
	RoundsCompleted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rps_rounds_completed_total",
			Help: "Total rounds resolved, by outcome",
		},
		[]string{"outcome"},
	)
	MatchesFinished = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "rps_matches_finished_total",
			Help: "Total matches that reached the win threshold",
		},
	)
	MatchesRestarted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "rps_matches_restarted_total",
			Help: "Total restarts",
		},
	)
	ActiveMatches = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "rps_matches_in_memory",
			Help: "Matches currently held by the store",
		},
	)
)

func init() {
	prometheus.MustRegister(MatchesCreated)
	prometheus.MustRegister(MovesApplied)
	prometheus.MustRegister(MovesRejected)
	prometheus.MustRegister(RoundsCompleted)
	prometheus.MustRegister(MatchesFinished)
	prometheus.MustRegister(MatchesRestarted)
	prometheus.MustRegister(ActiveMatches)
}
