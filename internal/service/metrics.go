package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	draftsStarted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_drafts_started_total",
		Help: "Order drafts started, by flow",
	}, []string{"flow"})

	stepTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_wizard_step_transitions_total",
		Help: "Accepted wizard cursor moves, by flow and direction",
	}, []string{"flow", "direction"})

	submissions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_submissions_total",
		Help: "Order submission attempts, by flow and outcome",
	}, []string{"flow", "outcome"})

	submitDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "storefront_submit_duration_seconds",
		Help:    "Time spent creating the order in the order service",
		Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10, 30},
	}, []string{"flow"})
)

// Submission outcomes.
const (
	outcomeSuccess    = "success"
	outcomeFailed     = "failed"
	outcomeInFlight   = "in_flight"
	outcomeCooldown   = "cooldown"
	outcomeIncomplete = "incomplete"
)
