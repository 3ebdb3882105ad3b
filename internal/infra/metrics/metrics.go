package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	leadTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lead_transitions_total",
			Help: "Lead transition requests by event and outcome",
		},
		[]string{"event", "result"},
	)

	followUpsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "followups_sent_total",
			Help: "Follow-up messages dispatched by stage and outcome",
		},
		[]string{"stage", "result"},
	)

	sweeps = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "followup_sweeps_total",
			Help: "Completed follow-up sweeps by trigger",
		},
		[]string{"trigger"},
	)

	sweepsSkipped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "followup_sweeps_skipped_total",
			Help: "Timer ticks dropped because a sweep was still running",
		},
	)

	sweepDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "followup_sweep_duration_seconds",
			Help:    "Duration of follow-up sweeps in seconds",
			Buckets: []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300},
		},
	)

	publishErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "lead_event_publish_errors_total",
			Help: "Transition events that could not be published",
		},
	)
)

func RecordTransition(event, result string) {
	leadTransitions.WithLabelValues(event, result).Inc()
}

func RecordFollowUp(stage, result string) {
	followUpsSent.WithLabelValues(stage, result).Inc()
}

func RecordSweep(trigger string, seconds float64) {
	sweeps.WithLabelValues(trigger).Inc()
	sweepDuration.Observe(seconds)
}

func RecordSweepSkipped() {
	sweepsSkipped.Inc()
}

func RecordPublishError() {
	publishErrors.Inc()
}
