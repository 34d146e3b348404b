package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(trainingTransitionsTotal, trainingSubmissionsTotal)
}

var (
	trainingTransitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "training_transitions_total",
			Help: "Training job status changes applied from provider callbacks.",
		},
		[]string{"status", "applied"},
	)

	trainingSubmissionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "training_submissions_total",
			Help: "Training submissions by outcome.",
		},
		[]string{"outcome"},
	)
)

func IncTrainingTransition(status string, applied bool) {
	a := "false"
	if applied {
		a = "true"
	}
	trainingTransitionsTotal.WithLabelValues(norm(status), a).Inc()
}

func IncTrainingSubmission(outcome string) {
	trainingSubmissionsTotal.WithLabelValues(norm(outcome)).Inc()
}
