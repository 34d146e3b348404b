package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		webhooksTotal,
		webhookSignatureRejects,
	)
}

var (
	webhooksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "webhooks_total",
			Help: "Webhook deliveries by source, event type and result (processed/duplicate/failed/ignored).",
		},
		[]string{"source", "type", "result"},
	)

	webhookSignatureRejects = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "webhook_signature_rejects_total",
			Help: "Webhook deliveries rejected by signature verification, by reason.",
		},
		[]string{"source", "reason"},
	)
)

func IncWebhook(source, eventType, result string) {
	webhooksTotal.WithLabelValues(norm(source), norm(eventType), norm(result)).Inc()
}

func IncSignatureReject(source, reason string) {
	webhookSignatureRejects.WithLabelValues(norm(source), norm(reason)).Inc()
}
