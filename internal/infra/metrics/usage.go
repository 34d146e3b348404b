package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		usageIncrementsTotal,
		quotaDenialsTotal,
		trialsProvisionedTotal,
		usageRolloversTotal,
	)
}

var (
	usageIncrementsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "usage_increments_total",
			Help: "Usage counter increments by action and outcome (ok/error).",
		},
		[]string{"action", "outcome"},
	)

	quotaDenialsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quota_denials_total",
			Help: "Quota checks that denied an action, by action and code.",
		},
		[]string{"action", "code"},
	)

	trialsProvisionedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "trials_provisioned_total",
			Help: "Free-plan trial subscriptions auto-provisioned on first use.",
		},
	)

	usageRolloversTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "usage_rollovers_total",
			Help: "Usage periods created by billing-period rollover.",
		},
	)
)

func IncUsage(action, outcome string) {
	usageIncrementsTotal.WithLabelValues(norm(action), norm(outcome)).Inc()
}

func IncQuotaDenied(action, code string) {
	quotaDenialsTotal.WithLabelValues(norm(action), norm(code)).Inc()
}

func IncTrialProvisioned() { trialsProvisionedTotal.Inc() }

func IncRollover() { usageRolloversTotal.Inc() }
