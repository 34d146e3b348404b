package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
)

func init() {
	register(
		paymentsTotal,
		paymentsRevenueTotal,
		subscriptionEventsTotal,
	)
}

var (
	paymentsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payments_total",
			Help: "Payment transactions reconciled, by status.",
		},
		[]string{"status"},
	)

	paymentsRevenueTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payments_revenue_total",
			Help: "The total monetary value of successful payments, labeled by currency.",
		},
		[]string{"currency"},
	)

	subscriptionEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "subscription_events_total",
			Help: "Subscription transitions applied, by resulting status and whether a row was created.",
		},
		[]string{"status", "created"},
	)
)

func IncPayment(status string) {
	paymentsTotal.WithLabelValues(norm(status)).Inc()
}

func AddPaymentRevenue(currency string, amount decimal.Decimal) {
	paymentsRevenueTotal.WithLabelValues(norm(currency)).Add(amount.InexactFloat64())
}

func IncSubscriptionEvent(status string, created bool) {
	c := "false"
	if created {
		c = "true"
	}
	subscriptionEventsTotal.WithLabelValues(norm(status), c).Inc()
}
