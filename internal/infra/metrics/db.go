package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(pgConns) }

// pgConns is refreshed on every scrape from pgxpool.Stat.
var pgConns = prometheus.NewGaugeVec(
	prometheus.GaugeOpts{
		Name: "postgres_pool_connections",
		Help: "Postgres pool connections by state.",
	},
	[]string{"state"}, // total|idle|acquired
)

func SetDBPoolStats(total, idle, acquired int32) {
	for state, n := range map[string]int32{"total": total, "idle": idle, "acquired": acquired} {
		pgConns.WithLabelValues(state).Set(float64(n))
	}
}
