package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(
		imageCallsLatencyMs,
		imagesGeneratedTotal,
		promptBlocks,
		rehostFallbacks,
	)
}

var (
	imageCallsLatencyMs = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "image_calls_latency_ms",
			Help:    "Image generation call latency distribution in milliseconds.",
			Buckets: []float64{250, 500, 1000, 2000, 4000, 8000, 16000, 30000, 60000},
		},
		[]string{"provider", "success"},
	)

	imagesGeneratedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "images_generated_total",
			Help: "Images returned to users per provider.",
		},
		[]string{"provider"},
	)

	promptBlocks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "image_prompt_blocks_total",
			Help: "Generation requests rejected before the provider call, by reason.",
		},
		[]string{"reason"},
	)

	rehostFallbacks = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "image_rehost_fallbacks_total",
			Help: "Images served from the provider URL because re-hosting failed.",
		},
	)
)

func ObserveImageCall(provider string, elapsed time.Duration, images int, success bool) {
	imageCallsLatencyMs.WithLabelValues(norm(provider), strconv.FormatBool(success)).
		Observe(float64(elapsed.Milliseconds()))
	if success {
		imagesGeneratedTotal.WithLabelValues(norm(provider)).Add(float64(images))
	}
}

func PromptBlocked(reason string) {
	promptBlocks.WithLabelValues(norm(reason)).Inc()
}

func IncRehostFallback() {
	rehostFallbacks.Inc()
}
