// Package metrics exposes transbot's Prometheus metrics. All series live in
// a dedicated registry so tests and the CLI can import the package freely.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds every transbot metric plus the Go runtime collectors.
var Registry = prometheus.NewRegistry()

var factory = promauto.With(Registry)

func init() {
	Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
}

// --- Pre-defined metrics used across the application ---

var (
	MessagesTotal = factory.NewCounterVec(prometheus.CounterOpts{
		Name: "transbot_messages_total",
		Help: "Inbound messages received, by channel and kind",
	}, []string{"channel", "kind"})

	RelayDecisions = factory.NewCounterVec(prometheus.CounterOpts{
		Name: "transbot_relay_decisions_total",
		Help: "Auto-relay outcomes by decision",
	}, []string{"decision"})

	TranslationsTotal = factory.NewCounterVec(prometheus.CounterOpts{
		Name: "transbot_translations_total",
		Help: "Translation provider calls by path (auto, command) and result (ok, error)",
	}, []string{"path", "result"})

	TranslationLatency = factory.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "transbot_translation_latency_seconds",
		Help:    "Translation provider latency in seconds",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
	}, []string{"provider"})

	DeliveryFailures = factory.NewCounterVec(prometheus.CounterOpts{
		Name: "transbot_delivery_failures_total",
		Help: "Replies or command responses the chat platform rejected",
	}, []string{"channel"})

	DroppedMessages = factory.NewCounterVec(prometheus.CounterOpts{
		Name: "transbot_dropped_messages_total",
		Help: "Inbound messages dropped because the relay queue stayed full or was closed",
	}, []string{"channel"})

	InflightMessages = factory.NewGauge(prometheus.GaugeOpts{
		Name: "transbot_inflight_messages",
		Help: "Messages currently being handled by the relay loop",
	})
)

// ObserveTranslation records the latency of one provider call.
func ObserveTranslation(provider string, d time.Duration) {
	TranslationLatency.WithLabelValues(provider).Observe(d.Seconds())
}

// Handler renders the registry in Prometheus exposition format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{Registry: Registry})
}
