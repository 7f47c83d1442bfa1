// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Quoting metrics
	QuotesComputed *prometheus.CounterVec
	QuotesEmpty    prometheus.Counter
	QuoteLatency   prometheus.Histogram

	// Node metrics
	NodeConnectAttempts *prometheus.CounterVec
	NodeFailovers       prometheus.Counter
	RPCCallLatency      *prometheus.HistogramVec
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "sora_wallet_engine"
	}

	return &Metrics{
		// Quoting metrics
		QuotesComputed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "router",
			Name:      "quotes_computed_total",
			Help:      "Total number of quotes computed by market",
		}, []string{"market"}),
		QuotesEmpty: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "router",
			Name:      "quotes_empty_total",
			Help:      "Total number of intents with no market liquidity",
		}),
		QuoteLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "router",
			Name:      "quote_latency_seconds",
			Help:      "Quote computation latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}),

		// Node metrics
		NodeConnectAttempts: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "node",
			Name:      "connect_attempts_total",
			Help:      "Total number of node connection attempts by outcome",
		}, []string{"outcome"}),
		NodeFailovers: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "node",
			Name:      "failovers_total",
			Help:      "Total number of automatic node failovers",
		}),
		RPCCallLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "node",
			Name:      "rpc_call_latency_seconds",
			Help:      "Node RPC call latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordQuote records one computed quote for the winning market.
func RecordQuote(market string, seconds float64) {
	DefaultMetrics.QuotesComputed.WithLabelValues(market).Inc()
	DefaultMetrics.QuoteLatency.Observe(seconds)
}

// RecordEmptyQuote counts an intent no market could serve.
func RecordEmptyQuote() {
	DefaultMetrics.QuotesEmpty.Inc()
}

// RecordNodeConnect records one connection attempt.
func RecordNodeConnect(outcome string) {
	DefaultMetrics.NodeConnectAttempts.WithLabelValues(outcome).Inc()
}

// RecordNodeFailover counts an automatic failover.
func RecordNodeFailover() {
	DefaultMetrics.NodeFailovers.Inc()
}

// RecordRPCLatency records RPC call latency.
func RecordRPCLatency(method string, seconds float64) {
	DefaultMetrics.RPCCallLatency.WithLabelValues(method).Observe(seconds)
}
