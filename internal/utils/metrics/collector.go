// internal/utils/metrics/collector.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const namespace = "solana_bot"

// Collector owns the bot metrics on a private registry, so several collectors
// can coexist in one process.
type Collector struct {
	registry *prometheus.Registry

	commands            *prometheus.CounterVec
	callbacks           *prometheus.CounterVec
	transactionCounter  *prometheus.CounterVec
	transactionDuration *prometheus.HistogramVec
	rpcLatency          *prometheus.HistogramVec
	alertsTriggered     prometheus.Counter
	jobRuns             *prometheus.CounterVec
	restarts            prometheus.Counter
	activeSessions      prometheus.Gauge
}

// NewCollector creates and registers all metrics.
func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		commands: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "commands_total",
				Help:      "Chat commands handled, by command and outcome",
			},
			[]string{"command", "status"},
		),
		callbacks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "callbacks_total",
				Help:      "Inline keyboard callbacks handled",
			},
			[]string{"callback", "status"},
		),
		transactionCounter: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "transactions_total",
				Help:      "Total number of transactions submitted",
			},
			[]string{"status", "type"},
		),
		transactionDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "transaction_duration_seconds",
				Help:      "Transaction submission duration in seconds",
				Buckets:   prometheus.ExponentialBuckets(0.01, 2, 10),
			},
			[]string{"type"},
		),
		rpcLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "rpc_latency_seconds",
				Help:      "RPC request latency in seconds",
				Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10),
			},
			[]string{"method", "endpoint"},
		),
		alertsTriggered: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "price_alerts_triggered_total",
			Help:      "Price alerts delivered to users",
		}),
		jobRuns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "scheduler_job_runs_total",
				Help:      "Background job runs by job and outcome",
			},
			[]string{"job", "status"},
		),
		restarts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "restarts_total",
			Help:      "Bot restarts performed by the supervisor",
		}),
		activeSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions",
			Help:      "User sessions held in memory",
		}),
	}

	c.registry.MustRegister(
		c.commands,
		c.callbacks,
		c.transactionCounter,
		c.transactionDuration,
		c.rpcLatency,
		c.alertsTriggered,
		c.jobRuns,
		c.restarts,
		c.activeSessions,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return c
}

// Registry exposes the registry for the /metrics handler.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Reset clears labelled metrics (useful in tests).
func (c *Collector) Reset() {
	c.commands.Reset()
	c.callbacks.Reset()
	c.transactionCounter.Reset()
	c.transactionDuration.Reset()
	c.rpcLatency.Reset()
	c.jobRuns.Reset()
}
