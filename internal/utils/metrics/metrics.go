// internal/utils/metrics/metrics.go
package metrics

import (
	"time"
)

// RecordCommand counts a handled chat command.
func (c *Collector) RecordCommand(command, status string) {
	c.commands.WithLabelValues(command, status).Inc()
}

// RecordCallback counts a handled callback. Only the callback prefix is used
// as label so amounts do not explode cardinality.
func (c *Collector) RecordCallback(callback, status string) {
	c.callbacks.WithLabelValues(callback, status).Inc()
}

// RecordTransaction records a transaction outcome and its duration.
func (c *Collector) RecordTransaction(txType, status string, duration time.Duration) {
	c.transactionCounter.WithLabelValues(status, txType).Inc()
	c.transactionDuration.WithLabelValues(txType).Observe(duration.Seconds())
}

// RecordRPCLatency records the latency of an RPC request.
func (c *Collector) RecordRPCLatency(method, endpoint string, duration time.Duration) {
	c.rpcLatency.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

func (c *Collector) RecordAlertTriggered() {
	c.alertsTriggered.Inc()
}

// RecordJobRun counts a scheduler job run.
func (c *Collector) RecordJobRun(job, status string) {
	c.jobRuns.WithLabelValues(job, status).Inc()
}

func (c *Collector) RecordRestart() {
	c.restarts.Inc()
}

// SetSessions updates the number of sessions in memory.
func (c *Collector) SetSessions(n int) {
	c.activeSessions.Set(float64(n))
}
