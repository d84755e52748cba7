package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCollector_IndependentRegistries(t *testing.T) {
	a := NewCollector()
	b := NewCollector()

	a.RecordCommand("start", "ok")
	a.RecordCommand("start", "ok")
	b.RecordCommand("start", "ok")

	assert.Equal(t, 2.0, testutil.ToFloat64(a.commands.WithLabelValues("start", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(b.commands.WithLabelValues("start", "ok")))
}

func TestCollector_Records(t *testing.T) {
	c := NewCollector()

	c.RecordCallback("sol", "ok")
	c.RecordTransaction("buy", "success", 20*time.Millisecond)
	c.RecordRPCLatency("getBalance", "api.mainnet-beta.solana.com", 5*time.Millisecond)
	c.RecordAlertTriggered()
	c.RecordJobRun("alert_sweep", "ok")
	c.RecordRestart()
	c.SetSessions(7)

	assert.Equal(t, 1.0, testutil.ToFloat64(c.callbacks.WithLabelValues("sol", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.transactionCounter.WithLabelValues("success", "buy")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.alertsTriggered))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.jobRuns.WithLabelValues("alert_sweep", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.restarts))
	assert.Equal(t, 7.0, testutil.ToFloat64(c.activeSessions))
	assert.Equal(t, 1, testutil.CollectAndCount(c.rpcLatency))

	c.Reset()
	assert.Equal(t, 0, testutil.CollectAndCount(c.commands))
}
