package monitor

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestWorkflowMetricsNilSafe(t *testing.T) {
	var m *WorkflowMetrics
	assert.NotPanics(t, func() {
		m.SessionStarted("NORMAL")
		m.Event("REQUEST_SEND", nil)
		m.Broadcast("1", time.Now(), errors.New("x"))
		m.HistoryWrite(nil)
		m.Gate("deferred")
		m.SessionsEvicted(2)
	})
}

func TestWorkflowMetricsCounts(t *testing.T) {
	saved := Workflow
	defer func() { Workflow = saved }()

	InitWorkflowMetrics(prometheus.NewRegistry())
	Workflow.Event("SEND_SUCCESS", nil)
	Workflow.Event("SEND_SUCCESS", nil)
	Workflow.Event("REQUEST_SEND", errors.New("state mismatch"))

	assert.Equal(t, 2.0, testutil.ToFloat64(Workflow.EventsTotal.WithLabelValues("SEND_SUCCESS", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(Workflow.EventsTotal.WithLabelValues("REQUEST_SEND", "error")))
}
