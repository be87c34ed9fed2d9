package monitor

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// WorkflowMetrics 发送流程的业务指标。
// 所有方法在 nil 接收者上是空操作，单元测试和 CLI 不需要注册指标。
type WorkflowMetrics struct {
	SessionsStarted   *prometheus.CounterVec
	EventsTotal       *prometheus.CounterVec
	BroadcastTotal    *prometheus.CounterVec
	BroadcastDuration *prometheus.HistogramVec
	HistoryWrites     *prometheus.CounterVec
	GateTotal         *prometheus.CounterVec
	ActiveSessions    prometheus.Gauge
}

// Workflow Global Metrics Instance
var Workflow *WorkflowMetrics

// InitWorkflowMetrics 初始化业务指标
func InitWorkflowMetrics(reg prometheus.Registerer) {
	f := promauto.With(reg)
	Workflow = &WorkflowMetrics{
		SessionsStarted: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "wallet_send",
			Name:      "sessions_started_total",
			Help:      "Send workflow sessions started, by intent",
		}, []string{"intent"}),
		EventsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "wallet_send",
			Name:      "events_total",
			Help:      "Workflow events processed, by event and result",
		}, []string{"event", "result"}),
		BroadcastTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "wallet_send",
			Name:      "broadcast_total",
			Help:      "Signed transactions submitted to the network",
		}, []string{"chain", "result"}),
		BroadcastDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "wallet_send",
			Name:      "broadcast_duration_seconds",
			Help:      "Latency of broadcast round trips",
			Buckets:   prometheus.DefBuckets,
		}, []string{"chain"}),
		HistoryWrites: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "wallet_send",
			Name:      "history_writes_total",
			Help:      "Account history writes, by result",
		}, []string{"result"}),
		GateTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "wallet_send",
			Name:      "gate_total",
			Help:      "Send gate outcomes (deferred, released, cancelled)",
		}, []string{"outcome"}),
		ActiveSessions: f.NewGauge(prometheus.GaugeOpts{
			Namespace: "wallet_send",
			Name:      "active_sessions",
			Help:      "Workflow sessions currently held in memory",
		}),
	}
}

func (m *WorkflowMetrics) SessionStarted(intent string) {
	if m == nil {
		return
	}
	m.SessionsStarted.WithLabelValues(intent).Inc()
	m.ActiveSessions.Inc()
}

func (m *WorkflowMetrics) SessionsEvicted(n int) {
	if m == nil {
		return
	}
	m.ActiveSessions.Sub(float64(n))
}

func (m *WorkflowMetrics) Event(event string, err error) {
	if m == nil {
		return
	}
	m.EventsTotal.WithLabelValues(event, result(err)).Inc()
}

func (m *WorkflowMetrics) Broadcast(chain string, start time.Time, err error) {
	if m == nil {
		return
	}
	m.BroadcastTotal.WithLabelValues(chain, result(err)).Inc()
	m.BroadcastDuration.WithLabelValues(chain).Observe(time.Since(start).Seconds())
}

func (m *WorkflowMetrics) HistoryWrite(err error) {
	if m == nil {
		return
	}
	m.HistoryWrites.WithLabelValues(result(err)).Inc()
}

func (m *WorkflowMetrics) Gate(outcome string) {
	if m == nil {
		return
	}
	m.GateTotal.WithLabelValues(outcome).Inc()
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
