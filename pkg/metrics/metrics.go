package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"time"
)

var (
	requests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "askbot_requests_total",
		Help: "Questions handled, by relevance category",
	}, []string{"category"})

	rounds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "askbot_rounds",
		Help:    "Orchestrator rounds needed per question",
		Buckets: []float64{1, 2, 3, 4, 5},
	})

	verdicts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "askbot_verdicts_total",
		Help: "Verifier verdicts",
	}, []string{"adequate"})

	iterations = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "askbot_capability_iterations",
		Help:    "Plan/execute/evaluate cycles per capability dispatch",
		Buckets: []float64{1, 2, 3, 4, 5, 8},
	}, []string{"domain"})

	forced = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "askbot_forced_completions_total",
		Help: "Capability dispatches completed by a safety valve",
	}, []string{"domain", "reason"})

	toolCalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "askbot_tool_calls_total",
		Help: "Tool invocations by tool and status",
	}, []string{"tool", "status"})

	oracleCalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "askbot_oracle_calls_total",
		Help: "Oracle completions by status",
	}, []string{"status"})

	oracleLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "askbot_oracle_latency_seconds",
		Help:    "Oracle completion latency",
		Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 30, 60},
	})
)

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

func RecordRequest(category string) {
	requests.WithLabelValues(category).Inc()
}

func RecordRounds(n int) {
	rounds.Observe(float64(n))
}

func RecordVerdict(adequate bool) {
	if adequate {
		verdicts.WithLabelValues("true").Inc()
		return
	}
	verdicts.WithLabelValues("false").Inc()
}

func RecordDispatch(domain string, n int, forcedBy string) {
	iterations.WithLabelValues(domain).Observe(float64(n))
	if forcedBy != "" {
		forced.WithLabelValues(domain, forcedBy).Inc()
	}
}

func RecordToolCall(tool string, err error) {
	toolCalls.WithLabelValues(tool, status(err)).Inc()
}

func RecordOracleCall(start time.Time, err error) {
	oracleCalls.WithLabelValues(status(err)).Inc()
	oracleLatency.Observe(time.Since(start).Seconds())
}
