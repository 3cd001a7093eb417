package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	DocumentWrites = prometheus.NewCounter(
		prometheus.CounterOpts{Namespace: "quillsync", Name: "document_writes_total", Help: "Number of accepted document writes (HTTP and realtime)."},
	)
	IndexPushFailures = prometheus.NewCounter(
		prometheus.CounterOpts{Namespace: "quillsync", Name: "index_push_failures_total", Help: "Number of failed metadata pushes from document actors to index actors."},
	)
	RealtimeSessions = prometheus.NewGauge(
		prometheus.GaugeOpts{Namespace: "quillsync", Name: "realtime_sessions", Help: "Number of currently connected realtime sessions."},
	)
	RateLimitAllowed = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "quillsync", Name: "rate_limit_allowed_total", Help: "Number of allowed requests by limiter type."},
		[]string{"limiter"},
	)
	RateLimitRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "quillsync", Name: "rate_limit_rejected_total", Help: "Number of rejected requests by limiter type."},
		[]string{"limiter"},
	)
)

func RegisterCollectors(reg prometheus.Registerer) {
	reg.MustRegister(DocumentWrites)
	reg.MustRegister(IndexPushFailures)
	reg.MustRegister(RealtimeSessions)
	reg.MustRegister(RateLimitAllowed)
	reg.MustRegister(RateLimitRejected)
}
