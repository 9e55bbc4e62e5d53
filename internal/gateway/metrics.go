package gateway

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// unmatchedRoute はどのルートにも一致しなかったリクエストのrouteラベル。
const unmatchedRoute = "unmatched"

// Metrics はゲートウェイのPrometheusメトリクス。
type Metrics struct {
	// RequestsTotal はエンベロープを返したリクエスト数。
	RequestsTotal *prometheus.CounterVec
	// UpstreamCallsTotal は上流呼び出しの結果ごとの回数。
	UpstreamCallsTotal *prometheus.CounterVec
	// UpstreamDuration は上流呼び出しにかかった時間。
	UpstreamDuration *prometheus.HistogramVec
	// AuthDenied は共有シークレットの検証で拒否したリクエスト数。
	AuthDenied prometheus.Counter
	// EventPublishFailures はイベントの発行に失敗した回数。
	EventPublishFailures prometheus.Counter
}

// NewMetrics はメトリクスを生成してregに登録する。
func NewMetrics(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		RequestsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "evogate",
				Name:      "requests_total",
				Help:      "Total number of requests answered with an envelope",
			},
			[]string{"method", "route", "status"},
		),
		UpstreamCallsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "evogate",
				Name:      "upstream_calls_total",
				Help:      "Total number of upstream calls by operation and outcome",
			},
			[]string{"operation", "outcome"},
		),
		UpstreamDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "evogate",
				Name:      "upstream_call_duration_seconds",
				Help:      "Upstream call duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		AuthDenied: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Namespace: "evogate",
				Name:      "auth_denied_total",
				Help:      "Total number of requests rejected by the shared secret guard",
			},
		),
		EventPublishFailures: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Namespace: "evogate",
				Name:      "event_publish_failures_total",
				Help:      "Total number of call events that could not be handed to the publisher",
			},
		),
	}
}

// observeRequest はリクエストの結果を記録する。
func (m *Metrics) observeRequest(method, route string, status int) {
	m.RequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
}

// observeUpstream は上流呼び出しの結果を記録する。outcomeは成功時"ok"、失敗時は失敗の種類。
func (m *Metrics) observeUpstream(operation, outcome string, elapsed time.Duration) {
	m.UpstreamCallsTotal.WithLabelValues(operation, outcome).Inc()
	m.UpstreamDuration.WithLabelValues(operation).Observe(elapsed.Seconds())
}
