// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector はメトリクス収集のインターフェース。
// ストアクライアント、セッション管理、HTTPミドルウェアから利用する。
type MetricsCollector interface {
	RecordStoreRequest(operation string, statusCode int, duration time.Duration)
	RecordOperationFailure(operation string)
	SetActiveSessions(count int)
	RecordHTTPStatus(statusCode int)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	storeRequests  *prometheus.CounterVec
	storeLatency   *prometheus.HistogramVec
	opFailures     *prometheus.CounterVec
	activeSessions prometheus.Gauge
	httpStatus     *prometheus.CounterVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		storeRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "todoweb_store_requests_total",
			Help: "リモートストアへのリクエスト数（操作・ステータス別）",
		}, []string{"operation", "status_code"}),
		storeLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "todoweb_store_latency_seconds",
			Help:    "リモートストア呼び出しのレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),
		opFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "todoweb_operation_failures_total",
			Help: "画面操作の失敗数（操作別）",
		}, []string{"operation"}),
		activeSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "todoweb_active_sessions",
			Help: "現在有効なセッション数",
		}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "todoweb_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
	}

	reg.MustRegister(
		c.storeRequests,
		c.storeLatency,
		c.opFailures,
		c.activeSessions,
		c.httpStatus,
	)

	return c
}

// RecordStoreRequest はストア呼び出し1回の結果を記録する。
// 通信失敗時のstatusCodeは0として記録される。
func (c *Collector) RecordStoreRequest(operation string, statusCode int, duration time.Duration) {
	c.storeRequests.WithLabelValues(operation, strconv.Itoa(statusCode)).Inc()
	c.storeLatency.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordOperationFailure は画面操作の失敗を記録する。
func (c *Collector) RecordOperationFailure(operation string) {
	c.opFailures.WithLabelValues(operation).Inc()
}

// SetActiveSessions は有効なセッション数を設定する。
func (c *Collector) SetActiveSessions(count int) {
	c.activeSessions.Set(float64(count))
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// Nop は何も記録しないMetricsCollector。
// TUIモードやテストで使用する。
type Nop struct{}

func (Nop) RecordStoreRequest(string, int, time.Duration) {}
func (Nop) RecordOperationFailure(string)                 {}
func (Nop) SetActiveSessions(int)                         {}
func (Nop) RecordHTTPStatus(int)                          {}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
