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
// ログインフローとバックエンドクライアントから利用する。
type MetricsCollector interface {
	RecordLoginAttempt(provider string)
	RecordLoginResult(provider, result string)
	RecordPollTick()
	RecordHTTPStatus(statusCode int)
	RecordBackendLatency(duration time.Duration)
	RecordBookmarkCount(count int)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	loginAttempts  *prometheus.CounterVec
	loginResults   *prometheus.CounterVec
	pollTicks      prometheus.Counter
	httpStatus     *prometheus.CounterVec
	backendLatency prometheus.Histogram
	bookmarkCount  prometheus.Gauge
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		loginAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gradquest_login_attempts_total",
			Help: "プロバイダー別のログイン試行数",
		}, []string{"provider"}),
		loginResults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gradquest_login_results_total",
			Help: "プロバイダー・結果別のログイン完了数",
		}, []string{"provider", "result"}),
		pollTicks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gradquest_session_poll_ticks_total",
			Help: "ログイン完了検知ポーリングの実行回数",
		}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gradquest_backend_http_status_total",
			Help: "バックエンドHTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		backendLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "gradquest_backend_latency_seconds",
			Help:    "バックエンド呼び出しのレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		bookmarkCount: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "gradquest_bookmarks",
			Help: "保存中のブックマーク数",
		}),
	}

	reg.MustRegister(
		c.loginAttempts,
		c.loginResults,
		c.pollTicks,
		c.httpStatus,
		c.backendLatency,
		c.bookmarkCount,
	)

	return c
}

// RecordLoginAttempt はログイン試行を記録する。
func (c *Collector) RecordLoginAttempt(provider string) {
	c.loginAttempts.WithLabelValues(provider).Inc()
}

// RecordLoginResult はログイン完了（成功・失敗）を記録する。
func (c *Collector) RecordLoginResult(provider, result string) {
	c.loginResults.WithLabelValues(provider, result).Inc()
}

// RecordPollTick はポーリング1回分を記録する。
func (c *Collector) RecordPollTick() {
	c.pollTicks.Inc()
}

// RecordHTTPStatus はバックエンドのHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordBackendLatency はバックエンド呼び出しのレイテンシを記録する。
func (c *Collector) RecordBackendLatency(duration time.Duration) {
	c.backendLatency.Observe(duration.Seconds())
}

// RecordBookmarkCount は保存中のブックマーク数を記録する。
func (c *Collector) RecordBookmarkCount(count int) {
	c.bookmarkCount.Set(float64(count))
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
