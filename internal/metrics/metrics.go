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
// ミドルウェアやハンドラー層から利用する。
type MetricsCollector interface {
	RecordHTTPStatus(statusCode int)
	RecordRequestLatency(duration time.Duration)
	RecordAuthFailure(reason string)
	RecordPostCreated()
	RecordCommentCreated()
	RecordImageBytes(n int)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	httpStatus      *prometheus.CounterVec
	requestLatency  prometheus.Histogram
	authFailures    *prometheus.CounterVec
	postsCreated    prometheus.Counter
	commentsCreated prometheus.Counter
	imageBytes      prometheus.Histogram
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "picshare_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		requestLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "picshare_request_latency_seconds",
			Help:    "HTTPリクエスト処理のレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		authFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "picshare_auth_failures_total",
			Help: "理由別のトークン検証失敗数",
		}, []string{"reason"}),
		postsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "picshare_posts_created_total",
			Help: "作成された投稿の合計数",
		}),
		commentsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "picshare_comments_created_total",
			Help: "作成されたコメントの合計数",
		}),
		imageBytes: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "picshare_image_bytes",
			Help:    "アップロードされた画像のデコード後サイズ（バイト）",
			Buckets: prometheus.ExponentialBuckets(1024, 4, 8),
		}),
	}

	reg.MustRegister(
		c.httpStatus,
		c.requestLatency,
		c.authFailures,
		c.postsCreated,
		c.commentsCreated,
		c.imageBytes,
	)

	return c
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordRequestLatency はリクエスト処理のレイテンシを記録する。
func (c *Collector) RecordRequestLatency(duration time.Duration) {
	c.requestLatency.Observe(duration.Seconds())
}

// RecordAuthFailure はトークン検証失敗を理由付きで記録する。
func (c *Collector) RecordAuthFailure(reason string) {
	c.authFailures.WithLabelValues(reason).Inc()
}

// RecordPostCreated は投稿作成を記録する。
func (c *Collector) RecordPostCreated() {
	c.postsCreated.Inc()
}

// RecordCommentCreated はコメント作成を記録する。
func (c *Collector) RecordCommentCreated() {
	c.commentsCreated.Inc()
}

// RecordImageBytes はアップロード画像のデコード後サイズを記録する。
func (c *Collector) RecordImageBytes(n int) {
	c.imageBytes.Observe(float64(n))
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// compile-time interface check
var _ MetricsCollector = (*Collector)(nil)
