package middleware

import (
	"net/http"
	"time"
)

// HTTPMetrics はHTTPリクエストの計測インターフェース。
type HTTPMetrics interface {
	RecordHTTPStatus(statusCode int)
	RecordRequestLatency(duration time.Duration)
}

// NewMetricsMiddleware はレスポンスのステータスコードとレイテンシを
// 記録するミドルウェアを返す。
func NewMetricsMiddleware(metrics HTTPMetrics) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			rec := &statusRecorder{
				ResponseWriter: w,
				statusCode:     http.StatusOK,
			}

			next.ServeHTTP(rec, r)

			metrics.RecordHTTPStatus(rec.statusCode)
			metrics.RecordRequestLatency(time.Since(start))
		})
	}
}
