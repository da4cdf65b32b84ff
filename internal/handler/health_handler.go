package handler

import (
	"context"
	"net/http"
	"time"
)

// HealthChecker はヘルスチェックの依存インターフェース。通常は*sql.DBを渡す。
type HealthChecker interface {
	PingContext(ctx context.Context) error
}

// NewHealthHandler はヘルスチェックのHTTPハンドラーを返す。
// DBに到達できる場合は200、できない場合は503を返す。
// GET /health
func NewHealthHandler(checker HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()

		if err := checker.PingContext(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "unavailable",
			})
			return
		}

		writeJSON(w, http.StatusOK, map[string]string{
			"status": "ok",
		})
	}
}
