// Package handler はHTTP APIのハンドラーとルーティングを提供する。
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/hitoshi/picshare/internal/middleware"
	"github.com/hitoshi/picshare/internal/model"
)

// writeJSON はJSONレスポンスを書き込む。
func writeJSON(w http.ResponseWriter, statusCode int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(body)
}

// writeAPIErrorResponse は統一エラーフォーマットでエラーレスポンスを書き込む。
func writeAPIErrorResponse(w http.ResponseWriter, statusCode int, apiErr *model.APIError) {
	middleware.WriteErrorResponse(w, statusCode, apiErr)
}

// handleServiceError はサービス層から返されたエラーを適切なHTTPステータスコードに変換する。
// APIError以外のエラーは詳細をログのみに記録し、500として扱う。
func handleServiceError(w http.ResponseWriter, err error) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		writeAPIErrorResponse(w, middleware.StatusForCode(apiErr.Code), apiErr)
		return
	}

	slog.Error("internal server error", slog.String("error", err.Error()))
	writeAPIErrorResponse(w, http.StatusInternalServerError, model.NewInternalError())
}

// requireIdentity はコンテキストから認証済みIdentityを取り出す。
// 認証ミドルウェアを通過していない場合は401を書き込みfalseを返す。
func requireIdentity(w http.ResponseWriter, r *http.Request) (*middleware.Identity, bool) {
	id, err := middleware.IdentityFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewMissingAuthHeaderError())
		return nil, false
	}
	return id, true
}
