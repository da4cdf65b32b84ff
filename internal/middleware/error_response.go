package middleware

import (
	"encoding/json"
	"net/http"

	"github.com/hitoshi/picshare/internal/model"
)

// ErrorResponseBody はAPIエラーレスポンスの統一フォーマット。
// "error" に人間可読なメッセージ、"details" に任意の補足を載せる。
type ErrorResponseBody struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// StatusForCode はAPIエラーコードをHTTPステータスコードに対応付ける。
func StatusForCode(code string) int {
	switch code {
	case model.ErrCodeMissingAuthHeader,
		model.ErrCodeInvalidToken,
		model.ErrCodeTokenExpired,
		model.ErrCodeBadAudience,
		model.ErrCodeBadIssuer,
		model.ErrCodeProviderUnreachable:
		return http.StatusUnauthorized
	case model.ErrCodeForbidden:
		return http.StatusForbidden
	case model.ErrCodePostNotFound,
		model.ErrCodeUserNotFound:
		return http.StatusNotFound
	case model.ErrCodeUsernameTaken,
		model.ErrCodeUserConflict:
		return http.StatusConflict
	case model.ErrCodeInternal:
		return http.StatusInternalServerError
	default:
		return http.StatusBadRequest
	}
}

// WriteErrorResponse は統一エラーフォーマットでHTTPエラーレスポンスを書き込む。
// すべてのAPIエンドポイントで一貫したエラーレスポンスを提供する。
func WriteErrorResponse(w http.ResponseWriter, statusCode int, apiErr *model.APIError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(ErrorResponseBody{
		Error:   apiErr.Message,
		Details: apiErr.Details,
	})
}

// WriteAPIError はAPIエラーをコードに対応するステータスで書き込む。
func WriteAPIError(w http.ResponseWriter, apiErr *model.APIError) {
	WriteErrorResponse(w, StatusForCode(apiErr.Code), apiErr)
}

// WriteInternalServerError は内部サーバーエラーの統一レスポンスを書き込む。
// 詳細はログのみに記録し、ユーザーには一般的なメッセージを返す。
func WriteInternalServerError(w http.ResponseWriter) {
	WriteErrorResponse(w, http.StatusInternalServerError, model.NewInternalError())
}
