// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// Message はレスポンスボディの "error" フィールドにそのまま載る文言で、
// Details は任意の補足（内部情報は含めない）。
type APIError struct {
	Code    string // エラーコード（HTTPステータスへのマッピングに使用）
	Message string // クライアント向けメッセージ
	Details string // 任意の補足情報
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	// 認証（401）
	ErrCodeMissingAuthHeader   = "MISSING_AUTH_HEADER"
	ErrCodeInvalidToken        = "INVALID_TOKEN"
	ErrCodeTokenExpired        = "TOKEN_EXPIRED"
	ErrCodeBadAudience         = "BAD_AUDIENCE"
	ErrCodeBadIssuer           = "BAD_ISSUER"
	ErrCodeProviderUnreachable = "PROVIDER_UNREACHABLE"

	// 入力検証（400）
	ErrCodeInvalidRequestBody = "INVALID_REQUEST_BODY"
	ErrCodeImageRequired      = "IMAGE_REQUIRED"
	ErrCodeInvalidImageData   = "INVALID_IMAGE_DATA"
	ErrCodeImageTooLarge      = "IMAGE_TOO_LARGE"
	ErrCodeFilenameTooLong    = "FILENAME_TOO_LONG"
	ErrCodeNoUpdateFields     = "NO_UPDATE_FIELDS"
	ErrCodeEmptyDescription   = "EMPTY_DESCRIPTION"
	ErrCodeEmptyCommentText   = "EMPTY_COMMENT_TEXT"
	ErrCodePostIDRequired     = "POST_ID_REQUIRED"
	ErrCodeUsernameRequired   = "USERNAME_REQUIRED"
	ErrCodeUsernameTooShort   = "USERNAME_TOO_SHORT"

	// 認可（403）
	ErrCodeForbidden = "FORBIDDEN"

	// 存在しない（404）
	ErrCodePostNotFound = "POST_NOT_FOUND"
	ErrCodeUserNotFound = "USER_NOT_FOUND"

	// 競合（409）
	ErrCodeUsernameTaken = "USERNAME_TAKEN"
	ErrCodeUserConflict  = "USER_CONFLICT"

	// 内部エラー（500）
	ErrCodeInternal = "INTERNAL_ERROR"
)

// NewMissingAuthHeaderError はAuthorizationヘッダー欠落エラーを生成する。
func NewMissingAuthHeaderError() *APIError {
	return &APIError{
		Code:    ErrCodeMissingAuthHeader,
		Message: "Missing or invalid authorization header",
	}
}

// NewInvalidTokenError はトークン検証失敗エラーを生成する。
// detailsには署名不正などの粗い分類のみを渡し、内部のエラー文言は渡さない。
func NewInvalidTokenError(details string) *APIError {
	return &APIError{
		Code:    ErrCodeInvalidToken,
		Message: "Token validation failed",
		Details: details,
	}
}

// NewTokenExpiredError は期限切れトークンエラーを生成する。
func NewTokenExpiredError() *APIError {
	return &APIError{
		Code:    ErrCodeTokenExpired,
		Message: "Token has expired",
	}
}

// NewBadAudienceError はaudience不一致エラーを生成する。
func NewBadAudienceError() *APIError {
	return &APIError{
		Code:    ErrCodeBadAudience,
		Message: "Token audience mismatch",
	}
}

// NewBadIssuerError はissuer不一致エラーを生成する。
func NewBadIssuerError() *APIError {
	return &APIError{
		Code:    ErrCodeBadIssuer,
		Message: "Token issuer mismatch",
	}
}

// NewProviderUnreachableError はIdPの鍵取得失敗エラーを生成する。
// タイムアウトやネットワーク障害で検証が成立しない場合に使用する。
func NewProviderUnreachableError() *APIError {
	return &APIError{
		Code:    ErrCodeProviderUnreachable,
		Message: "Unable to verify credentials",
	}
}

// NewInvalidRequestBodyError はリクエストボディ不正エラーを生成する。
func NewInvalidRequestBodyError() *APIError {
	return &APIError{
		Code:    ErrCodeInvalidRequestBody,
		Message: "Invalid request body",
	}
}

// NewImageRequiredError は画像データ欠落エラーを生成する。
func NewImageRequiredError() *APIError {
	return &APIError{
		Code:    ErrCodeImageRequired,
		Message: "No image data provided",
	}
}

// NewInvalidImageDataError はbase64デコード失敗エラーを生成する。
func NewInvalidImageDataError() *APIError {
	return &APIError{
		Code:    ErrCodeInvalidImageData,
		Message: "Invalid image data",
		Details: "image must be valid base64",
	}
}

// NewImageTooLargeError は画像サイズ超過エラーを生成する。
func NewImageTooLargeError(maxBytes int64) *APIError {
	return &APIError{
		Code:    ErrCodeImageTooLarge,
		Message: "Image is too large",
		Details: fmt.Sprintf("decoded image must not exceed %d bytes", maxBytes),
	}
}

// NewFilenameTooLongError はファイル名長超過エラーを生成する。
func NewFilenameTooLongError() *APIError {
	return &APIError{
		Code:    ErrCodeFilenameTooLong,
		Message: "Filename is too long",
		Details: "filename must be at most 255 characters",
	}
}

// NewNoUpdateFieldsError は更新対象フィールドなしエラーを生成する。
func NewNoUpdateFieldsError() *APIError {
	return &APIError{
		Code:    ErrCodeNoUpdateFields,
		Message: "No valid fields to update",
	}
}

// NewEmptyDescriptionError は空のdescription更新エラーを生成する。
func NewEmptyDescriptionError() *APIError {
	return &APIError{
		Code:    ErrCodeEmptyDescription,
		Message: "Description cannot be empty",
	}
}

// NewEmptyCommentTextError は空のコメント本文エラーを生成する。
func NewEmptyCommentTextError() *APIError {
	return &APIError{
		Code:    ErrCodeEmptyCommentText,
		Message: "Comment text is required",
	}
}

// NewPostIDRequiredError はpost_id欠落エラーを生成する。
func NewPostIDRequiredError() *APIError {
	return &APIError{
		Code:    ErrCodePostIDRequired,
		Message: "post_id is required",
	}
}

// NewUsernameRequiredError はusername欠落エラーを生成する。
func NewUsernameRequiredError() *APIError {
	return &APIError{
		Code:    ErrCodeUsernameRequired,
		Message: "Username is required",
	}
}

// NewUsernameTooShortError はusername長不足エラーを生成する。
func NewUsernameTooShortError() *APIError {
	return &APIError{
		Code:    ErrCodeUsernameTooShort,
		Message: "Username must be at least 3 characters",
	}
}

// NewForbiddenError は所有者以外による変更操作エラーを生成する。
func NewForbiddenError() *APIError {
	return &APIError{
		Code:    ErrCodeForbidden,
		Message: "You are not the owner of this post",
	}
}

// NewPostNotFoundError は投稿未検出エラーを生成する。
func NewPostNotFoundError() *APIError {
	return &APIError{
		Code:    ErrCodePostNotFound,
		Message: "Post not found",
	}
}

// NewUserNotFoundError はユーザー未検出エラーを生成する。
func NewUserNotFoundError() *APIError {
	return &APIError{
		Code:    ErrCodeUserNotFound,
		Message: "User not found",
	}
}

// NewUsernameTakenError はusername重複エラーを生成する。
func NewUsernameTakenError() *APIError {
	return &APIError{
		Code:    ErrCodeUsernameTaken,
		Message: "Username is already taken",
	}
}

// NewUserConflictError はユーザー作成の整合性異常エラーを生成する。
// 一意制約違反後の再読込でも行が見つからない場合にのみ使用する。
func NewUserConflictError() *APIError {
	return &APIError{
		Code:    ErrCodeUserConflict,
		Message: "Conflicting user record",
	}
}

// NewInternalError は内部エラーを生成する。詳細はログのみに記録する。
func NewInternalError() *APIError {
	return &APIError{
		Code:    ErrCodeInternal,
		Message: "Internal server error",
	}
}
