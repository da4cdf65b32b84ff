package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/hitoshi/picshare/internal/auth"
	"github.com/hitoshi/picshare/internal/model"
	"github.com/hitoshi/picshare/internal/user"
)

// Identity は認証済みリクエストの呼び出し元を表す。
// UserIDはローカルユーザーのID、SubjectはIdPの安定識別子。
type Identity struct {
	UserID   string
	Username string
	Subject  string
	Email    string
}

// contextKey はコンテキストキーの衝突を避けるための非公開型。
type contextKey string

const identityContextKey contextKey = "identity"

// ContextWithIdentity はIdentityをコンテキストに格納する。
func ContextWithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityContextKey, id)
}

// IdentityFromContext はコンテキストからIdentityを取り出す。
// 認証ミドルウェアを通過していないリクエストではエラーを返す。
func IdentityFromContext(ctx context.Context) (*Identity, error) {
	id, ok := ctx.Value(identityContextKey).(*Identity)
	if !ok || id == nil {
		return nil, errors.New("identity not found in context")
	}
	return id, nil
}

// TokenVerifier はベアラートークンの検証インターフェース。
// 通常は*auth.Verifierを渡す。
type TokenVerifier interface {
	Verify(ctx context.Context, raw string) (*auth.Claims, error)
}

// UserResolver はsubjectからローカルユーザーを解決するインターフェース。
type UserResolver interface {
	ResolveOrCreate(ctx context.Context, subject, email string) (*model.User, error)
}

// AuthMetrics は認証失敗の計測インターフェース。nilでもよい。
type AuthMetrics interface {
	RecordAuthFailure(reason string)
}

// NewAuthMiddleware はベアラートークン認証ミドルウェアを返す。
// Authorizationヘッダーを検証し、subjectに対応するローカルユーザーを
// 解決（存在しなければ作成）してIdentityをコンテキストに注入する。
// トークンが無い・不正な場合は後続ハンドラーを実行しない。
func NewAuthMiddleware(verifier TokenVerifier, users UserResolver, metrics AuthMetrics) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, ok := bearerToken(r)
			if !ok {
				recordFailure(metrics, model.ErrCodeMissingAuthHeader)
				WriteAPIError(w, model.NewMissingAuthHeaderError())
				return
			}

			claims, err := verifier.Verify(r.Context(), raw)
			if err != nil {
				apiErr := asAPIError(err)
				recordFailure(metrics, apiErr.Code)
				slog.Warn("token verification failed",
					slog.String("code", apiErr.Code),
					slog.String("path", r.URL.Path),
				)
				WriteAPIError(w, apiErr)
				return
			}

			u, err := users.ResolveOrCreate(r.Context(), claims.Subject, claims.Email)
			if err != nil {
				var apiErr *model.APIError
				if errors.As(err, &apiErr) {
					recordFailure(metrics, apiErr.Code)
					WriteAPIError(w, apiErr)
					return
				}
				slog.Error("failed to resolve user",
					slog.String("error", err.Error()),
				)
				WriteInternalServerError(w)
				return
			}

			id := &Identity{
				UserID:   u.ID,
				Username: u.Username,
				Subject:  claims.Subject,
				Email:    claims.Email,
			}
			next.ServeHTTP(w, r.WithContext(ContextWithIdentity(r.Context(), id)))
		})
	}
}

// bearerToken はAuthorizationヘッダーからベアラートークンを取り出す。
// スキーム名の大文字小文字は区別しない。
func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", false
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", false
	}
	return token, true
}

// asAPIError はエラーをAPIエラーに変換する。分類できないものはINVALID_TOKEN扱い。
func asAPIError(err error) *model.APIError {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}
	return model.NewInvalidTokenError("")
}

func recordFailure(metrics AuthMetrics, reason string) {
	if metrics != nil {
		metrics.RecordAuthFailure(reason)
	}
}

// compile-time interface check
var (
	_ TokenVerifier = (*auth.Verifier)(nil)
	_ UserResolver  = (*user.Directory)(nil)
)
