// Package auth は外部IdPが発行したベアラートークンの検証を提供する。
//
// トークンの発行（ログインフロー）はIdP側の責務であり、ここでは
// 公開鍵による署名検証とiss/aud/exp検査のみを行う。
package auth

import (
	"context"
	"crypto/rsa"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"github.com/hitoshi/picshare/internal/model"
)

// Claims は検証済みトークンから抽出した事実の集合を表す。
// Subject はIdPの安定した利用者識別子で、ローカルユーザーへの解決に使う。
// Email はIdPが付与していれば設定される。
type Claims struct {
	Subject string
	Email   string
}

// KeySource は署名検証鍵の取得インターフェース。
// 通常はKeyCacheを渡す。
type KeySource interface {
	Key(ctx context.Context, kid string) (*rsa.PublicKey, error)
}

// providerClaims はIdPトークンのペイロード。
type providerClaims struct {
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// Verifier はベアラートークンを検証しClaimsを発行する。
type Verifier struct {
	keys   KeySource
	parser *jwt.Parser
}

// NewVerifier はVerifierを生成する。
// issuerとaudienceはトークンのiss/aud claimと完全一致を要求する。
func NewVerifier(keys KeySource, issuer, audience string) *Verifier {
	return &Verifier{
		keys: keys,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{"RS256"}),
			jwt.WithIssuer(issuer),
			jwt.WithAudience(audience),
			jwt.WithExpirationRequired(),
		),
	}
}

// Verify は生のベアラートークンを検証し、成功時にClaimsを返す。
// 失敗はすべて*model.APIErrorであり、ハンドラーはそのまま401に変換できる。
func (v *Verifier) Verify(ctx context.Context, raw string) (*Claims, error) {
	claims := &providerClaims{}

	_, err := v.parser.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		kid, _ := t.Header["kid"].(string)
		if kid == "" {
			return nil, fmt.Errorf("token has no kid header")
		}
		return v.keys.Key(ctx, kid)
	})
	if err != nil {
		return nil, mapVerifyError(err)
	}

	if claims.Subject == "" {
		return nil, model.NewInvalidTokenError("missing subject claim")
	}

	return &Claims{
		Subject: claims.Subject,
		Email:   claims.Email,
	}, nil
}

// mapVerifyError はjwtライブラリのエラーをAPIエラーに分類する。
// 鍵取得失敗（PROVIDER_UNREACHABLE）はkeyfunc経由で既にAPIエラーになっているため
// そのまま通し、それ以外は粗い分類のみをDetailsに載せる。
func mapVerifyError(err error) error {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}

	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return model.NewTokenExpiredError()
	case errors.Is(err, jwt.ErrTokenInvalidAudience):
		return model.NewBadAudienceError()
	case errors.Is(err, jwt.ErrTokenInvalidIssuer):
		return model.NewBadIssuerError()
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return model.NewInvalidTokenError("invalid signature")
	case errors.Is(err, jwt.ErrTokenMalformed):
		return model.NewInvalidTokenError("malformed token")
	default:
		return model.NewInvalidTokenError("")
	}
}

// compile-time interface check
var _ KeySource = (*KeyCache)(nil)
