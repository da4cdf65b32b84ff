package auth

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"net/http"
	"sync"
	"time"

	"github.com/hitoshi/picshare/internal/model"
)

// KeySet はkidから検証用RSA公開鍵への対応を表す。
type KeySet map[string]*rsa.PublicKey

// KeyFetcher はIdPの公開鍵セット取得のインターフェース。
// テストではスタブ実装に差し替える。
type KeyFetcher interface {
	// FetchKeys はIdPが公開している署名検証鍵の一覧を取得する。
	FetchKeys(ctx context.Context) (KeySet, error)
}

// HTTPKeyFetcher はJWKSエンドポイントから公開鍵セットを取得するKeyFetcher実装。
// クライアントのタイムアウトが鍵取得の上限時間となり、
// 超過した場合の失敗は呼び出し側でPROVIDER_UNREACHABLEとして扱われる。
type HTTPKeyFetcher struct {
	jwksURL string
	client  *http.Client
}

// NewHTTPKeyFetcher はHTTPKeyFetcherを生成する。
func NewHTTPKeyFetcher(jwksURL string, timeout time.Duration) *HTTPKeyFetcher {
	return &HTTPKeyFetcher{
		jwksURL: jwksURL,
		client:  &http.Client{Timeout: timeout},
	}
}

// jwksDocument はJWKSエンドポイントのレスポンス。
type jwksDocument struct {
	Keys []jwksKey `json:"keys"`
}

// jwksKey はJWKS内の1鍵エントリ。RSA鍵のみを対象とする。
type jwksKey struct {
	Kty string `json:"kty"`
	Kid string `json:"kid"`
	Use string `json:"use"`
	Alg string `json:"alg"`
	N   string `json:"n"`
	E   string `json:"e"`
}

// FetchKeys はJWKSエンドポイントから鍵セットを取得してパースする。
func (f *HTTPKeyFetcher) FetchKeys(ctx context.Context) (KeySet, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.jwksURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create jwks request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("jwks request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read jwks response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("jwks fetch failed with status %d", resp.StatusCode)
	}

	var doc jwksDocument
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse jwks response: %w", err)
	}

	keys := make(KeySet)
	for _, k := range doc.Keys {
		// 署名検証に使えるRSA鍵のみを採用する
		if k.Kty != "RSA" || k.Kid == "" || k.Use == "enc" {
			continue
		}
		pub, err := parseRSAKey(k)
		if err != nil {
			slog.Warn("skipping unparsable jwks key",
				slog.String("kid", k.Kid),
				slog.String("error", err.Error()),
			)
			continue
		}
		keys[k.Kid] = pub
	}

	if len(keys) == 0 {
		return nil, fmt.Errorf("jwks response contains no usable RSA keys")
	}

	return keys, nil
}

// parseRSAKey はJWKSエントリのbase64url表現からRSA公開鍵を組み立てる。
func parseRSAKey(k jwksKey) (*rsa.PublicKey, error) {
	nBytes, err := base64.RawURLEncoding.DecodeString(k.N)
	if err != nil {
		return nil, fmt.Errorf("invalid modulus: %w", err)
	}
	eBytes, err := base64.RawURLEncoding.DecodeString(k.E)
	if err != nil {
		return nil, fmt.Errorf("invalid exponent: %w", err)
	}

	n := new(big.Int).SetBytes(nBytes)
	e := new(big.Int).SetBytes(eBytes)
	if !e.IsInt64() || e.Int64() <= 0 {
		return nil, fmt.Errorf("exponent out of range")
	}

	return &rsa.PublicKey{N: n, E: int(e.Int64())}, nil
}

// minRefreshInterval は未知のkidをきっかけにした再取得の最短間隔。
// 偽造kidを持つトークンの連続送信でIdPを叩き続けないための下限。
const minRefreshInterval = time.Minute

// KeyCache はIdPの公開鍵セットをTTL付きでキャッシュする。
// TTL内はキャッシュから返し、期限切れまたは未知のkidに遭遇した場合に再取得する。
// 再取得に失敗しても手元に該当鍵があればそれで検証を続行する。
type KeyCache struct {
	fetcher KeyFetcher
	ttl     time.Duration

	mu        sync.Mutex
	keys      KeySet
	fetchedAt time.Time
}

// NewKeyCache はKeyCacheを生成する。
func NewKeyCache(fetcher KeyFetcher, ttl time.Duration) *KeyCache {
	return &KeyCache{
		fetcher: fetcher,
		ttl:     ttl,
	}
}

// Key は指定kidの検証鍵を返す。
// 鍵セットの取得に失敗し手元にも鍵がない場合はPROVIDER_UNREACHABLEを返す。
// 最新の鍵セットにkidが存在しない場合は通常のエラー（トークン不正扱い）を返す。
func (c *KeyCache) Key(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	fresh := c.keys != nil && time.Since(c.fetchedAt) < c.ttl
	if fresh {
		if k, ok := c.keys[kid]; ok {
			return k, nil
		}
	}

	// 期限切れ、または未知のkid: 再取得する
	canRefresh := c.keys == nil || time.Since(c.fetchedAt) >= minRefreshInterval
	if canRefresh {
		keys, err := c.fetcher.FetchKeys(ctx)
		if err != nil {
			slog.Warn("failed to refresh provider key set",
				slog.String("error", err.Error()),
			)
			// 取得失敗時は手元の鍵で続行する
			if k, ok := c.keys[kid]; ok {
				return k, nil
			}
			return nil, model.NewProviderUnreachableError()
		}
		c.keys = keys
		c.fetchedAt = time.Now()
	}

	if k, ok := c.keys[kid]; ok {
		return k, nil
	}
	return nil, fmt.Errorf("signing key %q not found in provider key set", kid)
}

// compile-time interface check
var _ KeyFetcher = (*HTTPKeyFetcher)(nil)
