// Package config は環境変数からのアプリケーション設定読み込みを提供する。
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Database
	DatabaseURL string

	// 認証（外部IdP）
	AuthIssuer      string        // トークンのiss。末尾スラッシュまで含めて一致させる
	AuthAudience    string        // トークンのaud
	JWKSURL         string        // 公開鍵セットのURL。未指定時はissuerから導出
	ProviderTimeout time.Duration // 鍵取得の上限時間
	KeyCacheTTL     time.Duration // 鍵キャッシュの有効期間

	// 画像
	MaxImageBytes int64 // デコード後の画像サイズ上限

	// Server
	ServerPort string

	// CORS
	CORSAllowedOrigin string
}

// Load は環境変数からConfigを読み込む。
// 必須環境変数が未設定の場合はエラーを返す。
func Load() (*Config, error) {
	cfg := &Config{}

	// Required fields
	var missing []string

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}

	cfg.AuthIssuer = os.Getenv("AUTH_ISSUER")
	if cfg.AuthIssuer == "" {
		missing = append(missing, "AUTH_ISSUER")
	}

	cfg.AuthAudience = os.Getenv("AUTH_AUDIENCE")
	if cfg.AuthAudience == "" {
		missing = append(missing, "AUTH_AUDIENCE")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	// Optional fields with defaults
	cfg.JWKSURL = getEnvString("AUTH_JWKS_URL", deriveJWKSURL(cfg.AuthIssuer))
	cfg.ProviderTimeout = getEnvDuration("PROVIDER_TIMEOUT", 5*time.Second)
	cfg.KeyCacheTTL = getEnvDuration("KEY_CACHE_TTL", time.Hour)
	cfg.MaxImageBytes = getEnvInt64("MAX_IMAGE_BYTES", 10*1024*1024)
	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")
	cfg.CORSAllowedOrigin = getEnvString("CORS_ALLOWED_ORIGIN", "http://localhost:3000")

	return cfg, nil
}

// deriveJWKSURL はissuerからJWKSエンドポイントの標準パスを導出する。
func deriveJWKSURL(issuer string) string {
	return strings.TrimSuffix(issuer, "/") + "/.well-known/jwks.json"
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt64(key string, defaultVal int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
