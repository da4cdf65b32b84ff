package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/picshare/internal/metrics"
	"github.com/hitoshi/picshare/internal/middleware"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	TokenVerifier     middleware.TokenVerifier
	UserResolver      middleware.UserResolver
	CORSAllowedOrigin string

	// 監視
	HealthChecker HealthChecker
	Metrics       metrics.MetricsCollector
	Gatherer      prometheus.Gatherer

	// ドメインサービス
	PostService    PostServiceInterface
	CommentService CommentServiceInterface
	UserService    UserServiceInterface
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → SecurityHeaders → CORS → Metrics → Logging
//
// 閲覧系ルート（一覧・詳細・コメント一覧・画像ダウンロード）は認証不要、
// 変更系ルートとプロフィールはAuthMiddlewareの内側に配置する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewSecurityHeadersMiddleware())
	if deps.CORSAllowedOrigin != "" {
		r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	}
	if deps.Metrics != nil {
		r.Use(middleware.NewMetricsMiddleware(deps.Metrics))
	}
	r.Use(middleware.NewLoggingMiddleware(slog.Default()))

	postHandler := NewPostHandler(deps.PostService, deps.Metrics)
	commentHandler := NewCommentHandler(deps.CommentService, deps.Metrics)
	userHandler := NewUserHandler(deps.UserService)

	// --- 認証不要のルート ---

	r.Get("/health", NewHealthHandler(deps.HealthChecker))
	if deps.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", metrics.Handler(deps.Gatherer))
	}

	r.Get("/posts", postHandler.ListPosts)
	r.Get("/posts/{id}", postHandler.GetPost)
	r.Get("/posts/{id}/comments", commentHandler.ListComments)
	r.Get("/images/download/{id}", postHandler.DownloadImage)

	// --- 認証が必要なルート ---
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewAuthMiddleware(deps.TokenVerifier, deps.UserResolver, deps.Metrics))

		// 投稿管理
		r.Post("/posts", postHandler.CreatePost)
		r.Patch("/posts/{id}", postHandler.UpdatePost)
		r.Delete("/posts/{id}", postHandler.DeletePost)

		// コメント
		r.Post("/comments", commentHandler.CreateComment)

		// ユーザー
		r.Get("/profile", userHandler.GetProfile)
		r.Put("/user/username", userHandler.UpdateUsername)
	})

	return r
}
