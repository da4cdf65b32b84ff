package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hitoshi/picshare/internal/auth"
	"github.com/hitoshi/picshare/internal/model"
	"github.com/hitoshi/picshare/internal/post"
)

// --- モック ---

type mockTokenVerifier struct {
	verifyFn func(ctx context.Context, raw string) (*auth.Claims, error)
}

func (m *mockTokenVerifier) Verify(ctx context.Context, raw string) (*auth.Claims, error) {
	if m.verifyFn != nil {
		return m.verifyFn(ctx, raw)
	}
	return &auth.Claims{Subject: "idp|1", Email: "alice@example.com"}, nil
}

type mockUserResolver struct{}

func (m *mockUserResolver) ResolveOrCreate(ctx context.Context, subject, email string) (*model.User, error) {
	return &model.User{ID: "u1", Username: "alice", ExternalSubject: subject}, nil
}

type mockHealthChecker struct {
	err error
}

func (m *mockHealthChecker) PingContext(ctx context.Context) error {
	return m.err
}

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	return NewRouter(&RouterDeps{
		TokenVerifier: &mockTokenVerifier{},
		UserResolver:  &mockUserResolver{},
		HealthChecker: &mockHealthChecker{},
		PostService: &mockPostService{
			listFn: func(ctx context.Context) ([]post.Summary, error) {
				return nil, nil
			},
			getFn: func(ctx context.Context, id string) (*post.Summary, error) {
				return nil, model.NewPostNotFoundError()
			},
			createFn: func(ctx context.Context, ownerID, filename, description, imageB64, mimeType string) (*model.Post, error) {
				return &model.Post{ID: "p1", OwnerID: ownerID}, nil
			},
			downloadFn: func(ctx context.Context, id string) (*post.DownloadResult, error) {
				return nil, model.NewPostNotFoundError()
			},
		},
		CommentService: &mockCommentService{
			listForPostFn: func(ctx context.Context, postID string) ([]model.CommentWithAuthor, error) {
				return nil, nil
			},
		},
		UserService: &mockUserService{
			profileFn: func(ctx context.Context, userID string) (*model.User, error) {
				return &model.User{ID: userID, Username: "alice"}, nil
			},
		},
	})
}

// --- テスト ---

// TestRouter_PublicRoutes は閲覧系ルートが認証なしでアクセスできることを検証する。
func TestRouter_PublicRoutes(t *testing.T) {
	router := newTestRouter(t)

	tests := []struct {
		method string
		target string
		want   int
	}{
		{http.MethodGet, "/posts", http.StatusOK},
		{http.MethodGet, "/posts/p1/comments", http.StatusOK},
		{http.MethodGet, "/posts/missing", http.StatusNotFound},
		{http.MethodGet, "/images/download/missing", http.StatusNotFound},
		{http.MethodGet, "/health", http.StatusOK},
	}

	for _, tt := range tests {
		req := httptest.NewRequest(tt.method, tt.target, nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Code != tt.want {
			t.Errorf("%s %s: status = %d, want %d", tt.method, tt.target, rec.Code, tt.want)
		}
	}
}

// TestRouter_ProtectedRoutesRequireAuth は変更系ルートがトークンなしで
// 401になることを検証する。
func TestRouter_ProtectedRoutesRequireAuth(t *testing.T) {
	router := newTestRouter(t)

	tests := []struct {
		method string
		target string
	}{
		{http.MethodPost, "/posts"},
		{http.MethodPatch, "/posts/p1"},
		{http.MethodDelete, "/posts/p1"},
		{http.MethodPost, "/comments"},
		{http.MethodPut, "/user/username"},
		{http.MethodGet, "/profile"},
	}

	for _, tt := range tests {
		req := httptest.NewRequest(tt.method, tt.target, nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusUnauthorized {
			t.Errorf("%s %s: status = %d, want 401", tt.method, tt.target, rec.Code)
		}
	}
}

// TestRouter_AuthenticatedMutation はベアラートークン付きの変更リクエストが
// 認証を通過してハンドラーに到達することを検証する。
func TestRouter_AuthenticatedMutation(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/profile", nil)
	req.Header.Set("Authorization", "Bearer valid-token")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}

// TestRouter_InvalidTokenRejected は検証に失敗するトークンが401になることを検証する。
func TestRouter_InvalidTokenRejected(t *testing.T) {
	router := NewRouter(&RouterDeps{
		TokenVerifier: &mockTokenVerifier{
			verifyFn: func(ctx context.Context, raw string) (*auth.Claims, error) {
				return nil, model.NewInvalidTokenError("invalid signature")
			},
		},
		UserResolver:  &mockUserResolver{},
		HealthChecker: &mockHealthChecker{},
		PostService:   &mockPostService{},
		CommentService: &mockCommentService{},
		UserService:   &mockUserService{},
	})

	req := httptest.NewRequest(http.MethodPost, "/posts", nil)
	req.Header.Set("Authorization", "Bearer tampered-token")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}
