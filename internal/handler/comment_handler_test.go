package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/picshare/internal/model"
)

// --- モック ---

type mockCommentService struct {
	createFn      func(ctx context.Context, postID, authorID, text string) (*model.Comment, error)
	listForPostFn func(ctx context.Context, postID string) ([]model.CommentWithAuthor, error)
}

func (m *mockCommentService) Create(ctx context.Context, postID, authorID, text string) (*model.Comment, error) {
	return m.createFn(ctx, postID, authorID, text)
}
func (m *mockCommentService) ListForPost(ctx context.Context, postID string) ([]model.CommentWithAuthor, error) {
	return m.listForPostFn(ctx, postID)
}

func newCommentTestRouter(service CommentServiceInterface) http.Handler {
	r := chi.NewRouter()
	h := NewCommentHandler(service, nil)
	r.Post("/comments", h.CreateComment)
	r.Get("/posts/{id}/comments", h.ListComments)
	return r
}

// --- テスト ---

// TestCommentHandler_CreateComment はPOST /commentsの成功パスを検証する。
func TestCommentHandler_CreateComment(t *testing.T) {
	service := &mockCommentService{
		createFn: func(ctx context.Context, postID, authorID, text string) (*model.Comment, error) {
			if postID != "p1" || authorID != "u1" || text != "great shot" {
				t.Errorf("args: %s, %s, %q", postID, authorID, text)
			}
			return &model.Comment{ID: "c1", PostID: postID, AuthorID: authorID, Text: text}, nil
		},
	}
	router := newCommentTestRouter(service)

	body, _ := json.Marshal(map[string]string{"post_id": "p1", "text": "great shot"})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(http.MethodPost, "/comments", body))

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201", rec.Code)
	}
	got := decodeBody(t, rec)
	if got["message"] != "Comment added" {
		t.Errorf("message = %v", got["message"])
	}
	if got["comment_id"] != "c1" {
		t.Errorf("comment_id = %v", got["comment_id"])
	}
}

// TestCommentHandler_CreateComment_PostNotFound は存在しない投稿への
// コメントが404になることを検証する。
func TestCommentHandler_CreateComment_PostNotFound(t *testing.T) {
	service := &mockCommentService{
		createFn: func(ctx context.Context, postID, authorID, text string) (*model.Comment, error) {
			return nil, model.NewPostNotFoundError()
		},
	}
	router := newCommentTestRouter(service)

	body, _ := json.Marshal(map[string]string{"post_id": "missing", "text": "text"})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(http.MethodPost, "/comments", body))

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

// TestCommentHandler_CreateComment_EmptyText は空本文が400になることを検証する。
func TestCommentHandler_CreateComment_EmptyText(t *testing.T) {
	service := &mockCommentService{
		createFn: func(ctx context.Context, postID, authorID, text string) (*model.Comment, error) {
			return nil, model.NewEmptyCommentTextError()
		},
	}
	router := newCommentTestRouter(service)

	body, _ := json.Marshal(map[string]string{"post_id": "p1", "text": "  "})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(http.MethodPost, "/comments", body))

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

// TestCommentHandler_ListComments は一覧レスポンスの形式と順序を検証する。
func TestCommentHandler_ListComments(t *testing.T) {
	service := &mockCommentService{
		listForPostFn: func(ctx context.Context, postID string) ([]model.CommentWithAuthor, error) {
			return []model.CommentWithAuthor{
				{Comment: model.Comment{Text: "first"}, Username: "alice"},
				{Comment: model.Comment{Text: "second"}, Username: "bob"},
			}, nil
		},
	}
	router := newCommentTestRouter(service)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/posts/p1/comments", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var comments []map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&comments); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if len(comments) != 2 {
		t.Fatalf("len = %d, want 2", len(comments))
	}
	if comments[0]["text"] != "first" || comments[0]["author"] != "alice" {
		t.Errorf("comments[0] = %v", comments[0])
	}
	if comments[1]["text"] != "second" || comments[1]["author"] != "bob" {
		t.Errorf("comments[1] = %v", comments[1])
	}
}
