package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/picshare/internal/model"
)

// CommentServiceInterface はコメントハンドラーが必要とするサービスインターフェース。
type CommentServiceInterface interface {
	// Create は指定投稿にコメントを作成する。
	Create(ctx context.Context, postID, authorID, text string) (*model.Comment, error)
	// ListForPost は指定投稿のコメントをcreated_at昇順で返す。
	ListForPost(ctx context.Context, postID string) ([]model.CommentWithAuthor, error)
}

// CommentMetrics はコメント作成の計測インターフェース。nilでもよい。
type CommentMetrics interface {
	RecordCommentCreated()
}

// CommentHandler はコメント管理のHTTPハンドラー。
type CommentHandler struct {
	service CommentServiceInterface
	metrics CommentMetrics
}

// NewCommentHandler はCommentHandlerを生成する。
func NewCommentHandler(service CommentServiceInterface, metrics CommentMetrics) *CommentHandler {
	return &CommentHandler{
		service: service,
		metrics: metrics,
	}
}

// createCommentRequest はコメント作成リクエストのボディ。
type createCommentRequest struct {
	PostID string `json:"post_id"`
	Text   string `json:"text"`
}

// CreateComment は指定投稿にコメントを作成する。
// POST /comments
func (h *CommentHandler) CreateComment(w http.ResponseWriter, r *http.Request) {
	id, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	var req createCommentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestBodyError())
		return
	}

	c, err := h.service.Create(r.Context(), req.PostID, id.UserID, req.Text)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	if h.metrics != nil {
		h.metrics.RecordCommentCreated()
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"message":    "Comment added",
		"comment_id": c.ID,
	})
}

// ListComments は指定投稿のコメント一覧を取得する。認証不要。
// GET /posts/{id}/comments
func (h *CommentHandler) ListComments(w http.ResponseWriter, r *http.Request) {
	postID := chi.URLParam(r, "id")

	comments, err := h.service.ListForPost(r.Context(), postID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	responses := make([]commentResponse, len(comments))
	for i, c := range comments {
		responses[i] = commentResponse{Text: c.Text, Author: c.Username}
	}

	writeJSON(w, http.StatusOK, responses)
}
