package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/picshare/internal/model"
	"github.com/hitoshi/picshare/internal/post"
)

// PostServiceInterface は投稿ハンドラーが必要とするサービスインターフェース。
type PostServiceInterface interface {
	// Create は新しい投稿を作成する。imageB64はワイヤのbase64テキスト。
	Create(ctx context.Context, ownerID, filename, description, imageB64, mimeType string) (*model.Post, error)
	// List は全投稿をcreated_at降順でコメント付きで返す。
	List(ctx context.Context) ([]post.Summary, error)
	// Get は指定IDの投稿をコメント付きで返す。
	Get(ctx context.Context, id string) (*post.Summary, error)
	// Update は指定投稿を更新し、更新したフィールド名のリストを返す。
	Update(ctx context.Context, id, requesterID string, in post.UpdateInput) ([]string, error)
	// Delete は指定投稿を削除する。
	Delete(ctx context.Context, id, requesterID string) error
	// Download は画像バイナリと保存されたファイル名・MIMEタイプを返す。
	Download(ctx context.Context, id string) (*post.DownloadResult, error)
	// EncodeImage は画像バイナリをワイヤのbase64テキストに変換する。
	EncodeImage(image []byte) string
}

// PostMetrics は投稿作成の計測インターフェース。nilでもよい。
type PostMetrics interface {
	RecordPostCreated()
	RecordImageBytes(n int)
}

// PostHandler は投稿管理のHTTPハンドラー。
type PostHandler struct {
	service PostServiceInterface
	metrics PostMetrics
}

// NewPostHandler はPostHandlerを生成する。
func NewPostHandler(service PostServiceInterface, metrics PostMetrics) *PostHandler {
	return &PostHandler{
		service: service,
		metrics: metrics,
	}
}

// --- リクエスト・レスポンス型 ---

// createPostRequest は投稿作成リクエストのボディ。
type createPostRequest struct {
	Filename    string `json:"filename"`
	Description string `json:"description"`
	Image       string `json:"image"`
	MimeType    string `json:"mime_type"`
}

// updatePostRequest は投稿更新リクエストのボディ。nilのフィールドは変更しない。
type updatePostRequest struct {
	Description *string `json:"description,omitempty"`
	Image       *string `json:"image,omitempty"`
	MimeType    *string `json:"mime_type,omitempty"`
}

// commentResponse はレスポンスに埋め込むコメント表現。
type commentResponse struct {
	Text   string `json:"text"`
	Author string `json:"author"`
}

// postResponse は投稿一覧・詳細のレスポンス。
// uploaded_atはUnix秒（元のクライアント互換）。
type postResponse struct {
	ID          string            `json:"id"`
	Description string            `json:"description"`
	Username    string            `json:"username"`
	UploadedAt  int64             `json:"uploaded_at"`
	Comments    []commentResponse `json:"comments"`
	MimeType    string            `json:"mime_type"`
	Image       string            `json:"image"`
}

// toPostResponse は投稿サマリーをレスポンス型に変換する。
func (h *PostHandler) toPostResponse(s *post.Summary) postResponse {
	comments := make([]commentResponse, len(s.Comments))
	for i, c := range s.Comments {
		comments[i] = commentResponse{Text: c.Text, Author: c.Username}
	}
	return postResponse{
		ID:          s.ID,
		Description: s.Description,
		Username:    s.Username,
		UploadedAt:  s.CreatedAt.Unix(),
		Comments:    comments,
		MimeType:    s.MimeType,
		Image:       h.service.EncodeImage(s.Image),
	}
}

// CreatePost は新しい投稿を作成する。
// POST /posts
func (h *PostHandler) CreatePost(w http.ResponseWriter, r *http.Request) {
	id, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	var req createPostRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestBodyError())
		return
	}

	p, err := h.service.Create(r.Context(), id.UserID, req.Filename, req.Description, req.Image, req.MimeType)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	if h.metrics != nil {
		h.metrics.RecordPostCreated()
		h.metrics.RecordImageBytes(len(p.Image))
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"message": "Post created successfully",
		"post_id": p.ID,
	})
}

// ListPosts は全投稿をコメント付きで取得する。認証不要。
// GET /posts
func (h *PostHandler) ListPosts(w http.ResponseWriter, r *http.Request) {
	summaries, err := h.service.List(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	responses := make([]postResponse, len(summaries))
	for i := range summaries {
		responses[i] = h.toPostResponse(&summaries[i])
	}

	writeJSON(w, http.StatusOK, responses)
}

// GetPost は指定IDの投稿を取得する。認証不要。
// GET /posts/{id}
func (h *PostHandler) GetPost(w http.ResponseWriter, r *http.Request) {
	postID := chi.URLParam(r, "id")

	s, err := h.service.Get(r.Context(), postID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, h.toPostResponse(s))
}

// UpdatePost は指定投稿のdescriptionと画像を更新する。所有者のみ。
// PATCH /posts/{id}
func (h *PostHandler) UpdatePost(w http.ResponseWriter, r *http.Request) {
	id, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	postID := chi.URLParam(r, "id")

	var req updatePostRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestBodyError())
		return
	}

	updatedFields, err := h.service.Update(r.Context(), postID, id.UserID, post.UpdateInput{
		Description: req.Description,
		Image:       req.Image,
		MimeType:    req.MimeType,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message":        "Post updated successfully",
		"updated_fields": updatedFields,
	})
}

// DeletePost は指定投稿を削除する。所有者のみ。
// DELETE /posts/{id}
func (h *PostHandler) DeletePost(w http.ResponseWriter, r *http.Request) {
	id, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	postID := chi.URLParam(r, "id")

	if err := h.service.Delete(r.Context(), postID, id.UserID); err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Post deleted successfully",
	})
}

// DownloadImage は投稿画像をバイナリのままダウンロードさせる。認証不要。
// GET /images/download/{id}
func (h *PostHandler) DownloadImage(w http.ResponseWriter, r *http.Request) {
	postID := chi.URLParam(r, "id")

	result, err := h.service.Download(r.Context(), postID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", result.MimeType)
	w.Header().Set("Content-Length", strconv.Itoa(len(result.Image)))
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", result.Filename))
	w.WriteHeader(http.StatusOK)
	w.Write(result.Image)
}
