package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/hitoshi/picshare/internal/model"
)

// usernameMinLength はusernameに要求する最小文字数。
const usernameMinLength = 3

// UserServiceInterface はユーザーハンドラーが必要とするサービスインターフェース。
type UserServiceInterface interface {
	// UpdateUsername はusernameを更新する。既に使用されている場合はfalseを返す。
	UpdateUsername(ctx context.Context, userID, newUsername string) (bool, error)
	// Profile は指定IDのユーザーを返す。
	Profile(ctx context.Context, userID string) (*model.User, error)
}

// UserHandler はユーザー管理のHTTPハンドラー。
type UserHandler struct {
	service UserServiceInterface
}

// NewUserHandler はUserHandlerを生成する。
func NewUserHandler(service UserServiceInterface) *UserHandler {
	return &UserHandler{service: service}
}

// updateUsernameRequest はusername更新リクエストのボディ。
type updateUsernameRequest struct {
	Username string `json:"username"`
}

// profileResponse はプロフィールのレスポンス。
// emailは永続化せず、トークンのclaimから都度返す。
type profileResponse struct {
	ID              string `json:"id"`
	Username        string `json:"username"`
	ExternalSubject string `json:"external_subject"`
	Email           string `json:"email,omitempty"`
}

// UpdateUsername は呼び出し元自身のusernameを更新する。
// PUT /user/username
func (h *UserHandler) UpdateUsername(w http.ResponseWriter, r *http.Request) {
	id, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	var req updateUsernameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestBodyError())
		return
	}

	username := strings.TrimSpace(req.Username)
	if username == "" {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewUsernameRequiredError())
		return
	}
	if utf8.RuneCountInString(username) < usernameMinLength {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewUsernameTooShortError())
		return
	}

	updated, err := h.service.UpdateUsername(r.Context(), id.UserID, username)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	if !updated {
		writeAPIErrorResponse(w, http.StatusConflict, model.NewUsernameTakenError())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message":  "Username updated successfully",
		"username": username,
	})
}

// GetProfile は呼び出し元自身のプロフィールを取得する。
// GET /profile
func (h *UserHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	id, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	u, err := h.service.Profile(r.Context(), id.UserID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, profileResponse{
		ID:              u.ID,
		Username:        u.Username,
		ExternalSubject: u.ExternalSubject,
		Email:           id.Email,
	})
}
