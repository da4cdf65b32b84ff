package comment

import (
	"context"
	"errors"
	"testing"

	"github.com/hitoshi/picshare/internal/model"
	"github.com/hitoshi/picshare/internal/repository"
	"github.com/hitoshi/picshare/internal/security"
)

// --- モック ---

type mockCommentRepo struct {
	createFn     func(ctx context.Context, comment *model.Comment) error
	listByPostFn func(ctx context.Context, postID string) ([]model.CommentWithAuthor, error)
}

func (m *mockCommentRepo) Create(ctx context.Context, comment *model.Comment) error {
	if m.createFn != nil {
		return m.createFn(ctx, comment)
	}
	return nil
}
func (m *mockCommentRepo) ListByPost(ctx context.Context, postID string) ([]model.CommentWithAuthor, error) {
	if m.listByPostFn != nil {
		return m.listByPostFn(ctx, postID)
	}
	return nil, nil
}

type mockPostFinder struct {
	existsFn func(ctx context.Context, id string) (bool, error)
}

func (m *mockPostFinder) Exists(ctx context.Context, id string) (bool, error) {
	if m.existsFn != nil {
		return m.existsFn(ctx, id)
	}
	return false, nil
}

// compile-time interface check
var _ repository.CommentRepository = (*mockCommentRepo)(nil)

func newTestStore(comments *mockCommentRepo, posts *mockPostFinder) *Store {
	return NewStore(comments, posts, security.NewTextSanitizer())
}

func assertAPIErrorCode(t *testing.T, err error, code string) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error with code %s, got nil", code)
	}
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error should be *model.APIError, got %T: %v", err, err)
	}
	if apiErr.Code != code {
		t.Errorf("code = %s, want %s", apiErr.Code, code)
	}
}

func postExists(ctx context.Context, id string) (bool, error) {
	return true, nil
}

// --- テスト ---

// TestStore_Create_Success はコメント作成の成功パスを検証する。
func TestStore_Create_Success(t *testing.T) {
	var created *model.Comment
	comments := &mockCommentRepo{
		createFn: func(ctx context.Context, comment *model.Comment) error {
			created = comment
			return nil
		},
	}

	store := newTestStore(comments, &mockPostFinder{existsFn: postExists})
	c, err := store.Create(context.Background(), "p1", "u1", "  <b>great</b> shot ")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if created == nil {
		t.Fatal("repository Create should be called")
	}
	if c.Text != "great shot" {
		t.Errorf("text should be sanitized and trimmed: %q", c.Text)
	}
	if c.PostID != "p1" || c.AuthorID != "u1" {
		t.Errorf("comment = %+v", c)
	}
	if c.ID == "" {
		t.Error("ID should be generated")
	}
}

// TestStore_Create_MissingPostID はpost_id欠落がPOST_ID_REQUIREDになることを検証する。
func TestStore_Create_MissingPostID(t *testing.T) {
	store := newTestStore(&mockCommentRepo{}, &mockPostFinder{existsFn: postExists})

	_, err := store.Create(context.Background(), "", "u1", "text")
	assertAPIErrorCode(t, err, model.ErrCodePostIDRequired)
}

// TestStore_Create_EmptyText は空または空になる本文がEMPTY_COMMENT_TEXTになることを検証する。
func TestStore_Create_EmptyText(t *testing.T) {
	store := newTestStore(&mockCommentRepo{}, &mockPostFinder{existsFn: postExists})

	for _, text := range []string{"", "   ", "<script>alert(1)</script>"} {
		_, err := store.Create(context.Background(), "p1", "u1", text)
		assertAPIErrorCode(t, err, model.ErrCodeEmptyCommentText)
	}
}

// TestStore_Create_PostNotFound は存在しない投稿へのコメントがPOST_NOT_FOUNDになることを検証する。
func TestStore_Create_PostNotFound(t *testing.T) {
	createCalled := false
	comments := &mockCommentRepo{
		createFn: func(ctx context.Context, comment *model.Comment) error {
			createCalled = true
			return nil
		},
	}

	store := newTestStore(comments, &mockPostFinder{})
	_, err := store.Create(context.Background(), "missing", "u1", "text")
	assertAPIErrorCode(t, err, model.ErrCodePostNotFound)
	if createCalled {
		t.Error("Create should not write for a missing post")
	}
}

// TestStore_Create_PostDeletedDuringCreate は存在チェック通過後に投稿が削除され
// 外部キー制約で弾かれた場合もPOST_NOT_FOUNDになることを検証する。
func TestStore_Create_PostDeletedDuringCreate(t *testing.T) {
	comments := &mockCommentRepo{
		createFn: func(ctx context.Context, comment *model.Comment) error {
			return &repository.ForeignKeyError{Constraint: "comments_post_id_fkey"}
		},
	}

	store := newTestStore(comments, &mockPostFinder{existsFn: postExists})
	_, err := store.Create(context.Background(), "p1", "u1", "text")
	assertAPIErrorCode(t, err, model.ErrCodePostNotFound)
}

// TestStore_ListForPost_Success はコメント一覧がリポジトリの順序のまま返ることを検証する。
func TestStore_ListForPost_Success(t *testing.T) {
	comments := &mockCommentRepo{
		listByPostFn: func(ctx context.Context, postID string) ([]model.CommentWithAuthor, error) {
			return []model.CommentWithAuthor{
				{Comment: model.Comment{ID: "c1", Text: "first"}, Username: "alice"},
				{Comment: model.Comment{ID: "c2", Text: "second"}, Username: "bob"},
			}, nil
		},
	}

	store := newTestStore(comments, &mockPostFinder{existsFn: postExists})
	got, err := store.ListForPost(context.Background(), "p1")
	if err != nil {
		t.Fatalf("ListForPost failed: %v", err)
	}
	if len(got) != 2 || got[0].Text != "first" || got[1].Text != "second" {
		t.Errorf("comments = %+v", got)
	}
}

// TestStore_ListForPost_PostNotFound は存在しない投稿の一覧がPOST_NOT_FOUNDになることを検証する。
func TestStore_ListForPost_PostNotFound(t *testing.T) {
	store := newTestStore(&mockCommentRepo{}, &mockPostFinder{})

	_, err := store.ListForPost(context.Background(), "missing")
	assertAPIErrorCode(t, err, model.ErrCodePostNotFound)
}
