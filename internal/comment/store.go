// Package comment はコメントの作成と取得を提供する。
//
// コメントは既存の投稿に対してのみ作成でき、作成後は不変。
// 投稿の存在はストア自身がINSERT前に検証し、検証とINSERTの間で
// 投稿が削除された競合は外部キー制約で検出して同じ失敗に倒す。
package comment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/picshare/internal/model"
	"github.com/hitoshi/picshare/internal/repository"
	"github.com/hitoshi/picshare/internal/security"
)

// PostFinder は投稿の存在確認インターフェース。
// repository.PostRepositoryの部分集合として定義する。
type PostFinder interface {
	Exists(ctx context.Context, id string) (bool, error)
}

// Store はコメントのビジネスロジックを提供する。
type Store struct {
	comments  repository.CommentRepository
	posts     PostFinder
	sanitizer security.TextSanitizerService
}

// NewStore はStoreを生成する。
func NewStore(comments repository.CommentRepository, posts PostFinder, sanitizer security.TextSanitizerService) *Store {
	return &Store{
		comments:  comments,
		posts:     posts,
		sanitizer: sanitizer,
	}
}

// Create は指定投稿にコメントを作成する。
// 本文はタグ除去とトリムの上で保存され、空になる場合はEMPTY_COMMENT_TEXTを返す。
// 投稿が存在しない場合はPOST_NOT_FOUNDを返す。
func (s *Store) Create(ctx context.Context, postID, authorID, text string) (*model.Comment, error) {
	if postID == "" {
		return nil, model.NewPostIDRequiredError()
	}

	text = strings.TrimSpace(s.sanitizer.Sanitize(text))
	if text == "" {
		return nil, model.NewEmptyCommentTextError()
	}

	exists, err := s.posts.Exists(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("failed to check post existence: %w", err)
	}
	if !exists {
		return nil, model.NewPostNotFoundError()
	}

	c := &model.Comment{
		ID:        uuid.New().String(),
		PostID:    postID,
		AuthorID:  authorID,
		Text:      text,
		CreatedAt: time.Now(),
	}

	if err := s.comments.Create(ctx, c); err != nil {
		// 存在チェックとINSERTの間に投稿が削除された場合
		var fk *repository.ForeignKeyError
		if errors.As(err, &fk) {
			return nil, model.NewPostNotFoundError()
		}
		return nil, fmt.Errorf("failed to create comment: %w", err)
	}

	slog.Info("comment created",
		slog.String("comment_id", c.ID),
		slog.String("post_id", postID),
		slog.String("author_id", authorID),
	)
	return c, nil
}

// ListForPost は指定投稿のコメントをcreated_at昇順で投稿者username付きで返す。
// 投稿が存在しない場合はPOST_NOT_FOUNDを返す。
func (s *Store) ListForPost(ctx context.Context, postID string) ([]model.CommentWithAuthor, error) {
	exists, err := s.posts.Exists(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("failed to check post existence: %w", err)
	}
	if !exists {
		return nil, model.NewPostNotFoundError()
	}

	comments, err := s.comments.ListByPost(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("failed to list comments: %w", err)
	}
	return comments, nil
}
