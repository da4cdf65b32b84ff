package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/picshare/internal/model"
)

// PostgresCommentRepo はPostgreSQLを使用したコメントリポジトリ。
type PostgresCommentRepo struct {
	db *sql.DB
}

// NewPostgresCommentRepo はPostgresCommentRepoを生成する。
func NewPostgresCommentRepo(db *sql.DB) *PostgresCommentRepo {
	return &PostgresCommentRepo{db: db}
}

// Create はコメントを作成する。
// 投稿が存在しない場合は外部キー制約により*ForeignKeyErrorを返す。
func (r *PostgresCommentRepo) Create(ctx context.Context, comment *model.Comment) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO comments (id, post_id, author_id, body, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		comment.ID, comment.PostID, comment.AuthorID, comment.Text, comment.CreatedAt,
	)
	if err != nil {
		return translateError(err)
	}
	return nil
}

// ListByPost は指定投稿のコメントを投稿者のusername付きでcreated_at昇順に返す。
func (r *PostgresCommentRepo) ListByPost(ctx context.Context, postID string) ([]model.CommentWithAuthor, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT c.id, c.post_id, c.author_id, c.body, c.created_at, u.username
		 FROM comments c
		 JOIN users u ON c.author_id = u.id
		 WHERE c.post_id = $1
		 ORDER BY c.created_at ASC`,
		postID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list comments: %w", err)
	}
	defer rows.Close()

	var comments []model.CommentWithAuthor
	for rows.Next() {
		var c model.CommentWithAuthor
		if err := rows.Scan(&c.ID, &c.PostID, &c.AuthorID, &c.Text, &c.CreatedAt, &c.Username); err != nil {
			return nil, fmt.Errorf("failed to scan comment row: %w", err)
		}
		comments = append(comments, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate comment rows: %w", err)
	}

	return comments, nil
}

// compile-time interface check
var _ CommentRepository = (*PostgresCommentRepo)(nil)
