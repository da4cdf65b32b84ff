package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hitoshi/picshare/internal/model"
)

// PostgresPostRepo はPostgreSQLを使用した投稿リポジトリ。
// 画像はBYTEA（バイナリ）で保存する。ワイヤ上のbase64表現との変換は
// 上位層のimagingパッケージが行い、ここではバイト列をそのまま扱う。
type PostgresPostRepo struct {
	db *sql.DB
}

// NewPostgresPostRepo はPostgresPostRepoを生成する。
func NewPostgresPostRepo(db *sql.DB) *PostgresPostRepo {
	return &PostgresPostRepo{db: db}
}

// Create は投稿を作成する。
func (r *PostgresPostRepo) Create(ctx context.Context, post *model.Post) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO posts (id, owner_id, filename, description, image, mime_type, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		post.ID, post.OwnerID, post.Filename, post.Description, post.Image, post.MimeType, post.CreatedAt,
	)
	if err != nil {
		return translateError(err)
	}
	return nil
}

// FindByID は指定IDの投稿を画像データ込みで取得する。見つからない場合はnilを返す。
func (r *PostgresPostRepo) FindByID(ctx context.Context, id string) (*model.Post, error) {
	post := &model.Post{}
	var updatedAt sql.NullTime
	err := r.db.QueryRowContext(ctx,
		`SELECT id, owner_id, filename, description, image, mime_type, created_at, updated_at
		 FROM posts WHERE id = $1`,
		id,
	).Scan(&post.ID, &post.OwnerID, &post.Filename, &post.Description,
		&post.Image, &post.MimeType, &post.CreatedAt, &updatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find post: %w", err)
	}

	if updatedAt.Valid {
		post.UpdatedAt = &updatedAt.Time
	}
	return post, nil
}

// FindByIDWithAuthor は指定IDの投稿を所有者のusername付きで取得する。
// 見つからない場合はnilを返す。
func (r *PostgresPostRepo) FindByIDWithAuthor(ctx context.Context, id string) (*model.PostWithAuthor, error) {
	post := &model.PostWithAuthor{}
	var updatedAt sql.NullTime
	err := r.db.QueryRowContext(ctx,
		`SELECT p.id, p.owner_id, p.filename, p.description, p.image, p.mime_type,
		        p.created_at, p.updated_at, u.username
		 FROM posts p
		 JOIN users u ON p.owner_id = u.id
		 WHERE p.id = $1`,
		id,
	).Scan(&post.ID, &post.OwnerID, &post.Filename, &post.Description,
		&post.Image, &post.MimeType, &post.CreatedAt, &updatedAt, &post.Username)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find post with author: %w", err)
	}

	if updatedAt.Valid {
		post.UpdatedAt = &updatedAt.Time
	}
	return post, nil
}

// Exists は指定IDの投稿が存在するかを返す。画像データは読み込まない。
func (r *PostgresPostRepo) Exists(ctx context.Context, id string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM posts WHERE id = $1)`,
		id,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check post existence: %w", err)
	}
	return exists, nil
}

// ListWithAuthors は全投稿を所有者のusername付きでcreated_at降順に返す。
func (r *PostgresPostRepo) ListWithAuthors(ctx context.Context) ([]model.PostWithAuthor, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT p.id, p.owner_id, p.filename, p.description, p.image, p.mime_type,
		        p.created_at, p.updated_at, u.username
		 FROM posts p
		 JOIN users u ON p.owner_id = u.id
		 ORDER BY p.created_at DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list posts: %w", err)
	}
	defer rows.Close()

	var posts []model.PostWithAuthor
	for rows.Next() {
		var post model.PostWithAuthor
		var updatedAt sql.NullTime
		if err := rows.Scan(&post.ID, &post.OwnerID, &post.Filename, &post.Description,
			&post.Image, &post.MimeType, &post.CreatedAt, &updatedAt, &post.Username); err != nil {
			return nil, fmt.Errorf("failed to scan post row: %w", err)
		}
		if updatedAt.Valid {
			post.UpdatedAt = &updatedAt.Time
		}
		posts = append(posts, post)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate post rows: %w", err)
	}

	return posts, nil
}

// Update は指定投稿のフィールドを1文の原子的なUPDATEで更新する。
// nilのフィールドはCOALESCEにより現在値が維持される。
func (r *PostgresPostRepo) Update(ctx context.Context, id string, description *string, image []byte, mimeType *string, updatedAt time.Time) error {
	var desc, mime sql.NullString
	if description != nil {
		desc = sql.NullString{String: *description, Valid: true}
	}
	if mimeType != nil {
		mime = sql.NullString{String: *mimeType, Valid: true}
	}

	result, err := r.db.ExecContext(ctx,
		`UPDATE posts
		 SET description = COALESCE($2, description),
		     image       = COALESCE($3, image),
		     mime_type   = COALESCE($4, mime_type),
		     updated_at  = $5
		 WHERE id = $1`,
		id, desc, image, mime, updatedAt,
	)
	if err != nil {
		return translateError(err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("post not found: %s", id)
	}
	return nil
}

// Delete は指定IDの投稿を削除する。関連コメントはCASCADE削除される。
func (r *PostgresPostRepo) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM posts WHERE id = $1`,
		id,
	)
	if err != nil {
		return fmt.Errorf("failed to delete post: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("post not found: %s", id)
	}
	return nil
}

// compile-time interface check
var _ PostRepository = (*PostgresPostRepo)(nil)
