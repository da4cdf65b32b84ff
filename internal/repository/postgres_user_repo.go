package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hitoshi/picshare/internal/model"
)

// PostgresUserRepo はPostgreSQLを使用したユーザーリポジトリ。
type PostgresUserRepo struct {
	db *sql.DB
}

// NewPostgresUserRepo はPostgresUserRepoを生成する。
func NewPostgresUserRepo(db *sql.DB) *PostgresUserRepo {
	return &PostgresUserRepo{db: db}
}

// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
func (r *PostgresUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	return r.findBy(ctx, `WHERE id = $1`, id)
}

// FindBySubject はexternal_subjectでユーザーを検索する。見つからない場合はnilを返す。
func (r *PostgresUserRepo) FindBySubject(ctx context.Context, subject string) (*model.User, error) {
	return r.findBy(ctx, `WHERE external_subject = $1`, subject)
}

// FindByUsername はusernameでユーザーを検索する。見つからない場合はnilを返す。
func (r *PostgresUserRepo) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	return r.findBy(ctx, `WHERE username = $1`, username)
}

// findBy は単一条件でのユーザー検索を共通化する。
func (r *PostgresUserRepo) findBy(ctx context.Context, where string, arg any) (*model.User, error) {
	user := &model.User{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, username, external_subject, created_at, updated_at FROM users `+where,
		arg,
	).Scan(&user.ID, &user.Username, &user.ExternalSubject, &user.CreatedAt, &user.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	return user, nil
}

// Create はユーザーを作成する。
// 一意制約違反は*DuplicateKeyErrorとして返す。
func (r *PostgresUserRepo) Create(ctx context.Context, user *model.User) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (id, username, external_subject, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		user.ID, user.Username, user.ExternalSubject, user.CreatedAt, user.UpdatedAt,
	)
	if err != nil {
		return translateError(err)
	}
	return nil
}

// UpdateUsername は指定ユーザーのusernameを更新する。
// 一意制約違反は*DuplicateKeyErrorとして返す。
func (r *PostgresUserRepo) UpdateUsername(ctx context.Context, id, username string, updatedAt time.Time) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE users SET username = $2, updated_at = $3 WHERE id = $1`,
		id, username, updatedAt,
	)
	if err != nil {
		return translateError(err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("user not found: %s", id)
	}
	return nil
}

// compile-time interface check
var _ UserRepository = (*PostgresUserRepo)(nil)
