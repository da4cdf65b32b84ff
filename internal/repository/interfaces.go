// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"time"

	"github.com/hitoshi/picshare/internal/model"
)

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// FindBySubject はexternal_subjectでユーザーを検索する。見つからない場合はnilを返す。
	FindBySubject(ctx context.Context, subject string) (*model.User, error)

	// FindByUsername はusernameでユーザーを検索する。見つからない場合はnilを返す。
	FindByUsername(ctx context.Context, username string) (*model.User, error)

	// Create はユーザーを作成する。
	// username または external_subject の一意制約に違反した場合は
	// *DuplicateKeyError を返す。
	Create(ctx context.Context, user *model.User) error

	// UpdateUsername は指定ユーザーのusernameを更新する。
	// 一意制約に違反した場合は*DuplicateKeyErrorを返す。
	UpdateUsername(ctx context.Context, id, username string, updatedAt time.Time) error
}

// PostRepository は投稿データの永続化インターフェース。
type PostRepository interface {
	// Create は投稿を作成する。
	Create(ctx context.Context, post *model.Post) error

	// FindByID は指定IDの投稿を画像データ込みで取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Post, error)

	// FindByIDWithAuthor は指定IDの投稿を所有者のusername付きで取得する。
	// 見つからない場合はnilを返す。
	FindByIDWithAuthor(ctx context.Context, id string) (*model.PostWithAuthor, error)

	// Exists は指定IDの投稿が存在するかを返す。画像データは読み込まない。
	Exists(ctx context.Context, id string) (bool, error)

	// ListWithAuthors は全投稿を所有者のusername付きでcreated_at降順に返す。
	ListWithAuthors(ctx context.Context) ([]model.PostWithAuthor, error)

	// Update は指定投稿のフィールドを1文の原子的なUPDATEで更新する。
	// nilのフィールドは変更されない。imageとmimeTypeは揃って渡すこと。
	// 更新時は必ずupdated_atが設定される。
	Update(ctx context.Context, id string, description *string, image []byte, mimeType *string, updatedAt time.Time) error

	// Delete は指定IDの投稿を削除する。コメントはスキーマのCASCADEで
	// 同一文のトランザクション内で一緒に削除される。
	Delete(ctx context.Context, id string) error
}

// CommentRepository はコメントデータの永続化インターフェース。
type CommentRepository interface {
	// Create はコメントを作成する。
	// post_idの外部キー制約に違反した場合は*ForeignKeyErrorを返す。
	Create(ctx context.Context, comment *model.Comment) error

	// ListByPost は指定投稿のコメントを投稿者のusername付きで
	// created_at昇順に返す。
	ListByPost(ctx context.Context, postID string) ([]model.CommentWithAuthor, error)
}
