// Package model はドメインモデルを定義する。
package model

import "time"

// Comment は投稿へのコメントを表す。作成後は不変。
// 投稿が削除された場合はスキーマのCASCADEで一緒に削除される。
type Comment struct {
	ID        string
	PostID    string
	AuthorID  string
	Text      string
	CreatedAt time.Time
}

// CommentWithAuthor はコメントと投稿者のusernameを結合したモデル。
type CommentWithAuthor struct {
	Comment
	Username string
}
