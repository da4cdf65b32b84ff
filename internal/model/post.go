// Package model はドメインモデルを定義する。
package model

import "time"

// Post はユーザーが投稿した画像付き投稿を表す。
// Image は常にバイナリ（デコード済み）で保持し、ワイヤ上のbase64表現との
// 変換はimagingパッケージが担う。Image と MimeType は必ず揃って設定される。
// UpdatedAt は初回の更新が行われるまでnil。
type Post struct {
	ID          string
	OwnerID     string
	Filename    string
	Description string
	Image       []byte
	MimeType    string
	CreatedAt   time.Time
	UpdatedAt   *time.Time
}

// PostWithAuthor は投稿と所有ユーザーのusernameを結合したモデル。
// usersテーブルとJOINして取得される。
type PostWithAuthor struct {
	Post
	Username string
}
