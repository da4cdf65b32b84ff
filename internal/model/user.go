// Package model はドメインモデルを定義する。
package model

import "time"

// User はサービス利用ユーザーを表す。
// ExternalSubject は外部IdPが発行する安定した識別子（sub claim）で、
// 初回認証時にローカルユーザーと1対1で紐付けられる。
// username と external_subject はともに一意。
type User struct {
	ID              string
	Username        string
	ExternalSubject string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
