// Package user は外部IdPのsubjectとローカルユーザーの対応付けを提供する。
package user

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/picshare/internal/model"
	"github.com/hitoshi/picshare/internal/repository"
)

// Directory はローカルユーザーの解決・作成・更新のビジネスロジックを提供する。
type Directory struct {
	repo repository.UserRepository
}

// NewDirectory はDirectoryを生成する。
func NewDirectory(repo repository.UserRepository) *Directory {
	return &Directory{repo: repo}
}

// ResolveOrCreate はsubjectに対応するローカルユーザーを返し、存在しなければ作成する。
// 冪等であり、同一subjectに対する並行した初回呼び出しでも作成される行は1つに限られる。
// external_subjectの一意制約を最終防壁とし、INSERTの制約違反は
// 「並行した呼び出しが先に作成した」ものとして再読込で解決する。
func (d *Directory) ResolveOrCreate(ctx context.Context, subject, email string) (*model.User, error) {
	if subject == "" {
		return nil, fmt.Errorf("subject is required")
	}

	existing, err := d.repo.FindBySubject(ctx, subject)
	if err != nil {
		return nil, fmt.Errorf("failed to look up user by subject: %w", err)
	}
	if existing != nil {
		return existing, nil
	}

	created, err := d.create(ctx, subject, deriveUsername(subject, email))
	if err == nil {
		return created, nil
	}

	var dup *repository.DuplicateKeyError
	if !errors.As(err, &dup) {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	// 一意制約違反: まずはsubjectの衝突（並行作成）とみなして再読込する
	winner, err := d.repo.FindBySubject(ctx, subject)
	if err != nil {
		return nil, fmt.Errorf("failed to re-read user after conflict: %w", err)
	}
	if winner != nil {
		return winner, nil
	}

	// subjectの行が無いのにINSERTが弾かれた: username側の衝突。
	// subject由来の決定的なフォールバック名で1回だけ再試行する。
	fallback := fallbackUsername(subject)
	if fallback != deriveUsername(subject, email) {
		created, err = d.create(ctx, subject, fallback)
		if err == nil {
			return created, nil
		}
		if !errors.As(err, &dup) {
			return nil, fmt.Errorf("failed to create user with fallback username: %w", err)
		}
		winner, err = d.repo.FindBySubject(ctx, subject)
		if err != nil {
			return nil, fmt.Errorf("failed to re-read user after conflict: %w", err)
		}
		if winner != nil {
			return winner, nil
		}
	}

	// 制約違反後の再読込でも行が見つからない: ストレージの整合性異常
	slog.Error("user creation conflict could not be resolved",
		slog.String("subject", subject),
	)
	return nil, model.NewUserConflictError()
}

// create は新しいユーザー行を組み立てて永続化する。
func (d *Directory) create(ctx context.Context, subject, username string) (*model.User, error) {
	now := time.Now()
	u := &model.User{
		ID:              uuid.New().String(),
		Username:        username,
		ExternalSubject: subject,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := d.repo.Create(ctx, u); err != nil {
		return nil, err
	}

	slog.Info("new user created",
		slog.String("user_id", u.ID),
		slog.String("username", u.Username),
	)
	return u, nil
}

// UpdateUsername は指定ユーザーのusernameを更新する。
// 別ユーザーが既に使用している場合はfalseを返す（エラーではない）。
// 事前チェックと書き込みは原子的ではないため、最終的な一意性は
// ストレージの一意制約が保証し、書き込み時の制約違反もfalseとして扱う。
func (d *Directory) UpdateUsername(ctx context.Context, userID, newUsername string) (bool, error) {
	taken, err := d.repo.FindByUsername(ctx, newUsername)
	if err != nil {
		return false, fmt.Errorf("failed to check username availability: %w", err)
	}
	if taken != nil && taken.ID != userID {
		return false, nil
	}

	if err := d.repo.UpdateUsername(ctx, userID, newUsername, time.Now()); err != nil {
		var dup *repository.DuplicateKeyError
		if errors.As(err, &dup) {
			return false, nil
		}
		return false, fmt.Errorf("failed to update username: %w", err)
	}

	slog.Info("username updated",
		slog.String("user_id", userID),
		slog.String("username", newUsername),
	)
	return true, nil
}

// Profile は指定IDのユーザーを返す。存在しない場合はUSER_NOT_FOUNDを返す。
func (d *Directory) Profile(ctx context.Context, userID string) (*model.User, error) {
	u, err := d.repo.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if u == nil {
		return nil, model.NewUserNotFoundError()
	}
	return u, nil
}

// deriveUsername は初回作成時のusernameを導出する。
// emailがあればそれを使い、無ければsubject由来の決定的な名前に落とす。
func deriveUsername(subject, email string) string {
	email = strings.TrimSpace(email)
	if email != "" {
		return email
	}
	return fallbackUsername(subject)
}

// fallbackUsername はsubjectから決定的に導出されるusernameを返す。
func fallbackUsername(subject string) string {
	sum := sha256.Sum256([]byte(subject))
	return "user-" + hex.EncodeToString(sum[:6])
}
