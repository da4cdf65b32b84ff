package user

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hitoshi/picshare/internal/model"
	"github.com/hitoshi/picshare/internal/repository"
)

// --- モック ---

type mockUserRepo struct {
	findByIDFn       func(ctx context.Context, id string) (*model.User, error)
	findBySubjectFn  func(ctx context.Context, subject string) (*model.User, error)
	findByUsernameFn func(ctx context.Context, username string) (*model.User, error)
	createFn         func(ctx context.Context, user *model.User) error
	updateUsernameFn func(ctx context.Context, id, username string, updatedAt time.Time) error
}

func (m *mockUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, nil
}
func (m *mockUserRepo) FindBySubject(ctx context.Context, subject string) (*model.User, error) {
	if m.findBySubjectFn != nil {
		return m.findBySubjectFn(ctx, subject)
	}
	return nil, nil
}
func (m *mockUserRepo) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	if m.findByUsernameFn != nil {
		return m.findByUsernameFn(ctx, username)
	}
	return nil, nil
}
func (m *mockUserRepo) Create(ctx context.Context, user *model.User) error {
	if m.createFn != nil {
		return m.createFn(ctx, user)
	}
	return nil
}
func (m *mockUserRepo) UpdateUsername(ctx context.Context, id, username string, updatedAt time.Time) error {
	if m.updateUsernameFn != nil {
		return m.updateUsernameFn(ctx, id, username, updatedAt)
	}
	return nil
}

// compile-time interface check
var _ repository.UserRepository = (*mockUserRepo)(nil)

// --- テスト ---

// TestDirectory_ResolveOrCreate_Existing は既存ユーザーがそのまま返り、
// 新規作成が行われないことを検証する。
func TestDirectory_ResolveOrCreate_Existing(t *testing.T) {
	existing := &model.User{ID: "u1", Username: "alice@example.com", ExternalSubject: "idp|123"}
	createCalled := false

	repo := &mockUserRepo{
		findBySubjectFn: func(ctx context.Context, subject string) (*model.User, error) {
			if subject != "idp|123" {
				t.Errorf("subject = %s", subject)
			}
			return existing, nil
		},
		createFn: func(ctx context.Context, user *model.User) error {
			createCalled = true
			return nil
		},
	}

	d := NewDirectory(repo)
	got, err := d.ResolveOrCreate(context.Background(), "idp|123", "alice@example.com")
	if err != nil {
		t.Fatalf("ResolveOrCreate failed: %v", err)
	}
	if got.ID != "u1" {
		t.Errorf("ID = %s, want u1", got.ID)
	}
	if createCalled {
		t.Error("Create should not be called for existing user")
	}
}

// TestDirectory_ResolveOrCreate_CreatesWithEmail は初回呼び出しで
// email由来のusernameを持つユーザーが作成されることを検証する。
func TestDirectory_ResolveOrCreate_CreatesWithEmail(t *testing.T) {
	var created *model.User

	repo := &mockUserRepo{
		createFn: func(ctx context.Context, user *model.User) error {
			created = user
			return nil
		},
	}

	d := NewDirectory(repo)
	got, err := d.ResolveOrCreate(context.Background(), "idp|456", "bob@example.com")
	if err != nil {
		t.Fatalf("ResolveOrCreate failed: %v", err)
	}
	if created == nil {
		t.Fatal("Create should be called")
	}
	if got.Username != "bob@example.com" {
		t.Errorf("Username = %s, want bob@example.com", got.Username)
	}
	if got.ExternalSubject != "idp|456" {
		t.Errorf("ExternalSubject = %s", got.ExternalSubject)
	}
	if got.ID == "" {
		t.Error("ID should be generated")
	}
}

// TestDirectory_ResolveOrCreate_NoEmail はemailが無い場合に
// subject由来の決定的なusernameが使われることを検証する。
func TestDirectory_ResolveOrCreate_NoEmail(t *testing.T) {
	repo := &mockUserRepo{}

	d := NewDirectory(repo)
	first, err := d.ResolveOrCreate(context.Background(), "idp|789", "")
	if err != nil {
		t.Fatalf("ResolveOrCreate failed: %v", err)
	}
	second, err := d.ResolveOrCreate(context.Background(), "idp|789", "")
	if err != nil {
		t.Fatalf("ResolveOrCreate failed: %v", err)
	}

	if first.Username == "" {
		t.Fatal("fallback username should not be empty")
	}
	// 同一subjectからは常に同一のusernameが導出される
	if first.Username != second.Username {
		t.Errorf("fallback username is not deterministic: %s != %s", first.Username, second.Username)
	}
}

// TestDirectory_ResolveOrCreate_ConcurrentCreation は並行した初回呼び出しで
// 一意制約違反になった場合に勝者の行が返ることを検証する。
func TestDirectory_ResolveOrCreate_ConcurrentCreation(t *testing.T) {
	winner := &model.User{ID: "winner", Username: "carol@example.com", ExternalSubject: "idp|abc"}
	lookups := 0

	repo := &mockUserRepo{
		findBySubjectFn: func(ctx context.Context, subject string) (*model.User, error) {
			lookups++
			// 初回の検索では未作成、制約違反後の再読込で勝者が見える
			if lookups == 1 {
				return nil, nil
			}
			return winner, nil
		},
		createFn: func(ctx context.Context, user *model.User) error {
			return &repository.DuplicateKeyError{Constraint: "users_external_subject_key"}
		},
	}

	d := NewDirectory(repo)
	got, err := d.ResolveOrCreate(context.Background(), "idp|abc", "carol@example.com")
	if err != nil {
		t.Fatalf("ResolveOrCreate failed: %v", err)
	}
	if got.ID != "winner" {
		t.Errorf("ID = %s, want winner", got.ID)
	}
}

// TestDirectory_ResolveOrCreate_UsernameCollision は別ユーザーが同じusernameを
// 使用している場合にフォールバック名で再試行されることを検証する。
func TestDirectory_ResolveOrCreate_UsernameCollision(t *testing.T) {
	var usernames []string

	repo := &mockUserRepo{
		createFn: func(ctx context.Context, user *model.User) error {
			usernames = append(usernames, user.Username)
			// email由来の名前は別ユーザーが使用中
			if user.Username == "dave@example.com" {
				return &repository.DuplicateKeyError{Constraint: "users_username_key"}
			}
			return nil
		},
	}

	d := NewDirectory(repo)
	got, err := d.ResolveOrCreate(context.Background(), "idp|def", "dave@example.com")
	if err != nil {
		t.Fatalf("ResolveOrCreate failed: %v", err)
	}

	if len(usernames) != 2 {
		t.Fatalf("Create should be attempted twice, got %d", len(usernames))
	}
	if got.Username == "dave@example.com" {
		t.Error("fallback username should differ from the taken one")
	}
}

// TestDirectory_ResolveOrCreate_UnresolvableConflict は制約違反後の再読込でも
// 行が見つからない場合にUSER_CONFLICTになることを検証する。
func TestDirectory_ResolveOrCreate_UnresolvableConflict(t *testing.T) {
	repo := &mockUserRepo{
		createFn: func(ctx context.Context, user *model.User) error {
			return &repository.DuplicateKeyError{Constraint: "users_username_key"}
		},
	}

	d := NewDirectory(repo)
	_, err := d.ResolveOrCreate(context.Background(), "idp|ghi", "eve@example.com")
	if err == nil {
		t.Fatal("ResolveOrCreate should fail")
	}
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeUserConflict {
		t.Errorf("error = %v, want USER_CONFLICT", err)
	}
}

// TestDirectory_ResolveOrCreate_EmptySubject は空のsubjectが拒否されることを検証する。
func TestDirectory_ResolveOrCreate_EmptySubject(t *testing.T) {
	d := NewDirectory(&mockUserRepo{})
	_, err := d.ResolveOrCreate(context.Background(), "", "someone@example.com")
	if err == nil {
		t.Fatal("empty subject should be rejected")
	}
}

// TestDirectory_UpdateUsername_Success はusername更新の成功パスを検証する。
func TestDirectory_UpdateUsername_Success(t *testing.T) {
	updateCalled := false

	repo := &mockUserRepo{
		updateUsernameFn: func(ctx context.Context, id, username string, updatedAt time.Time) error {
			updateCalled = true
			if id != "u1" || username != "newname" {
				t.Errorf("unexpected args: %s, %s", id, username)
			}
			return nil
		},
	}

	d := NewDirectory(repo)
	updated, err := d.UpdateUsername(context.Background(), "u1", "newname")
	if err != nil {
		t.Fatalf("UpdateUsername failed: %v", err)
	}
	if !updated {
		t.Error("updated should be true")
	}
	if !updateCalled {
		t.Error("repository UpdateUsername should be called")
	}
}

// TestDirectory_UpdateUsername_Taken は他ユーザーが使用中のusernameへの
// 変更がfalseになることを検証する。
func TestDirectory_UpdateUsername_Taken(t *testing.T) {
	repo := &mockUserRepo{
		findByUsernameFn: func(ctx context.Context, username string) (*model.User, error) {
			return &model.User{ID: "other", Username: username}, nil
		},
	}

	d := NewDirectory(repo)
	updated, err := d.UpdateUsername(context.Background(), "u1", "taken")
	if err != nil {
		t.Fatalf("UpdateUsername failed: %v", err)
	}
	if updated {
		t.Error("updated should be false when username is taken")
	}
}

// TestDirectory_UpdateUsername_OwnName は自分自身が使用中の名前への
// 変更（no-op）が成功することを検証する。
func TestDirectory_UpdateUsername_OwnName(t *testing.T) {
	repo := &mockUserRepo{
		findByUsernameFn: func(ctx context.Context, username string) (*model.User, error) {
			return &model.User{ID: "u1", Username: username}, nil
		},
	}

	d := NewDirectory(repo)
	updated, err := d.UpdateUsername(context.Background(), "u1", "same")
	if err != nil {
		t.Fatalf("UpdateUsername failed: %v", err)
	}
	if !updated {
		t.Error("renaming to own current name should succeed")
	}
}

// TestDirectory_UpdateUsername_RaceLost は事前チェック通過後に
// 制約違反で負けた場合もfalseになることを検証する。
func TestDirectory_UpdateUsername_RaceLost(t *testing.T) {
	repo := &mockUserRepo{
		updateUsernameFn: func(ctx context.Context, id, username string, updatedAt time.Time) error {
			return &repository.DuplicateKeyError{Constraint: "users_username_key"}
		},
	}

	d := NewDirectory(repo)
	updated, err := d.UpdateUsername(context.Background(), "u1", "contested")
	if err != nil {
		t.Fatalf("UpdateUsername should not fail on constraint violation: %v", err)
	}
	if updated {
		t.Error("updated should be false when the write loses the race")
	}
}

// TestDirectory_Profile_NotFound は存在しないユーザーがUSER_NOT_FOUNDになることを検証する。
func TestDirectory_Profile_NotFound(t *testing.T) {
	d := NewDirectory(&mockUserRepo{})

	_, err := d.Profile(context.Background(), "missing")
	if err == nil {
		t.Fatal("Profile should fail for missing user")
	}
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeUserNotFound {
		t.Errorf("error = %v, want USER_NOT_FOUND", err)
	}
}
