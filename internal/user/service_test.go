package user

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/hitoshi/goatnotes/internal/model"
)

// --- モック ---

type mockUserRepo struct {
	findByIDFn   func(ctx context.Context, id string) (*model.User, error)
	deleteByIDFn func(ctx context.Context, id string) error
}

func (m *mockUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, nil
}
func (m *mockUserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	return nil, nil
}
func (m *mockUserRepo) Create(ctx context.Context, user *model.User) error {
	return nil
}
func (m *mockUserRepo) DeleteByID(ctx context.Context, id string) error {
	return m.deleteByIDFn(ctx, id)
}

type mockSessionRepo struct {
	deleteByUserIDFn func(ctx context.Context, userID string) error
}

func (m *mockSessionRepo) Create(ctx context.Context, session *model.Session) error {
	return nil
}
func (m *mockSessionRepo) FindByID(ctx context.Context, id string) (*model.Session, error) {
	return nil, nil
}
func (m *mockSessionRepo) DeleteByID(ctx context.Context, id string) error {
	return nil
}
func (m *mockSessionRepo) DeleteByUserID(ctx context.Context, userID string) error {
	return m.deleteByUserIDFn(ctx, userID)
}

type mockNoteDeleter struct {
	deleteByAuthorFn func(ctx context.Context, authorID string) error
}

func (m *mockNoteDeleter) DeleteByAuthor(ctx context.Context, authorID string) error {
	return m.deleteByAuthorFn(ctx, authorID)
}

// --- テスト ---

// TestService_Withdraw は退会処理が全関連データを順に削除することを検証する。
func TestService_Withdraw(t *testing.T) {
	var calls []string

	userRepo := &mockUserRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.User, error) {
			return &model.User{ID: id, Email: "test@example.com"}, nil
		},
		deleteByIDFn: func(ctx context.Context, id string) error {
			calls = append(calls, "user")
			return nil
		},
	}
	sessionRepo := &mockSessionRepo{
		deleteByUserIDFn: func(ctx context.Context, userID string) error {
			calls = append(calls, "sessions")
			return nil
		},
	}
	noteDeleter := &mockNoteDeleter{
		deleteByAuthorFn: func(ctx context.Context, authorID string) error {
			if authorID != "user-1" {
				t.Errorf("authorID = %q, want %q", authorID, "user-1")
			}
			calls = append(calls, "notes")
			return nil
		},
	}

	svc := NewService(userRepo, sessionRepo, noteDeleter)

	if err := svc.Withdraw(context.Background(), "user-1"); err != nil {
		t.Fatalf("Withdraw returned error: %v", err)
	}

	want := []string{"notes", "sessions", "user"}
	if !reflect.DeepEqual(calls, want) {
		t.Errorf("deletion order = %v, want %v", calls, want)
	}
}

// TestService_Withdraw_UserNotFound は存在しないユーザーの退会がエラーになることを検証する。
func TestService_Withdraw_UserNotFound(t *testing.T) {
	userRepo := &mockUserRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.User, error) {
			return nil, nil
		},
	}

	svc := NewService(userRepo, nil, nil)

	err := svc.Withdraw(context.Background(), "nonexistent-user")
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeUserNotFound {
		t.Fatalf("expected USER_NOT_FOUND, got %v", err)
	}
}

// TestService_Withdraw_NoteDeletionFails_StopsBeforeUser はノート削除失敗時にユーザーが残ることを検証する。
func TestService_Withdraw_NoteDeletionFails_StopsBeforeUser(t *testing.T) {
	userRepo := &mockUserRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.User, error) {
			return &model.User{ID: id}, nil
		},
		deleteByIDFn: func(ctx context.Context, id string) error {
			t.Fatal("user must not be deleted when note deletion fails")
			return nil
		},
	}
	sessionRepo := &mockSessionRepo{
		deleteByUserIDFn: func(ctx context.Context, userID string) error {
			t.Fatal("sessions must not be deleted when note deletion fails")
			return nil
		},
	}
	noteDeleter := &mockNoteDeleter{
		deleteByAuthorFn: func(ctx context.Context, authorID string) error {
			return errors.New("db down")
		},
	}

	svc := NewService(userRepo, sessionRepo, noteDeleter)

	if err := svc.Withdraw(context.Background(), "user-1"); err == nil {
		t.Fatal("expected error when note deletion fails")
	}
}
