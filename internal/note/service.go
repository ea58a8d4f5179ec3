// Package note はノートのドメインロジックを提供する。
// 最新ノートの解決、作成、自動保存による本文更新、プレビュー生成を扱う。
package note

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hitoshi/goatnotes/internal/model"
	"github.com/hitoshi/goatnotes/internal/repository"
	"github.com/hitoshi/goatnotes/internal/security"
)

// Service はノート管理のサービス層。
// すべての操作はノートの所有者（author）に限定される。
type Service struct {
	noteRepo repository.NoteRepository
	renderer security.MarkdownRenderer
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(noteRepo repository.NoteRepository, renderer security.MarkdownRenderer) *Service {
	return &Service{
		noteRepo: noteRepo,
		renderer: renderer,
	}
}

// NewestNoteID はユーザーの最新ノートのIDを返す。
// ノートが1件もない場合は空文字列を返す。
func (s *Service) NewestNoteID(ctx context.Context, userID string) (string, error) {
	n, err := s.noteRepo.FindNewestByAuthor(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("failed to find newest note: %w", err)
	}
	if n == nil {
		return "", nil
	}
	return n.ID, nil
}

// CreateNote は空のノートを作成する。
func (s *Service) CreateNote(ctx context.Context, userID string) (*model.Note, error) {
	now := time.Now()
	n := &model.Note{
		ID:        uuid.New().String(),
		AuthorID:  userID,
		Text:      "",
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.noteRepo.Create(ctx, n); err != nil {
		return nil, fmt.Errorf("failed to create note: %w", err)
	}

	slog.Info("note created",
		slog.String("user_id", userID),
		slog.String("note_id", n.ID),
	)
	return n, nil
}

// EnsureNote はユーザーにノートがなければ空ノートを1件作成して返す。
// 既にノートがある場合は最新ノートを返し、createdはfalseになる。
// ルーティングゲートの初回アクセス時の作成に使う。
func (s *Service) EnsureNote(ctx context.Context, userID string) (*model.Note, bool, error) {
	now := time.Now()
	candidate := &model.Note{
		ID:        uuid.New().String(),
		AuthorID:  userID,
		Text:      "",
		CreatedAt: now,
		UpdatedAt: now,
	}
	n, created, err := s.noteRepo.CreateFirst(ctx, candidate)
	if err != nil {
		return nil, false, fmt.Errorf("failed to ensure note: %w", err)
	}

	if created {
		slog.Info("first note created",
			slog.String("user_id", userID),
			slog.String("note_id", n.ID),
		)
	}
	return n, created, nil
}

// GetNote は指定ノートを取得する。
// 存在しない場合、または他ユーザーのノートの場合はNOTE_NOT_FOUNDを返す。
func (s *Service) GetNote(ctx context.Context, userID, noteID string) (*model.Note, error) {
	if !validID(noteID) {
		return nil, model.NewNoteNotFoundError(noteID)
	}

	n, err := s.noteRepo.FindByID(ctx, noteID)
	if err != nil {
		return nil, fmt.Errorf("failed to find note: %w", err)
	}
	if n == nil || n.AuthorID != userID {
		return nil, model.NewNoteNotFoundError(noteID)
	}
	return n, nil
}

// ListNotes はユーザーのノート一覧を新しい順に返す。
func (s *Service) ListNotes(ctx context.Context, userID string) ([]*model.Note, error) {
	notes, err := s.noteRepo.ListByAuthor(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list notes: %w", err)
	}
	if notes == nil {
		notes = []*model.Note{}
	}
	return notes, nil
}

// UpdateNote はノート本文を更新する（自動保存の保存先）。
// 本文がMaxNoteTextBytesを超える場合はNOTE_TOO_LARGEを返す。
func (s *Service) UpdateNote(ctx context.Context, userID, noteID, text string) error {
	if len(text) > model.MaxNoteTextBytes {
		return model.NewNoteTooLargeError()
	}
	if !validID(noteID) {
		return model.NewNoteNotFoundError(noteID)
	}

	updated, err := s.noteRepo.UpdateText(ctx, noteID, userID, text)
	if err != nil {
		return fmt.Errorf("failed to update note: %w", err)
	}
	if !updated {
		return model.NewNoteNotFoundError(noteID)
	}
	return nil
}

// DeleteNote はノートを削除する。
func (s *Service) DeleteNote(ctx context.Context, userID, noteID string) error {
	if !validID(noteID) {
		return model.NewNoteNotFoundError(noteID)
	}

	deleted, err := s.noteRepo.Delete(ctx, noteID, userID)
	if err != nil {
		return fmt.Errorf("failed to delete note: %w", err)
	}
	if !deleted {
		return model.NewNoteNotFoundError(noteID)
	}

	slog.Info("note deleted",
		slog.String("user_id", userID),
		slog.String("note_id", noteID),
	)
	return nil
}

// RenderPreview はノート本文をMarkdownとして解釈し、サニタイズ済みHTMLを返す。
func (s *Service) RenderPreview(ctx context.Context, userID, noteID string) (string, error) {
	n, err := s.GetNote(ctx, userID, noteID)
	if err != nil {
		return "", err
	}

	html, err := s.renderer.Render(n.Text)
	if err != nil {
		return "", fmt.Errorf("failed to render preview: %w", err)
	}
	return html, nil
}

// validID はIDがUUID形式かを判定する。
// UUID型カラムに不正な文字列を渡すとDBエラーになるため、クエリ前に弾く。
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
