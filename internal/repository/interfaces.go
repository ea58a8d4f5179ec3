// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"

	"github.com/hitoshi/goatnotes/internal/model"
)

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// FindByEmail はメールアドレスでユーザーを取得する。見つからない場合はnilを返す。
	// メールアドレスは小文字に正規化済みであること。
	FindByEmail(ctx context.Context, email string) (*model.User, error)

	// Create はユーザーを作成する。
	// メールアドレスが既に存在する場合はErrDuplicateEmailを返す。
	Create(ctx context.Context, user *model.User) error

	// DeleteByID は指定IDのユーザーを削除する。
	// 関連するnotes、sessionsはCASCADE削除される。
	DeleteByID(ctx context.Context, id string) error
}

// SessionRepository はセッションデータの永続化インターフェース。
type SessionRepository interface {
	// Create はセッションを作成する。
	Create(ctx context.Context, session *model.Session) error
	// FindByID は指定IDのセッションを取得する。期限切れの場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Session, error)
	// DeleteByID は指定IDのセッションを削除する。
	DeleteByID(ctx context.Context, id string) error
	// DeleteByUserID は指定ユーザーの全セッションを削除する。
	DeleteByUserID(ctx context.Context, userID string) error
}

// NoteRepository はノートデータの永続化インターフェース。
type NoteRepository interface {
	// FindByID は指定IDのノートを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Note, error)

	// FindNewestByAuthor はupdated_atが最も新しいノートを取得する。
	// ノートが1件もない場合はnilを返す。
	FindNewestByAuthor(ctx context.Context, authorID string) (*model.Note, error)

	// ListByAuthor はユーザーのノート一覧をupdated_at降順で返す。
	ListByAuthor(ctx context.Context, authorID string) ([]*model.Note, error)

	// Create はノートを作成する。
	Create(ctx context.Context, note *model.Note) error

	// CreateFirst はユーザーにノートが1件もない場合に限りnoteを作成する。
	// 既にノートがある場合は作成せず、最新ノートとfalseを返す。
	// 同一ユーザーの同時呼び出しでも作成されるノートは高々1件。
	CreateFirst(ctx context.Context, note *model.Note) (*model.Note, bool, error)

	// UpdateText はノート本文とupdated_atを更新する。
	// 対象が存在しない場合はfalseを返す。
	UpdateText(ctx context.Context, id, authorID, text string) (bool, error)

	// Delete は指定ノートを削除する。対象が存在しない場合はfalseを返す。
	Delete(ctx context.Context, id, authorID string) (bool, error)

	// DeleteByAuthor はユーザーの全ノートを削除する。
	DeleteByAuthor(ctx context.Context, authorID string) error
}
