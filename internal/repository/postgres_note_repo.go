package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/goatnotes/internal/model"
)

// PostgresNoteRepo はPostgreSQLを使用したノートリポジトリ。
type PostgresNoteRepo struct {
	db *sql.DB
}

// NewPostgresNoteRepo はPostgresNoteRepoを生成する。
func NewPostgresNoteRepo(db *sql.DB) *PostgresNoteRepo {
	return &PostgresNoteRepo{db: db}
}

const noteColumns = `id, author_id, text, created_at, updated_at`

// newestFirst は最新ノート判定の並び順。updated_atが同値の場合も結果を安定させる。
const newestFirst = `ORDER BY updated_at DESC, created_at DESC, id DESC`

// FindByID は指定IDのノートを取得する。見つからない場合はnilを返す。
func (r *PostgresNoteRepo) FindByID(ctx context.Context, id string) (*model.Note, error) {
	n, err := scanNote(r.db.QueryRowContext(ctx,
		`SELECT `+noteColumns+` FROM notes WHERE id = $1`,
		id,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to find note: %w", err)
	}
	return n, nil
}

// FindNewestByAuthor はユーザーの最新ノートを取得する。ノートがない場合はnilを返す。
func (r *PostgresNoteRepo) FindNewestByAuthor(ctx context.Context, authorID string) (*model.Note, error) {
	n, err := scanNote(r.db.QueryRowContext(ctx,
		`SELECT `+noteColumns+` FROM notes WHERE author_id = $1 `+newestFirst+` LIMIT 1`,
		authorID,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to find newest note: %w", err)
	}
	return n, nil
}

// ListByAuthor はユーザーのノート一覧をupdated_at降順で返す。
func (r *PostgresNoteRepo) ListByAuthor(ctx context.Context, authorID string) ([]*model.Note, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+noteColumns+` FROM notes WHERE author_id = $1 `+newestFirst,
		authorID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list notes: %w", err)
	}
	defer rows.Close()

	notes := make([]*model.Note, 0)
	for rows.Next() {
		n := &model.Note{}
		if err := rows.Scan(&n.ID, &n.AuthorID, &n.Text, &n.CreatedAt, &n.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan note: %w", err)
		}
		notes = append(notes, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate notes: %w", err)
	}
	return notes, nil
}

// Create はノートを作成する。
func (r *PostgresNoteRepo) Create(ctx context.Context, note *model.Note) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO notes (id, author_id, text, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		note.ID, note.AuthorID, note.Text, note.CreatedAt, note.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create note: %w", err)
	}
	return nil
}

// CreateFirst はユーザーにノートがない場合のみnoteを作成する。
// usersの行をFOR UPDATEでロックして同一ユーザーの呼び出しを直列化するため、
// 初回アクセスが同時に来ても作成は1件に限られる。
func (r *PostgresNoteRepo) CreateFirst(ctx context.Context, note *model.Note) (*model.Note, bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var locked string
	err = tx.QueryRowContext(ctx, `SELECT id FROM users WHERE id = $1 FOR UPDATE`, note.AuthorID).Scan(&locked)
	if err == sql.ErrNoRows {
		return nil, false, fmt.Errorf("failed to create first note: user %s not found", note.AuthorID)
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to lock user: %w", err)
	}

	existing, err := scanNote(tx.QueryRowContext(ctx,
		`SELECT `+noteColumns+` FROM notes WHERE author_id = $1 `+newestFirst+` LIMIT 1`,
		note.AuthorID,
	))
	if err != nil {
		return nil, false, fmt.Errorf("failed to find newest note: %w", err)
	}
	if existing != nil {
		if err := tx.Commit(); err != nil {
			return nil, false, fmt.Errorf("failed to commit: %w", err)
		}
		return existing, false, nil
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO notes (id, author_id, text, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		note.ID, note.AuthorID, note.Text, note.CreatedAt, note.UpdatedAt,
	); err != nil {
		return nil, false, fmt.Errorf("failed to create note: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, false, fmt.Errorf("failed to commit: %w", err)
	}
	return note, true, nil
}

// UpdateText はノート本文を更新する。author_idが一致しない場合は更新せずfalseを返す。
func (r *PostgresNoteRepo) UpdateText(ctx context.Context, id, authorID, text string) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE notes SET text = $3, updated_at = now() WHERE id = $1 AND author_id = $2`,
		id, authorID, text,
	)
	if err != nil {
		return false, fmt.Errorf("failed to update note: %w", err)
	}
	return affectedOne(result)
}

// Delete は指定ノートを削除する。author_idが一致しない場合は削除せずfalseを返す。
func (r *PostgresNoteRepo) Delete(ctx context.Context, id, authorID string) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM notes WHERE id = $1 AND author_id = $2`,
		id, authorID,
	)
	if err != nil {
		return false, fmt.Errorf("failed to delete note: %w", err)
	}
	return affectedOne(result)
}

// DeleteByAuthor はユーザーの全ノートを削除する。
func (r *PostgresNoteRepo) DeleteByAuthor(ctx context.Context, authorID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM notes WHERE author_id = $1`, authorID); err != nil {
		return fmt.Errorf("failed to delete user notes: %w", err)
	}
	return nil
}

func scanNote(row *sql.Row) (*model.Note, error) {
	n := &model.Note{}
	err := row.Scan(&n.ID, &n.AuthorID, &n.Text, &n.CreatedAt, &n.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return n, nil
}

func affectedOne(result sql.Result) (bool, error) {
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n > 0, nil
}

// compile-time interface check
var _ NoteRepository = (*PostgresNoteRepo)(nil)
