package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/hitoshi/goatnotes/internal/gate"
	"github.com/hitoshi/goatnotes/internal/middleware"
	"github.com/hitoshi/goatnotes/internal/model"
)

// NoteReader はエディタ画面が必要とするノート読み取りインターフェース。
type NoteReader interface {
	GetNote(ctx context.Context, userID, noteID string) (*model.Note, error)
	ListNotes(ctx context.Context, userID string) ([]*model.Note, error)
}

// PageHandler はエディタ画面のHTTPハンドラー。
type PageHandler struct {
	notes            NoteReader
	pages            *Templates
	autosaveDebounce time.Duration
}

// NewPageHandler はPageHandlerを生成する。
func NewPageHandler(notes NoteReader, pages *Templates, autosaveDebounce time.Duration) *PageHandler {
	return &PageHandler{
		notes:            notes,
		pages:            pages,
		autosaveDebounce: autosaveDebounce,
	}
}

// Home はノート一覧とエディタを表示する。
// GET /?noteId=<id>
//
// noteIdなしのアクセスはルーティングゲートが最新ノートへ振り分けるため、
// ここに到達するのはゲートを経由しない場合のみ。その場合は一覧だけを表示する。
func (h *PageHandler) Home(w http.ResponseWriter, r *http.Request) {
	base := pageData{
		CSRFToken: middleware.CSRFTokenFromContext(r.Context()),
		Toast:     toastFromQuery(r.URL.Query().Get("toastType")),
	}

	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		http.Redirect(w, r, gate.LoginPath, http.StatusFound)
		return
	}
	base.LoggedIn = true

	var note *model.Note
	noteID := r.URL.Query().Get(gate.NoteIDParam)
	if noteID != "" {
		note, err = h.notes.GetNote(r.Context(), userID, noteID)
		if err != nil {
			var apiErr *model.APIError
			if errors.As(err, &apiErr) && apiErr.Code == model.ErrCodeNoteNotFound {
				// 削除済み・他人のノート: ゲートに最新ノートを選び直させる
				http.Redirect(w, r, gate.HomePath, http.StatusFound)
				return
			}
			slog.Error("failed to load note",
				slog.String("user_id", userID),
				slog.String("note_id", noteID),
				slog.String("error", err.Error()),
			)
			h.pages.renderError(w, http.StatusInternalServerError, base, "ノートを読み込めませんでした。")
			return
		}
	}

	notes, err := h.notes.ListNotes(r.Context(), userID)
	if err != nil {
		slog.Error("failed to list notes",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
		h.pages.renderError(w, http.StatusInternalServerError, base, "ノート一覧を読み込めませんでした。")
		return
	}

	base.ContentTemplate = "home"
	base.Notes = newNoteListEntries(notes, noteID)
	base.Note = note
	base.AutosaveDebounceMs = h.autosaveDebounce.Milliseconds()
	h.pages.renderPage(w, http.StatusOK, base)
}
