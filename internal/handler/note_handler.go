package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/goatnotes/internal/model"
)

// maxUpdateBodyBytes は本文更新リクエストボディの上限。
// JSONエスケープで本文が膨らむ分の余裕を持たせる。
const maxUpdateBodyBytes = model.MaxNoteTextBytes*6 + 1024

// NoteServiceInterface はノートハンドラーが必要とするサービスインターフェース。
type NoteServiceInterface interface {
	NewestNoteID(ctx context.Context, userID string) (string, error)
	CreateNote(ctx context.Context, userID string) (*model.Note, error)
	GetNote(ctx context.Context, userID, noteID string) (*model.Note, error)
	ListNotes(ctx context.Context, userID string) ([]*model.Note, error)
	UpdateNote(ctx context.Context, userID, noteID, text string) error
	DeleteNote(ctx context.Context, userID, noteID string) error
	RenderPreview(ctx context.Context, userID, noteID string) (string, error)
}

// NoteSaveRecorder は自動保存の結果を集計する。metrics.MetricsCollectorの部分集合。
type NoteSaveRecorder interface {
	RecordNoteSave(success bool)
}

// NoteHandler はノートAPIのHTTPハンドラー。
type NoteHandler struct {
	service NoteServiceInterface
	saves   NoteSaveRecorder
}

// NewNoteHandler はNoteHandlerを生成する。savesはnilでもよい。
func NewNoteHandler(service NoteServiceInterface, saves NoteSaveRecorder) *NoteHandler {
	return &NoteHandler{
		service: service,
		saves:   saves,
	}
}

// noteResponse はノートのJSONレスポンス。
type noteResponse struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func toNoteResponse(n *model.Note) noteResponse {
	return noteResponse{
		ID:        n.ID,
		Text:      n.Text,
		CreatedAt: n.CreatedAt,
		UpdatedAt: n.UpdatedAt,
	}
}

type updateNoteRequest struct {
	Text *string `json:"text"`
}

// ListNotes はログインユーザーのノート一覧を更新日時の降順で返す。
// GET /api/notes
func (h *NoteHandler) ListNotes(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	notes, err := h.service.ListNotes(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := make([]noteResponse, 0, len(notes))
	for _, n := range notes {
		resp = append(resp, toNoteResponse(n))
	}
	writeJSON(w, http.StatusOK, map[string]any{"notes": resp})
}

// CreateNote は空のノートを作成する。
// POST /api/notes
func (h *NoteHandler) CreateNote(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	note, err := h.service.CreateNote(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toNoteResponse(note))
}

// GetNote はノートを1件返す。
// GET /api/notes/{id}
func (h *NoteHandler) GetNote(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	note, err := h.service.GetNote(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toNoteResponse(note))
}

// UpdateNote はノート本文を保存する。エディタの自動保存から呼ばれる。
// PUT /api/notes/{id}
func (h *NoteHandler) UpdateNote(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var req updateNoteRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxUpdateBodyBytes)).Decode(&req); err != nil {
		h.recordSave(false)
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			handleServiceError(w, model.NewNoteTooLargeError())
			return
		}
		handleServiceError(w, model.NewInvalidInputError("リクエストボディが不正です"))
		return
	}
	if req.Text == nil {
		h.recordSave(false)
		handleServiceError(w, model.NewInvalidInputError("textは必須です"))
		return
	}

	if err := h.service.UpdateNote(r.Context(), userID, chi.URLParam(r, "id"), *req.Text); err != nil {
		h.recordSave(false)
		handleServiceError(w, err)
		return
	}

	h.recordSave(true)
	w.WriteHeader(http.StatusNoContent)
}

// DeleteNote はノートを削除する。
// DELETE /api/notes/{id}
func (h *NoteHandler) DeleteNote(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	if err := h.service.DeleteNote(r.Context(), userID, chi.URLParam(r, "id")); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// PreviewNote はノート本文をMarkdownとして描画したサニタイズ済みHTMLを返す。
// GET /api/notes/{id}/preview
func (h *NoteHandler) PreviewNote(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	html, err := h.service.RenderPreview(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"html": html})
}

func (h *NoteHandler) recordSave(success bool) {
	if h.saves != nil {
		h.saves.RecordNoteSave(success)
	}
}
