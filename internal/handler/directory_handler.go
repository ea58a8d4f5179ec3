package handler

import (
	"context"
	"crypto/subtle"
	"net/http"

	"github.com/google/uuid"
	"github.com/hitoshi/goatnotes/internal/gate"
	"github.com/hitoshi/goatnotes/internal/middleware"
	"github.com/hitoshi/goatnotes/internal/model"
)

// NoteDirectoryService はノートディレクトリ内部APIが必要とするサービスインターフェース。
type NoteDirectoryService interface {
	NewestNoteID(ctx context.Context, userID string) (string, error)
	EnsureNote(ctx context.Context, userID string) (*model.Note, bool, error)
}

// NoteDirectoryHandler はルーティングゲートから呼ばれる内部APIのハンドラー。
// 呼び出し元は共有トークン（X-Internal-Token）で認証する。
type NoteDirectoryHandler struct {
	service NoteDirectoryService
	token   []byte
}

// NewNoteDirectoryHandler はNoteDirectoryHandlerを生成する。
// tokenが空の場合はすべての呼び出しを拒否する。
func NewNoteDirectoryHandler(service NoteDirectoryService, token string) *NoteDirectoryHandler {
	return &NoteDirectoryHandler{
		service: service,
		token:   []byte(token),
	}
}

// FetchNewestNote はユーザーの最新ノートIDを返す。ノートがない場合はnull。
// GET /api/fetch-newest-note?userId=<id>
func (h *NoteDirectoryHandler) FetchNewestNote(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.authorize(w, r)
	if !ok {
		return
	}

	noteID, err := h.service.NewestNoteID(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	var newest *string
	if noteID != "" {
		newest = &noteID
	}
	writeJSON(w, http.StatusOK, map[string]*string{"newestNoteId": newest})
}

// CreateNewNote はユーザーの空ノートを作成し、そのIDを返す。
// 同時リクエストで既に作成済みの場合は作成せず、そのノートのIDを200で返す。
// POST /api/create-new-note?userId=<id>
func (h *NoteDirectoryHandler) CreateNewNote(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.authorize(w, r)
	if !ok {
		return
	}

	note, created, err := h.service.EnsureNote(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSON(w, status, map[string]string{"noteId": note.ID})
}

// authorize は共有トークンとuserIdパラメータを検証する。
func (h *NoteDirectoryHandler) authorize(w http.ResponseWriter, r *http.Request) (string, bool) {
	given := []byte(r.Header.Get(gate.InternalTokenHeader))
	if len(h.token) == 0 || subtle.ConstantTimeCompare(given, h.token) != 1 {
		middleware.WriteErrorResponse(w, http.StatusForbidden, model.NewForbiddenError())
		return "", false
	}

	userID := r.URL.Query().Get("userId")
	if _, err := uuid.Parse(userID); err != nil {
		handleServiceError(w, model.NewInvalidInputError("userIdが不正です"))
		return "", false
	}
	return userID, true
}
