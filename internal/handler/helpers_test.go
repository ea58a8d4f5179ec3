package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/goatnotes/internal/middleware"
	"github.com/hitoshi/goatnotes/internal/model"
)

// --- モック定義 ---

// mockAuthService はAuthServiceInterfaceのモック実装。
type mockAuthService struct {
	signupFn         func(ctx context.Context, email, password string) (*model.Session, error)
	loginFn          func(ctx context.Context, email, password string) (*model.Session, error)
	logoutFn         func(ctx context.Context, sessionID string) error
	getCurrentUserFn func(ctx context.Context, sessionID string) (*model.User, error)
}

func (m *mockAuthService) Signup(ctx context.Context, email, password string) (*model.Session, error) {
	if m.signupFn != nil {
		return m.signupFn(ctx, email, password)
	}
	return nil, nil
}

func (m *mockAuthService) Login(ctx context.Context, email, password string) (*model.Session, error) {
	if m.loginFn != nil {
		return m.loginFn(ctx, email, password)
	}
	return nil, nil
}

func (m *mockAuthService) Logout(ctx context.Context, sessionID string) error {
	if m.logoutFn != nil {
		return m.logoutFn(ctx, sessionID)
	}
	return nil
}

func (m *mockAuthService) GetCurrentUser(ctx context.Context, sessionID string) (*model.User, error) {
	if m.getCurrentUserFn != nil {
		return m.getCurrentUserFn(ctx, sessionID)
	}
	return nil, nil
}

// mockNoteService はNoteServiceInterfaceのモック実装。
type mockNoteService struct {
	newestNoteIDFn  func(ctx context.Context, userID string) (string, error)
	createNoteFn    func(ctx context.Context, userID string) (*model.Note, error)
	ensureNoteFn    func(ctx context.Context, userID string) (*model.Note, bool, error)
	getNoteFn       func(ctx context.Context, userID, noteID string) (*model.Note, error)
	listNotesFn     func(ctx context.Context, userID string) ([]*model.Note, error)
	updateNoteFn    func(ctx context.Context, userID, noteID, text string) error
	deleteNoteFn    func(ctx context.Context, userID, noteID string) error
	renderPreviewFn func(ctx context.Context, userID, noteID string) (string, error)
}

func (m *mockNoteService) NewestNoteID(ctx context.Context, userID string) (string, error) {
	if m.newestNoteIDFn != nil {
		return m.newestNoteIDFn(ctx, userID)
	}
	return "", nil
}

func (m *mockNoteService) CreateNote(ctx context.Context, userID string) (*model.Note, error) {
	if m.createNoteFn != nil {
		return m.createNoteFn(ctx, userID)
	}
	return nil, nil
}

func (m *mockNoteService) GetNote(ctx context.Context, userID, noteID string) (*model.Note, error) {
	if m.getNoteFn != nil {
		return m.getNoteFn(ctx, userID, noteID)
	}
	return nil, nil
}

func (m *mockNoteService) ListNotes(ctx context.Context, userID string) ([]*model.Note, error) {
	if m.listNotesFn != nil {
		return m.listNotesFn(ctx, userID)
	}
	return []*model.Note{}, nil
}

func (m *mockNoteService) UpdateNote(ctx context.Context, userID, noteID, text string) error {
	if m.updateNoteFn != nil {
		return m.updateNoteFn(ctx, userID, noteID, text)
	}
	return nil
}

func (m *mockNoteService) EnsureNote(ctx context.Context, userID string) (*model.Note, bool, error) {
	if m.ensureNoteFn != nil {
		return m.ensureNoteFn(ctx, userID)
	}
	return nil, false, nil
}

func (m *mockNoteService) DeleteNote(ctx context.Context, userID, noteID string) error {
	if m.deleteNoteFn != nil {
		return m.deleteNoteFn(ctx, userID, noteID)
	}
	return nil
}

func (m *mockNoteService) RenderPreview(ctx context.Context, userID, noteID string) (string, error) {
	if m.renderPreviewFn != nil {
		return m.renderPreviewFn(ctx, userID, noteID)
	}
	return "", nil
}

// mockUserService はUserServiceInterfaceのモック実装。
type mockUserService struct {
	withdrawFn func(ctx context.Context, userID string) error
}

func (m *mockUserService) Withdraw(ctx context.Context, userID string) error {
	if m.withdrawFn != nil {
		return m.withdrawFn(ctx, userID)
	}
	return nil
}

// mockSessionFinder はmiddleware.SessionFinderのモック実装。
type mockSessionFinder struct {
	sessions map[string]*model.Session
}

func (m *mockSessionFinder) FindByID(ctx context.Context, id string) (*model.Session, error) {
	return m.sessions[id], nil
}

// mockEventRecorder はAuthEventRecorderとNoteSaveRecorderのモック実装。
type mockEventRecorder struct {
	authEvents []string
	noteSaves  []bool
}

func (m *mockEventRecorder) RecordAuthEvent(event string, success bool) {
	result := "success"
	if !success {
		result = "failure"
	}
	m.authEvents = append(m.authEvents, event+":"+result)
}

func (m *mockEventRecorder) RecordNoteSave(success bool) {
	m.noteSaves = append(m.noteSaves, success)
}

// mockHealthChecker はHealthCheckerのモック実装。
type mockHealthChecker struct {
	err error
}

func (m *mockHealthChecker) PingContext(ctx context.Context) error {
	return m.err
}

// --- テストヘルパー ---

// testTemplates はテスト用に埋め込みテンプレートを解析する。
func testTemplates(t *testing.T) *Templates {
	t.Helper()
	tmpl, err := ParseTemplates()
	if err != nil {
		t.Fatalf("ParseTemplates() error = %v", err)
	}
	return tmpl
}

// withUserID はテスト用にリクエストコンテキストにユーザーIDを注入するヘルパー。
func withUserID(r *http.Request, userID string) *http.Request {
	return r.WithContext(middleware.ContextWithUserID(r.Context(), userID))
}

// withChiURLParam はテスト用にchiのURLパラメータを注入するヘルパー。
func withChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	ctx := context.WithValue(r.Context(), chi.RouteCtxKey, rctx)
	return r.WithContext(ctx)
}

// parseAPIErrorResponse はレスポンスボディからAPIErrorレスポンスをパースするヘルパー。
func parseAPIErrorResponse(t *testing.T, w *httptest.ResponseRecorder) map[string]string {
	t.Helper()
	var result map[string]string
	if err := json.NewDecoder(w.Body).Decode(&result); err != nil {
		t.Fatalf("failed to decode error response: %v", err)
	}
	return result
}

// findResponseCookie はレスポンスから指定名のCookieを探す。
func findResponseCookie(resp *http.Response, name string) *http.Cookie {
	for _, c := range resp.Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func testNote(id, authorID, text string) *model.Note {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	return &model.Note{
		ID:        id,
		AuthorID:  authorID,
		Text:      text,
		CreatedAt: now,
		UpdatedAt: now,
	}
}
