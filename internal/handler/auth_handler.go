package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/hitoshi/goatnotes/internal/auth"
	"github.com/hitoshi/goatnotes/internal/middleware"
	"github.com/hitoshi/goatnotes/internal/model"
)

// 認証フォームの送信成功後の遷移先。トースト表示用のtoastTypeを付ける。
const (
	afterLoginPath  = "/?toastType=login"
	afterSignupPath = "/?toastType=signup"
	afterLogoutPath = "/login?toastType=logout"
)

// AuthServiceInterface は認証ハンドラーが必要とするサービスインターフェース。
type AuthServiceInterface interface {
	Signup(ctx context.Context, email, password string) (*model.Session, error)
	Login(ctx context.Context, email, password string) (*model.Session, error)
	Logout(ctx context.Context, sessionID string) error
	GetCurrentUser(ctx context.Context, sessionID string) (*model.User, error)
}

// AuthEventRecorder は認証イベントを集計する。metrics.MetricsCollectorの部分集合。
type AuthEventRecorder interface {
	RecordAuthEvent(event string, success bool)
}

// AuthHandlerConfig はセッションCookieの設定。
type AuthHandlerConfig struct {
	CookieDomain  string
	CookieSecure  bool
	SessionMaxAge int // セッションCookieの有効期間（秒）
}

// AuthHandler はログイン・サインアップ・ログアウトのHTTPハンドラー。
type AuthHandler struct {
	service AuthServiceInterface
	config  AuthHandlerConfig
	pages   *Templates
	events  AuthEventRecorder
}

// NewAuthHandler はAuthHandlerを生成する。eventsはnilでもよい。
func NewAuthHandler(service AuthServiceInterface, config AuthHandlerConfig, pages *Templates, events AuthEventRecorder) *AuthHandler {
	return &AuthHandler{
		service: service,
		config:  config,
		pages:   pages,
		events:  events,
	}
}

// LoginPage はログインフォームを表示する。
// GET /login
func (h *AuthHandler) LoginPage(w http.ResponseWriter, r *http.Request) {
	h.renderForm(w, r, http.StatusOK, "login", "", "")
}

// SignUpPage はサインアップフォームを表示する。
// GET /sign-up
func (h *AuthHandler) SignUpPage(w http.ResponseWriter, r *http.Request) {
	h.renderForm(w, r, http.StatusOK, "signup", "", "")
}

// Login はログインフォームの送信を処理する。
// POST /login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	h.submit(w, r, "login", h.service.Login, afterLoginPath)
}

// SignUp はサインアップフォームの送信を処理する。
// POST /sign-up
func (h *AuthHandler) SignUp(w http.ResponseWriter, r *http.Request) {
	h.submit(w, r, "signup", h.service.Signup, afterSignupPath)
}

type credentialAction func(ctx context.Context, email, password string) (*model.Session, error)

// submit はフォームの資格情報でactionを実行し、成功時はセッションCookieを設定して303で遷移する。
// 失敗時は入力したメールアドレスを残したままフォームを再表示する。
func (h *AuthHandler) submit(w http.ResponseWriter, r *http.Request, event string, action credentialAction, next string) {
	email := r.PostFormValue("email")
	password := r.PostFormValue("password")

	session, err := action(r.Context(), email, password)
	if err != nil {
		h.record(event, false)

		var apiErr *model.APIError
		if errors.As(err, &apiErr) {
			h.renderForm(w, r, mapAPIErrorToHTTPStatus(apiErr), event, email, apiErr.Message)
			return
		}

		slog.Error("authentication failed",
			slog.String("event", event),
			slog.String("error", err.Error()),
		)
		h.renderForm(w, r, http.StatusInternalServerError, event, email, "内部エラーが発生しました。しばらく待ってから再度お試しください。")
		return
	}

	h.record(event, true)
	h.setSessionCookie(w, session.ID)
	http.Redirect(w, r, next, http.StatusSeeOther)
}

// Logout はセッションを破棄してログイン画面へ遷移する。
// POST /logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	success := true
	if sessionID := middleware.SessionIDFromRequest(r); sessionID != "" {
		if err := h.service.Logout(r.Context(), sessionID); err != nil {
			// ログアウト失敗してもCookieはクリアする
			slog.Error("failed to logout", slog.String("error", err.Error()))
			success = false
		}
	}

	h.record("logout", success)
	clearSessionCookie(w, h.config)
	http.Redirect(w, r, afterLogoutPath, http.StatusSeeOther)
}

// Me は現在のログインユーザー情報を返す。
// GET /auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, err := h.service.GetCurrentUser(r.Context(), middleware.SessionIDFromRequest(r))
	if err != nil {
		if errors.Is(err, auth.ErrSessionNotFound) {
			middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
			return
		}
		slog.Error("failed to get current user", slog.String("error", err.Error()))
		middleware.WriteInternalServerError(w)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"id":    user.ID,
		"email": user.Email,
	})
}

func (h *AuthHandler) renderForm(w http.ResponseWriter, r *http.Request, status int, mode, email, formError string) {
	title := "ログイン"
	if mode == "signup" {
		title = "サインアップ"
	}
	_, loggedInErr := middleware.UserIDFromContext(r.Context())

	h.pages.renderPage(w, status, pageData{
		Title:           title,
		ContentTemplate: "auth",
		CSRFToken:       middleware.CSRFTokenFromContext(r.Context()),
		LoggedIn:        loggedInErr == nil,
		Toast:           toastFromQuery(r.URL.Query().Get("toastType")),
		FormMode:        mode,
		FormEmail:       email,
		FormError:       formError,
	})
}

func (h *AuthHandler) record(event string, success bool) {
	if h.events != nil {
		h.events.RecordAuthEvent(event, success)
	}
}

func (h *AuthHandler) setSessionCookie(w http.ResponseWriter, sessionID string) {
	http.SetCookie(w, &http.Cookie{
		Name:     model.SessionCookieName,
		Value:    sessionID,
		Path:     "/",
		Domain:   h.config.CookieDomain,
		MaxAge:   h.config.SessionMaxAge,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

// clearSessionCookie はセッションCookieを削除する。
func clearSessionCookie(w http.ResponseWriter, config AuthHandlerConfig) {
	http.SetCookie(w, &http.Cookie{
		Name:     model.SessionCookieName,
		Value:    "",
		Path:     "/",
		Domain:   config.CookieDomain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}
