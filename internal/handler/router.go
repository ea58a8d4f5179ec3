package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/hitoshi/goatnotes/internal/gate"
	"github.com/hitoshi/goatnotes/internal/metrics"
	"github.com/hitoshi/goatnotes/internal/middleware"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	Gate              func(next http.Handler) http.Handler
	SessionFinder     middleware.SessionFinder
	CORSAllowedOrigin string
	CSRFConfig        middleware.CSRFConfig
	RateLimiter       *middleware.RateLimiter
	Logger            *slog.Logger

	// 運用
	HealthChecker  HealthChecker
	Metrics        metrics.MetricsCollector // nilの場合はメトリクスを記録しない
	MetricsHandler http.Handler             // nilの場合は/metricsを公開しない

	// 画面
	Templates        *Templates
	AutosaveDebounce time.Duration

	// 認証
	AuthService AuthServiceInterface
	AuthConfig  AuthHandlerConfig

	// ノート
	NoteService      NoteServiceInterface
	InternalAPIToken string

	// ユーザー
	UserService UserServiceInterface
}

// NewRouter は全エンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// 全ルート共通のミドルウェアスタックの実行順序:
//
//	Recovery → Metrics → Logging → SecurityHeaders → RealIP → CORS → Gate
//
// 画面・認証フォーム:  OptionalSession → CSRF (→ AuthRateLimit)
// ノートAPI:          Session → CSRF → RateLimit(General)
// 内部API:            共有トークン認証（ハンドラー内）
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r.Use(middleware.NewRecoveryMiddleware())
	if deps.Metrics != nil {
		r.Use(middleware.NewMetricsMiddleware(deps.Metrics))
	}
	r.Use(middleware.NewLoggingMiddleware(logger))
	r.Use(middleware.NewSecurityHeadersMiddleware(deps.AuthConfig.CookieSecure))
	r.Use(chimw.RealIP)
	// プリフライトはルート定義に関係なく応答できるよう最上位に置く
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	if deps.Gate != nil {
		r.Use(deps.Gate)
	}

	var authEvents AuthEventRecorder
	var noteSaves NoteSaveRecorder
	if deps.Metrics != nil {
		authEvents = deps.Metrics
		noteSaves = deps.Metrics
	}

	authHandler := NewAuthHandler(deps.AuthService, deps.AuthConfig, deps.Templates, authEvents)
	pageHandler := NewPageHandler(deps.NoteService, deps.Templates, deps.AutosaveDebounce)
	noteHandler := NewNoteHandler(deps.NoteService, noteSaves)
	directoryHandler := NewNoteDirectoryHandler(deps.NoteService, deps.InternalAPIToken)
	userHandler := NewUserHandler(deps.UserService, deps.AuthConfig)

	// --- 認証不要のルート ---

	r.Handle("/static/*", StaticHandler())
	r.Get("/health", NewHealthHandler(deps.HealthChecker))
	if deps.MetricsHandler != nil {
		r.Handle("/metrics", deps.MetricsHandler)
	}
	r.Get("/api/csrf-token", middleware.NewCSRFTokenHandler(deps.CSRFConfig).ServeHTTP)

	// ルーティングゲートから呼ばれる内部API
	r.Get("/api/fetch-newest-note", directoryHandler.FetchNewestNote)
	r.Post("/api/create-new-note", directoryHandler.CreateNewNote)

	// --- 画面と認証フォーム ---
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewOptionalSessionMiddleware(deps.SessionFinder))
		r.Use(middleware.NewCSRFMiddleware(deps.CSRFConfig))

		r.Get(gate.HomePath, pageHandler.Home)

		r.Group(func(r chi.Router) {
			r.Use(deps.RateLimiter.AuthMiddleware())
			r.Get(gate.LoginPath, authHandler.LoginPage)
			r.Post(gate.LoginPath, authHandler.Login)
			r.Get(gate.SignUpPath, authHandler.SignUpPage)
			r.Post(gate.SignUpPath, authHandler.SignUp)
		})

		r.Post("/logout", authHandler.Logout)
		r.Get("/auth/me", authHandler.Me)
	})

	// --- 認証が必要なAPI ---
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewSessionMiddleware(deps.SessionFinder))
		r.Use(middleware.NewCSRFMiddleware(deps.CSRFConfig))
		r.Use(deps.RateLimiter.GeneralMiddleware())

		r.Route("/api/notes", func(r chi.Router) {
			r.Get("/", noteHandler.ListNotes)
			r.Post("/", noteHandler.CreateNote)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", noteHandler.GetNote)
				r.Put("/", noteHandler.UpdateNote)
				r.Delete("/", noteHandler.DeleteNote)
				r.Get("/preview", noteHandler.PreviewNote)
			})
		})

		r.Delete("/api/users/me", userHandler.Withdraw)
	})

	return r
}
