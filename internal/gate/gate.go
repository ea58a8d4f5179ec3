// Package gate はすべてのリクエストの前段で動くルーティングゲートを提供する。
//
// ゲートはCookieとパス、noteIdクエリから、リクエストをそのまま通すか
// リダイレクトするかを決める。判定は次の順に評価し、最初に一致した規則が勝つ。
//
//  1. 静的アセット: 常に通過
//  2. 事前フィルタ: Cookie名にセッションの手がかりがあるかを調べる（IDプロバイダーは呼ばない）
//  3. 認証ページ（/login, /sign-up）: 手がかりがあれば検証し、ログイン済みなら / へ。
//     検証エラーは未ログイン扱いで通過させる（フェイルオープン）
//  4. エントリポイント（/ で noteId なし）: 手がかりがなければ /login へ。
//     検証エラー・未ログインも /login へ（フェイルクローズ）。
//     ログイン済みなら最新ノート、なければ新規作成したノートの noteId を付けて / へ
//  5. それ以外: 通過
package gate

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/hitoshi/goatnotes/internal/metrics"
	"github.com/hitoshi/goatnotes/internal/model"
)

// パス定義。
const (
	HomePath   = "/"
	LoginPath  = "/login"
	SignUpPath = "/sign-up"
)

// NoteIDParam はエントリポイントで解決したノートを指すクエリパラメータ名。
const NoteIDParam = "noteId"

// Verifier はリクエストのCookieからユーザーを解決するIDプロバイダー。
// セッションがない場合は (nil, nil) を返す。
type Verifier interface {
	Verify(ctx context.Context, cookies []*http.Cookie) (*model.User, error)
}

// NoteDirectory は最新ノートの検索とノート作成を行う外部サービス。
type NoteDirectory interface {
	// NewestNoteID はユーザーの最新ノートIDを返す。ノートがない場合は空文字列。
	NewestNoteID(ctx context.Context, userID string) (string, error)
	// CreateNote は空ノートを作成し、そのIDを返す。
	CreateNote(ctx context.Context, userID string) (string, error)
}

// Outcome はゲートの判定結果の種類。
type Outcome int

const (
	// Pass はリクエストを後続のハンドラーにそのまま渡す。
	Pass Outcome = iota
	// Redirect はLocationへ302でリダイレクトする。
	Redirect
	// Unavailable はノートの解決に失敗したことを示す（503）。
	Unavailable
)

// String はメトリクスのラベルに使う名前を返す。
func (o Outcome) String() string {
	switch o {
	case Pass:
		return "pass"
	case Redirect:
		return "redirect"
	case Unavailable:
		return "unavailable"
	default:
		return "unknown"
	}
}

// 判定した規則の名前。ログとメトリクスのラベルに使う。
const (
	RuleStaticAsset = "static_asset"
	RuleAuthPage    = "auth_page"
	RuleEntryPoint  = "entry_point"
	RuleDefault     = "default"
)

// Decision はゲートの判定結果。
type Decision struct {
	Outcome  Outcome
	Location string // Redirectの場合のみ
	Rule     string
}

// UnavailableMessage はノートを開けなかったときに利用者へ示す文言。
const UnavailableMessage = "ノートを開けませんでした。しばらく待ってから再度お試しください。"

// UnavailablePage はUnavailable判定の応答本文を書く関数。
// statusとRetry-Afterヘッダーはゲートが決める。
type UnavailablePage func(w http.ResponseWriter, r *http.Request, status int, message string)

// Gate はルーティングゲート。リクエスト間で状態を持たない。
type Gate struct {
	verifier    Verifier
	notes       NoteDirectory
	metrics     metrics.MetricsCollector
	logger      *slog.Logger
	unavailable UnavailablePage
}

// New はGateを生成する。collectorとloggerはnilでもよい。
func New(verifier Verifier, notes NoteDirectory, collector metrics.MetricsCollector, logger *slog.Logger) *Gate {
	if logger == nil {
		logger = slog.Default()
	}
	return &Gate{
		verifier: verifier,
		notes:    notes,
		metrics:  collector,
		logger:   logger,
	}
}

// WithUnavailablePage は503応答の本文を描画する関数を設定する。
// 未設定の場合はプレーンテキストを返す。
func (g *Gate) WithUnavailablePage(page UnavailablePage) *Gate {
	g.unavailable = page
	return g
}

// Decide はリクエストに対する判定を返す。レスポンスは書き込まない。
func (g *Gate) Decide(r *http.Request) Decision {
	d := g.decide(r)
	if g.metrics != nil {
		g.metrics.RecordGateDecision(d.Rule, d.Outcome.String())
	}
	return d
}

func (g *Gate) decide(r *http.Request) Decision {
	path := r.URL.Path

	if IsStaticAsset(path) {
		return Decision{Outcome: Pass, Rule: RuleStaticAsset}
	}

	cookies := r.Cookies()
	hasEvidence := HasSessionEvidence(cookies)

	if path == LoginPath || path == SignUpPath {
		return g.guardAuthPage(r.Context(), path, cookies, hasEvidence)
	}

	if path == HomePath && r.URL.Query().Get(NoteIDParam) == "" {
		return g.resolveEntryPoint(r, cookies, hasEvidence)
	}

	return Decision{Outcome: Pass, Rule: RuleDefault}
}

// guardAuthPage はログイン済みユーザーを認証ページから / へ戻す。
// 検証に失敗した場合は未ログインとして通過させる。
func (g *Gate) guardAuthPage(ctx context.Context, path string, cookies []*http.Cookie, hasEvidence bool) Decision {
	if !hasEvidence {
		return Decision{Outcome: Pass, Rule: RuleAuthPage}
	}

	user, err := g.verifier.Verify(ctx, cookies)
	if err != nil {
		g.logger.Warn("session verification failed on auth page, treating as anonymous",
			slog.String("path", path),
			slog.String("error", err.Error()),
		)
		g.recordVerifyError(RuleAuthPage)
		return Decision{Outcome: Pass, Rule: RuleAuthPage}
	}
	if user == nil {
		return Decision{Outcome: Pass, Rule: RuleAuthPage}
	}

	return Decision{Outcome: Redirect, Location: HomePath, Rule: RuleAuthPage}
}

// resolveEntryPoint は / へのアクセスを具体的なノートへのリダイレクトに変換する。
// ログインが確認できない場合はすべて /login へ送る。
func (g *Gate) resolveEntryPoint(r *http.Request, cookies []*http.Cookie, hasEvidence bool) Decision {
	toLogin := Decision{Outcome: Redirect, Location: LoginPath, Rule: RuleEntryPoint}
	if !hasEvidence {
		return toLogin
	}

	ctx := r.Context()
	user, err := g.verifier.Verify(ctx, cookies)
	if err != nil {
		g.logger.Warn("session verification failed on entry point, redirecting to login",
			slog.String("error", err.Error()),
		)
		g.recordVerifyError(RuleEntryPoint)
		return toLogin
	}
	if user == nil {
		return toLogin
	}

	noteID, err := g.lookupOrCreate(ctx, user.ID)
	if err != nil {
		// /login へ送ると、ログイン済みのため / へ戻され同じ失敗を繰り返すので503にする
		g.logger.Error("failed to resolve entry note",
			slog.String("user_id", user.ID),
			slog.String("error", err.Error()),
		)
		return Decision{Outcome: Unavailable, Rule: RuleEntryPoint}
	}

	q := r.URL.Query()
	q.Set(NoteIDParam, noteID)
	return Decision{Outcome: Redirect, Location: HomePath + "?" + q.Encode(), Rule: RuleEntryPoint}
}

// lookupOrCreate は最新ノートのIDを返す。ノートがなければ1件だけ作成する。
func (g *Gate) lookupOrCreate(ctx context.Context, userID string) (string, error) {
	start := time.Now()
	noteID, err := g.notes.NewestNoteID(ctx, userID)
	g.recordLatency("lookup", start)
	if err != nil {
		return "", err
	}
	if noteID != "" {
		return noteID, nil
	}

	start = time.Now()
	noteID, err = g.notes.CreateNote(ctx, userID)
	g.recordLatency("create", start)
	if err != nil {
		return "", err
	}

	g.logger.Info("created first note for user",
		slog.String("user_id", userID),
		slog.String("note_id", noteID),
	)
	return noteID, nil
}

func (g *Gate) recordVerifyError(rule string) {
	if g.metrics != nil {
		g.metrics.RecordVerifyError(rule)
	}
}

func (g *Gate) recordLatency(call string, start time.Time) {
	if g.metrics != nil {
		g.metrics.RecordNoteDirectoryLatency(call, time.Since(start))
	}
}

// Middleware はゲートの判定をHTTPミドルウェアとして適用する。
func (g *Gate) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		d := g.Decide(r)
		switch d.Outcome {
		case Redirect:
			http.Redirect(w, r, d.Location, http.StatusFound)
		case Unavailable:
			w.Header().Set("Retry-After", "5")
			if g.unavailable != nil {
				g.unavailable(w, r, http.StatusServiceUnavailable, UnavailableMessage)
				return
			}
			http.Error(w, UnavailableMessage, http.StatusServiceUnavailable)
		default:
			next.ServeHTTP(w, r)
		}
	})
}
