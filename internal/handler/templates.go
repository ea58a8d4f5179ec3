package handler

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/hitoshi/goatnotes/internal/middleware"
	"github.com/hitoshi/goatnotes/internal/model"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

// noteTitleMaxRunes はノート一覧に表示するタイトルの最大文字数。
const noteTitleMaxRunes = 40

// Templates は埋め込みHTMLテンプレートを保持する。
type Templates struct {
	all *template.Template
}

// ParseTemplates は埋め込みテンプレートを解析する。
func ParseTemplates() (*Templates, error) {
	t, err := template.New("").ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}
	return &Templates{all: t}, nil
}

// MustParseTemplates はParseTemplatesの失敗時にpanicする版。
func MustParseTemplates() *Templates {
	t, err := ParseTemplates()
	if err != nil {
		panic(err)
	}
	return t
}

// StaticHandler は/static/配下の埋め込みファイルを配信するハンドラーを返す。
func StaticHandler() http.Handler {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}
	return http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
}

// toast はページ上部に一時表示する通知。
type toast struct {
	Kind    string // success, error
	Message string
}

// toastFromQuery はtoastTypeクエリパラメータから表示する通知を決める。
func toastFromQuery(toastType string) *toast {
	switch toastType {
	case "login":
		return &toast{Kind: "success", Message: "ログインしました。"}
	case "signup":
		return &toast{Kind: "success", Message: "アカウントを作成しました。"}
	case "logout":
		return &toast{Kind: "success", Message: "ログアウトしました。"}
	default:
		return nil
	}
}

// noteListEntry はサイドバーのノート一覧の1行。
type noteListEntry struct {
	ID        string
	Title     string
	UpdatedAt time.Time
	Active    bool
}

func newNoteListEntries(notes []*model.Note, activeID string) []noteListEntry {
	entries := make([]noteListEntry, 0, len(notes))
	for _, n := range notes {
		entries = append(entries, noteListEntry{
			ID:        n.ID,
			Title:     noteTitle(n.Text),
			UpdatedAt: n.UpdatedAt,
			Active:    n.ID == activeID,
		})
	}
	return entries
}

// noteTitle は本文の最初の空でない行をタイトルとして返す。
func noteTitle(text string) string {
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if utf8.RuneCountInString(line) > noteTitleMaxRunes {
			runes := []rune(line)
			return string(runes[:noteTitleMaxRunes]) + "…"
		}
		return line
	}
	return "無題のノート"
}

// pageData はページテンプレートに渡すデータ。
type pageData struct {
	Title           string
	ContentTemplate string
	ContentHTML     template.HTML
	CSRFToken       string
	LoggedIn        bool
	Toast           *toast

	// 認証フォーム
	FormMode  string
	FormEmail string
	FormError string

	// エディタ
	Notes              []noteListEntry
	Note               *model.Note
	AutosaveDebounceMs int64

	// エラーページ
	ErrorMessage string
}

// renderPage はコンテンツテンプレートを描画してからbaseレイアウトに埋め込む。
// 描画に失敗した場合は部分的なHTMLを返さずに500を返す。
func (t *Templates) renderPage(w http.ResponseWriter, status int, data pageData) {
	var content bytes.Buffer
	if err := t.all.ExecuteTemplate(&content, data.ContentTemplate, data); err != nil {
		slog.Error("failed to render page content",
			slog.String("template", data.ContentTemplate),
			slog.String("error", err.Error()),
		)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	data.ContentHTML = template.HTML(content.String())

	var page bytes.Buffer
	if err := t.all.ExecuteTemplate(&page, "base", data); err != nil {
		slog.Error("failed to render page layout", slog.String("error", err.Error()))
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	w.Write(page.Bytes())
}

// renderError はエラーページを描画する。
func (t *Templates) renderError(w http.ResponseWriter, status int, base pageData, message string) {
	base.Title = http.StatusText(status)
	base.ContentTemplate = "error"
	base.ErrorMessage = message
	t.renderPage(w, status, base)
}

// RenderUnavailable はルーティングゲートの503応答をエラーページとして描画する。
// ゲートは本人確認に成功した後にだけ503を返すため、ログイン済みとして描画する。
// ゲートはCSRFミドルウェアより手前にあるので、トークンはCookieから読む。
func (t *Templates) RenderUnavailable(w http.ResponseWriter, r *http.Request, status int, message string) {
	t.renderError(w, status, pageData{
		LoggedIn:  true,
		CSRFToken: middleware.CSRFTokenFromCookie(r),
	}, message)
}
