// Package security はアプリケーションのセキュリティ機能を提供する。
//
// MarkdownRenderer はノート本文（Markdown）をHTMLに変換し、
// XSS攻撃などのセキュリティリスクからユーザーを保護するためにサニタイズする。
// 変換にはgoldmark、サニタイズにはbluemondayの許可リストベースのポリシーを使う。
package security

import (
	"bytes"
	"fmt"
	"regexp"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

// httpsImageSource は画像のsrcとして許可するURL。混在コンテンツを避けるためhttpsのみ。
var httpsImageSource = regexp.MustCompile(`^https://[^\s/]+/\S*$`)

// MarkdownRenderer はノートのプレビュー生成機能のインターフェースを定義する。
type MarkdownRenderer interface {
	// Render はMarkdownテキストを安全なHTMLに変換する。
	// 生のHTML、script、iframe、styleタグおよびon*イベント属性は出力に含まれない。
	// 空文字列の入力には空文字列を返す。
	Render(markdown string) (string, error)
}

// markdownRenderer はMarkdownRendererの実装。
// goldmark.Markdownとbluemonday.Policyはどちらも並行利用に安全。
type markdownRenderer struct {
	md     goldmark.Markdown
	policy *bluemonday.Policy
}

// NewMarkdownRenderer はMarkdownRendererの新しいインスタンスを生成する。
// ポリシーの内容:
//   - 許可タグ: 見出し、段落、リスト、引用、コード、表、強調、取り消し線、水平線
//   - aタグ: http/https/mailtoのみ、target="_blank" と rel="noopener noreferrer" を自動付与
//   - imgのsrc属性: httpsスキームのみ許可
//   - GFMのタスクリスト用checkbox（無効化済み）
func NewMarkdownRenderer() *markdownRenderer {
	md := goldmark.New(
		goldmark.WithExtensions(
			extension.GFM,
		),
	)

	p := bluemonday.NewPolicy()
	p.AllowElements(
		"h1", "h2", "h3", "h4", "h5", "h6",
		"p", "br", "hr", "ul", "ol", "li",
		"blockquote", "pre", "code",
		"strong", "em", "del",
		"table", "thead", "tbody", "tr", "th", "td",
	)
	p.AllowAttrs("align").Matching(bluemonday.Paragraph).OnElements("th", "td")
	p.AllowAttrs("start").Matching(bluemonday.Integer).OnElements("ol")

	p.AllowAttrs("type").Matching(bluemonday.SpaceSeparatedTokens).OnElements("input")
	p.AllowAttrs("checked", "disabled").OnElements("input")

	p.AllowAttrs("href").OnElements("a")
	p.AllowRelativeURLs(false)
	p.AllowURLSchemes("http", "https", "mailto")
	p.AddTargetBlankToFullyQualifiedLinks(true)
	p.RequireNoReferrerOnLinks(true)

	p.AllowAttrs("src").Matching(httpsImageSource).OnElements("img")
	p.AllowAttrs("alt").OnElements("img")

	return &markdownRenderer{
		md:     md,
		policy: p,
	}
}

// Render はMarkdownテキストを安全なHTMLに変換する。
func (r *markdownRenderer) Render(markdown string) (string, error) {
	if markdown == "" {
		return "", nil
	}

	var buf bytes.Buffer
	if err := r.md.Convert([]byte(markdown), &buf); err != nil {
		return "", fmt.Errorf("failed to convert markdown: %w", err)
	}
	return r.policy.Sanitize(buf.String()), nil
}
