package gate

import (
	"net/http"
	"regexp"
	"strings"
)

// sessionCookieFragments はセッションCookieの名前に含まれうる断片。
// いずれかを含むCookieがあれば「セッションがあるかもしれない」とみなす。
var sessionCookieFragments = []string{
	"supabase",
	"auth-token",
	"access-token",
	"refresh-token",
}

// HasSessionEvidence はCookie名からセッションの手がかりがあるかを判定する。
// IDプロバイダーへの問い合わせを省くための事前フィルタであり、認証の判定ではない。
func HasSessionEvidence(cookies []*http.Cookie) bool {
	for _, c := range cookies {
		for _, frag := range sessionCookieFragments {
			if strings.Contains(c.Name, frag) {
				return true
			}
		}
	}
	return false
}

// staticAssetPattern はゲートの判定対象から除外するパス。
// 静的アセット配下、favicon、一般的な画像拡張子。
var staticAssetPattern = regexp.MustCompile(`^/static/|^/favicon\.ico$|\.(?i:svg|png|jpe?g|gif|webp)$`)

// IsStaticAsset はパスが静的アセットとしてゲートを素通りするかを判定する。
func IsStaticAsset(path string) bool {
	return staticAssetPattern.MatchString(path)
}
