package gate

import (
	"net/http"
	"testing"
)

func TestHasSessionEvidence(t *testing.T) {
	tests := []struct {
		name    string
		cookies []*http.Cookie
		want    bool
	}{
		{"NoCookies", nil, false},
		{"UnrelatedCookies", []*http.Cookie{{Name: "theme"}, {Name: "_ga"}}, false},
		{"OwnSessionCookie", []*http.Cookie{{Name: "goatnotes-auth-token"}}, true},
		{"SupabaseFragment", []*http.Cookie{{Name: "supabase-session"}}, true},
		{"AuthTokenFragment", []*http.Cookie{{Name: "sb-abc-auth-token"}}, true},
		{"AccessTokenFragment", []*http.Cookie{{Name: "my-access-token"}}, true},
		{"RefreshTokenFragment", []*http.Cookie{{Name: "refresh-token"}}, true},
		{"MixedWithEvidence", []*http.Cookie{{Name: "theme"}, {Name: "x-refresh-token.0"}}, true},
		{"CaseSensitive", []*http.Cookie{{Name: "AUTH-TOKEN"}}, false},
		{"UnderscoreVariant", []*http.Cookie{{Name: "auth_token"}}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HasSessionEvidence(tt.cookies); got != tt.want {
				t.Errorf("HasSessionEvidence() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsStaticAsset(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{"/static/app.js", true},
		{"/static/css/site.css", true},
		{"/favicon.ico", true},
		{"/logo.svg", true},
		{"/img/photo.PNG", true},
		{"/a/b.jpg", true},
		{"/a/b.jpeg", true},
		{"/anim.gif", true},
		{"/pic.webp", true},
		{"/", false},
		{"/login", false},
		{"/sign-up", false},
		{"/api/notes", false},
		{"/static", false},
		{"/favicon.ico/extra", false},
		{"/png", false},
		{"/report.pdf", false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			if got := IsStaticAsset(tt.path); got != tt.want {
				t.Errorf("IsStaticAsset(%q) = %v, want %v", tt.path, got, tt.want)
			}
		})
	}
}
