package gate

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func newDirectoryServer(t *testing.T, handler http.HandlerFunc) *HTTPNoteDirectory {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewHTTPNoteDirectory(srv.URL, "internal-secret-token", 2*time.Second)
}

func TestHTTPNoteDirectory_NewestNoteID_Found(t *testing.T) {
	dir := newDirectoryServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("method = %s, want GET", r.Method)
		}
		if r.URL.Path != "/api/fetch-newest-note" {
			t.Errorf("path = %s, want /api/fetch-newest-note", r.URL.Path)
		}
		if got := r.URL.Query().Get("userId"); got != "user-1" {
			t.Errorf("userId = %q, want %q", got, "user-1")
		}
		if got := r.Header.Get(InternalTokenHeader); got != "internal-secret-token" {
			t.Errorf("%s = %q, want token", InternalTokenHeader, got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"newestNoteId":"note-9"}`))
	})

	id, err := dir.NewestNoteID(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("NewestNoteID() error = %v", err)
	}
	if id != "note-9" {
		t.Errorf("NewestNoteID() = %q, want %q", id, "note-9")
	}
}

func TestHTTPNoteDirectory_NewestNoteID_NullMeansNone(t *testing.T) {
	for _, body := range []string{`{"newestNoteId":null}`, `{}`} {
		dir := newDirectoryServer(t, func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(body))
		})

		id, err := dir.NewestNoteID(context.Background(), "user-1")
		if err != nil {
			t.Fatalf("NewestNoteID(%s) error = %v", body, err)
		}
		if id != "" {
			t.Errorf("NewestNoteID(%s) = %q, want empty", body, id)
		}
	}
}

func TestHTTPNoteDirectory_CreateNote_PostsAndReturnsID(t *testing.T) {
	dir := newDirectoryServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if r.URL.Path != "/api/create-new-note" {
			t.Errorf("path = %s, want /api/create-new-note", r.URL.Path)
		}
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"noteId":"fresh-note"}`))
	})

	id, err := dir.CreateNote(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("CreateNote() error = %v", err)
	}
	if id != "fresh-note" {
		t.Errorf("CreateNote() = %q, want %q", id, "fresh-note")
	}
}

func TestHTTPNoteDirectory_UserIDIsQueryEscaped(t *testing.T) {
	dir := newDirectoryServer(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("userId"); got != "a&b=c" {
			t.Errorf("userId = %q, want %q", got, "a&b=c")
		}
		w.Write([]byte(`{"newestNoteId":null}`))
	})

	if _, err := dir.NewestNoteID(context.Background(), "a&b=c"); err != nil {
		t.Fatalf("NewestNoteID() error = %v", err)
	}
}

func TestHTTPNoteDirectory_Errors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		call    string
		wantMsg string
	}{
		{"LookupForbidden", http.StatusForbidden, `{"code":"FORBIDDEN"}`, "lookup", "403"},
		{"LookupServerError", http.StatusInternalServerError, ``, "lookup", "500"},
		{"LookupBadJSON", http.StatusOK, `not json`, "lookup", "decode"},
		{"CreateEmptyID", http.StatusOK, `{"noteId":""}`, "create", "noteId"},
		{"CreateServerError", http.StatusServiceUnavailable, ``, "create", "503"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := newDirectoryServer(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			})

			var err error
			if tt.call == "lookup" {
				_, err = dir.NewestNoteID(context.Background(), "user-1")
			} else {
				_, err = dir.CreateNote(context.Background(), "user-1")
			}
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("error %q should mention %q", err.Error(), tt.wantMsg)
			}
		})
	}
}

func TestHTTPNoteDirectory_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(time.Second):
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()

	dir := NewHTTPNoteDirectory(srv.URL, "internal-secret-token", 50*time.Millisecond)
	if _, err := dir.NewestNoteID(context.Background(), "user-1"); err == nil {
		t.Fatal("expected timeout error")
	}
}

var _ NoteDirectory = (*HTTPNoteDirectory)(nil)
