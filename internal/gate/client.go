package gate

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// InternalTokenHeader はノートディレクトリ内部APIの呼び出しに付与する共有トークンのヘッダー名。
const InternalTokenHeader = "X-Internal-Token"

// maxResponseBytes は内部APIレスポンスの読み取り上限。
const maxResponseBytes = 64 * 1024

// HTTPNoteDirectory はノートディレクトリ内部APIを呼び出すHTTPクライアント。
//
//	GET  {base}/api/fetch-newest-note?userId=<id>  -> {"newestNoteId": "<id>" | null}
//	POST {base}/api/create-new-note?userId=<id>    -> {"noteId": "<id>"}
type HTTPNoteDirectory struct {
	baseURL string
	token   string
	client  *http.Client
}

// NewHTTPNoteDirectory はHTTPNoteDirectoryを生成する。
// timeoutは個々の呼び出しに適用されるHTTPクライアントのタイムアウト。
func NewHTTPNoteDirectory(baseURL, token string, timeout time.Duration) *HTTPNoteDirectory {
	return &HTTPNoteDirectory{
		baseURL: baseURL,
		token:   token,
		client:  &http.Client{Timeout: timeout},
	}
}

type newestNoteResponse struct {
	NewestNoteID *string `json:"newestNoteId"`
}

type createNoteResponse struct {
	NoteID string `json:"noteId"`
}

// NewestNoteID はユーザーの最新ノートIDを取得する。ノートがない場合は空文字列を返す。
func (d *HTTPNoteDirectory) NewestNoteID(ctx context.Context, userID string) (string, error) {
	var body newestNoteResponse
	if err := d.call(ctx, http.MethodGet, "/api/fetch-newest-note", userID, &body); err != nil {
		return "", fmt.Errorf("failed to fetch newest note: %w", err)
	}
	if body.NewestNoteID == nil {
		return "", nil
	}
	return *body.NewestNoteID, nil
}

// CreateNote はユーザーの空ノートを作成し、そのIDを返す。
func (d *HTTPNoteDirectory) CreateNote(ctx context.Context, userID string) (string, error) {
	var body createNoteResponse
	if err := d.call(ctx, http.MethodPost, "/api/create-new-note", userID, &body); err != nil {
		return "", fmt.Errorf("failed to create note: %w", err)
	}
	if body.NoteID == "" {
		return "", fmt.Errorf("failed to create note: response has no noteId")
	}
	return body.NoteID, nil
}

func (d *HTTPNoteDirectory) call(ctx context.Context, method, path, userID string, out any) error {
	u := d.baseURL + path + "?" + url.Values{"userId": {userID}}.Encode()

	req, err := http.NewRequestWithContext(ctx, method, u, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set(InternalTokenHeader, d.token)
	req.Header.Set("Accept", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes))
		return fmt.Errorf("unexpected status %d from %s", resp.StatusCode, path)
	}

	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(out); err != nil {
		return fmt.Errorf("decode response from %s: %w", path, err)
	}
	return nil
}
