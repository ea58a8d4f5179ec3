package cleanup

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"
)

// mockSessionPurger はSessionPurgerのモック実装。
type mockSessionPurger struct {
	mu              sync.Mutex
	calls           int
	deleteExpiredFn func(ctx context.Context) (int64, error)
}

func (m *mockSessionPurger) DeleteExpired(ctx context.Context) (int64, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	if m.deleteExpiredFn != nil {
		return m.deleteExpiredFn(ctx)
	}
	return 0, nil
}

func (m *mockSessionPurger) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// mockPurgeRecorder はPurgeRecorderのモック実装。
type mockPurgeRecorder struct {
	counts []int64
}

func (m *mockPurgeRecorder) RecordSessionsPurged(count int64) {
	m.counts = append(m.counts, count)
}

// syncBuffer は並行書き込みに耐えるログバッファ。
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func newTestLogger(w io.Writer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
}

// findLogEntry はJSONログから指定キーを持つ最初のエントリを返す。
func findLogEntry(output, key string) map[string]interface{} {
	for _, line := range strings.Split(strings.TrimSpace(output), "\n") {
		var entry map[string]interface{}
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			continue
		}
		if _, ok := entry[key]; ok {
			return entry
		}
	}
	return nil
}

func TestCleanupJob_Run_DeletesExpiredSessions(t *testing.T) {
	var buf bytes.Buffer
	purger := &mockSessionPurger{
		deleteExpiredFn: func(ctx context.Context) (int64, error) { return 5, nil },
	}
	recorder := &mockPurgeRecorder{}
	job := NewCleanupJob(purger, recorder, newTestLogger(&buf))

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if purger.callCount() != 1 {
		t.Errorf("DeleteExpired calls = %d, want 1", purger.callCount())
	}
	if len(recorder.counts) != 1 || recorder.counts[0] != 5 {
		t.Errorf("recorded counts = %v, want [5]", recorder.counts)
	}
}

func TestCleanupJob_Run_LogsDeletedCountAndDuration(t *testing.T) {
	var buf bytes.Buffer
	purger := &mockSessionPurger{
		deleteExpiredFn: func(ctx context.Context) (int64, error) { return 42, nil },
	}
	job := NewCleanupJob(purger, nil, newTestLogger(&buf))

	_ = job.Run(context.Background())

	entry := findLogEntry(buf.String(), "deleted_count")
	if entry == nil {
		t.Fatalf("ログに deleted_count が記録されていない。ログ出力: %s", buf.String())
	}
	if entry["deleted_count"] != float64(42) {
		t.Errorf("deleted_count = %v, want 42", entry["deleted_count"])
	}
	if _, ok := entry["duration_ms"]; !ok {
		t.Error("ログに duration_ms が記録されていない")
	}
}

func TestCleanupJob_Run_Idempotent_ZeroRows(t *testing.T) {
	var buf bytes.Buffer
	recorder := &mockPurgeRecorder{}
	job := NewCleanupJob(&mockSessionPurger{}, recorder, newTestLogger(&buf))

	for i := 0; i < 2; i++ {
		if err := job.Run(context.Background()); err != nil {
			t.Fatalf("Run() #%d error = %v", i+1, err)
		}
	}

	if entry := findLogEntry(buf.String(), "deleted_count"); entry == nil || entry["deleted_count"] != float64(0) {
		t.Errorf("0件削除時にもログに deleted_count=0 が記録されるべき。ログ出力: %s", buf.String())
	}
	if len(recorder.counts) != 2 {
		t.Errorf("recorded counts = %v, want 2 entries", recorder.counts)
	}
}

func TestCleanupJob_Run_ReturnsAndLogsErrorOnFailure(t *testing.T) {
	var buf bytes.Buffer
	purger := &mockSessionPurger{
		deleteExpiredFn: func(ctx context.Context) (int64, error) { return 0, sql.ErrConnDone },
	}
	recorder := &mockPurgeRecorder{}
	job := NewCleanupJob(purger, recorder, newTestLogger(&buf))

	err := job.Run(context.Background())
	if !errors.Is(err, sql.ErrConnDone) {
		t.Fatalf("Run() error = %v, want wrapping sql.ErrConnDone", err)
	}
	if !strings.Contains(buf.String(), `"level":"ERROR"`) {
		t.Errorf("エラー時にERRORレベルのログが記録されていない。ログ出力: %s", buf.String())
	}
	if len(recorder.counts) != 0 {
		t.Errorf("失敗時は削除件数を記録しない: %v", recorder.counts)
	}
}

func TestCleanupJob_Run_PropagatesContext(t *testing.T) {
	var gotErr error
	purger := &mockSessionPurger{
		deleteExpiredFn: func(ctx context.Context) (int64, error) {
			gotErr = ctx.Err()
			return 0, ctx.Err()
		},
	}
	job := NewCleanupJob(purger, nil, newTestLogger(&bytes.Buffer{}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := job.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Run() error = %v, want context.Canceled", err)
	}
	if !errors.Is(gotErr, context.Canceled) {
		t.Errorf("DeleteExpired ctx.Err() = %v, want context.Canceled", gotErr)
	}
}

func TestCleanupJob_Start_RunsImmediatelyAndOnTick(t *testing.T) {
	buf := &syncBuffer{}
	purger := &mockSessionPurger{}
	job := NewCleanupJob(purger, nil, newTestLogger(buf))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		job.Start(ctx, 10*time.Millisecond)
		close(done)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for purger.callCount() < 3 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Start() がコンテキストのキャンセル後に終了しない")
	}

	if purger.callCount() < 3 {
		t.Errorf("DeleteExpired calls = %d, want >= 3", purger.callCount())
	}
	if !strings.Contains(buf.String(), "セッションクリーンアップを停止しました") {
		t.Errorf("停止ログが記録されていない。ログ出力: %s", buf.String())
	}
}

func TestCleanupJob_Start_ContinuesAfterFailure(t *testing.T) {
	purger := &mockSessionPurger{
		deleteExpiredFn: func(ctx context.Context) (int64, error) { return 0, errors.New("db down") },
	}
	job := NewCleanupJob(purger, nil, newTestLogger(&syncBuffer{}))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go job.Start(ctx, 10*time.Millisecond)

	deadline := time.Now().Add(2 * time.Second)
	for purger.callCount() < 2 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if purger.callCount() < 2 {
		t.Errorf("失敗後も定期実行を継続すべき: calls = %d", purger.callCount())
	}
}
