// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector はメトリクス収集のインターフェース。
// ルーティングゲート、ハンドラー、ワーカーから利用する。
type MetricsCollector interface {
	RecordGateDecision(rule, outcome string)
	RecordVerifyError(rule string)
	RecordNoteDirectoryLatency(call string, duration time.Duration)
	RecordNoteSave(success bool)
	RecordAuthEvent(event string, success bool)
	RecordHTTPStatus(statusCode int)
	RecordSessionsPurged(count int64)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	gateDecisions  *prometheus.CounterVec
	verifyErrors   *prometheus.CounterVec
	dirLatency     *prometheus.HistogramVec
	noteSaves      *prometheus.CounterVec
	authEvents     *prometheus.CounterVec
	httpStatus     *prometheus.CounterVec
	sessionsPurged prometheus.Counter
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		gateDecisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "goatnotes_gate_decisions_total",
			Help: "ルーティングゲートの判定結果（ルール・結果別）",
		}, []string{"rule", "outcome"}),
		verifyErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "goatnotes_gate_verify_errors_total",
			Help: "ルーティングゲートでのセッション検証エラー数（ルール別）",
		}, []string{"rule"}),
		dirLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "goatnotes_note_directory_latency_seconds",
			Help:    "ノートディレクトリ呼び出しのレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}, []string{"call"}),
		noteSaves: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "goatnotes_note_saves_total",
			Help: "ノート自動保存の結果別件数",
		}, []string{"result"}),
		authEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "goatnotes_auth_events_total",
			Help: "認証イベント（login, signup, logout）の結果別件数",
		}, []string{"event", "result"}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "goatnotes_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		sessionsPurged: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "goatnotes_sessions_purged_total",
			Help: "クリーンアップで削除された期限切れセッションの合計数",
		}),
	}

	reg.MustRegister(
		c.gateDecisions,
		c.verifyErrors,
		c.dirLatency,
		c.noteSaves,
		c.authEvents,
		c.httpStatus,
		c.sessionsPurged,
	)

	return c
}

// RecordGateDecision はルーティングゲートの判定を記録する。
func (c *Collector) RecordGateDecision(rule, outcome string) {
	c.gateDecisions.WithLabelValues(rule, outcome).Inc()
}

// RecordVerifyError はセッション検証エラーを記録する。
func (c *Collector) RecordVerifyError(rule string) {
	c.verifyErrors.WithLabelValues(rule).Inc()
}

// RecordNoteDirectoryLatency はノートディレクトリ呼び出しのレイテンシを記録する。
func (c *Collector) RecordNoteDirectoryLatency(call string, duration time.Duration) {
	c.dirLatency.WithLabelValues(call).Observe(duration.Seconds())
}

// RecordNoteSave は自動保存の結果を記録する。
func (c *Collector) RecordNoteSave(success bool) {
	c.noteSaves.WithLabelValues(resultLabel(success)).Inc()
}

// RecordAuthEvent は認証イベントを記録する。
func (c *Collector) RecordAuthEvent(event string, success bool) {
	c.authEvents.WithLabelValues(event, resultLabel(success)).Inc()
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordSessionsPurged は削除された期限切れセッション数を記録する。
func (c *Collector) RecordSessionsPurged(count int64) {
	c.sessionsPurged.Add(float64(count))
}

func resultLabel(success bool) string {
	if success {
		return "success"
	}
	return "failure"
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
