// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// 認証結果のラベル値
const (
	ResultSuccess  = "success"
	ResultConflict = "conflict"
	ResultInvalid  = "invalid"
	ResultMissing  = "missing"
	ResultError    = "error"
)

// MetricsCollector はメトリクス収集のインターフェース。
// サービス層とミドルウェアから利用する。
type MetricsCollector interface {
	RecordRegistration(result string)
	RecordLogin(result string)
	RecordTokenVerification(mode, result string)
	RecordIdentityLink()
	RecordProfileProvisioned()
	RecordHTTPStatus(statusCode int)
	RecordIdPLatency(duration time.Duration)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	registrations      *prometheus.CounterVec
	logins             *prometheus.CounterVec
	tokenVerifications *prometheus.CounterVec
	identityLinks      prometheus.Counter
	profilesCreated    prometheus.Counter
	httpStatus         *prometheus.CounterVec
	idpLatency         prometheus.Histogram
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		registrations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "backend_auth_registrations_total",
			Help: "結果別のユーザー登録数",
		}, []string{"result"}),
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "backend_auth_logins_total",
			Help: "結果別のログイン数",
		}, []string{"result"}),
		tokenVerifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "backend_auth_token_verifications_total",
			Help: "検証モード・結果別のBearerトークン検証数",
		}, []string{"mode", "result"}),
		identityLinks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "backend_identity_links_total",
			Help: "外部IDリンクのupsert数",
		}),
		profilesCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "backend_profiles_provisioned_total",
			Help: "自動作成されたプロフィールの試行数",
		}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "backend_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		idpLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "backend_idp_request_duration_seconds",
			Help:    "IdPへのトークン照会のレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
	}

	reg.MustRegister(
		c.registrations,
		c.logins,
		c.tokenVerifications,
		c.identityLinks,
		c.profilesCreated,
		c.httpStatus,
		c.idpLatency,
	)

	return c
}

// RecordRegistration はユーザー登録の結果を記録する。
func (c *Collector) RecordRegistration(result string) {
	c.registrations.WithLabelValues(result).Inc()
}

// RecordLogin はログインの結果を記録する。
func (c *Collector) RecordLogin(result string) {
	c.logins.WithLabelValues(result).Inc()
}

// RecordTokenVerification はBearerトークン検証の結果を記録する。
func (c *Collector) RecordTokenVerification(mode, result string) {
	c.tokenVerifications.WithLabelValues(mode, result).Inc()
}

// RecordIdentityLink は外部IDリンクのupsertを記録する。
func (c *Collector) RecordIdentityLink() {
	c.identityLinks.Inc()
}

// RecordProfileProvisioned はプロフィールの自動作成を記録する。
func (c *Collector) RecordProfileProvisioned() {
	c.profilesCreated.Inc()
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordIdPLatency はIdP照会のレイテンシを記録する。
func (c *Collector) RecordIdPLatency(duration time.Duration) {
	c.idpLatency.Observe(duration.Seconds())
}

// Nop は何も記録しないMetricsCollector。テストやメトリクス無効時に使う。
type Nop struct{}

func (Nop) RecordRegistration(string)           {}
func (Nop) RecordLogin(string)                  {}
func (Nop) RecordTokenVerification(_, _ string) {}
func (Nop) RecordIdentityLink()                 {}
func (Nop) RecordProfileProvisioned()           {}
func (Nop) RecordHTTPStatus(int)                {}
func (Nop) RecordIdPLatency(time.Duration)      {}

// OrNop はcがnilの場合にNopを返す。
func OrNop(c MetricsCollector) MetricsCollector {
	if c == nil {
		return Nop{}
	}
	return c
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

var (
	_ MetricsCollector = (*Collector)(nil)
	_ MetricsCollector = Nop{}
)
