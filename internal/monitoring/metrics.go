package monitoring

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics 监控指标
type Metrics struct {
	// HTTP 请求指标
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	HTTPResponseSize    *prometheus.HistogramVec

	// 服务注册表指标
	ServicesCreated prometheus.Counter
	ServicesDeleted prometheus.Counter

	// API密钥指标
	KeysCreated    prometheus.Counter
	KeysDeleted    prometheus.Counter
	KeyToggles     prometheus.Counter
	KeyActivations prometheus.Counter

	// 提示词指标
	PromptsCreated prometheus.Counter

	// 用户指标
	UsersRegistered prometheus.Counter

	// 错误指标
	ErrorsTotal *prometheus.CounterVec
	PanicsTotal prometheus.Counter

	// 限流指标
	RateLimitBlocks *prometheus.CounterVec

	// 系统指标
	DatabaseConnections prometheus.Gauge
}

// NewMetrics 创建监控指标
func NewMetrics() *Metrics {
	return &Metrics{
		HTTPRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "aidash_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "endpoint", "status_code"},
		),

		HTTPRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "aidash_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "endpoint"},
		),

		HTTPResponseSize: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "aidash_http_response_size_bytes",
				Help:    "HTTP response size in bytes",
				Buckets: prometheus.ExponentialBuckets(100, 10, 8),
			},
			[]string{"method", "endpoint"},
		),

		ServicesCreated: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "aidash_services_created_total",
				Help: "Total number of API services created",
			},
		),

		ServicesDeleted: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "aidash_services_deleted_total",
				Help: "Total number of API services deleted",
			},
		),

		KeysCreated: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "aidash_api_keys_created_total",
				Help: "Total number of API keys created",
			},
		),

		KeysDeleted: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "aidash_api_keys_deleted_total",
				Help: "Total number of API keys deleted",
			},
		),

		KeyToggles: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "aidash_api_key_toggles_total",
				Help: "Total number of API key status toggles",
			},
		),

		KeyActivations: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "aidash_api_key_activations_total",
				Help: "Total number of exclusive API key activations",
			},
		),

		PromptsCreated: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "aidash_system_prompts_created_total",
				Help: "Total number of system prompts created",
			},
		),

		UsersRegistered: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "aidash_users_registered_total",
				Help: "Total number of users registered",
			},
		),

		ErrorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "aidash_errors_total",
				Help: "Total number of errors",
			},
			[]string{"type", "component"},
		),

		PanicsTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "aidash_panics_total",
				Help: "Total number of panics",
			},
		),

		RateLimitBlocks: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "aidash_rate_limit_blocks_total",
				Help: "Total number of rate limit blocks",
			},
			[]string{"type", "key"},
		),

		DatabaseConnections: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "aidash_database_connections",
				Help: "Number of open database connections",
			},
		),
	}
}

// RecordHTTPRequest 记录 HTTP 请求指标
func (m *Metrics) RecordHTTPRequest(method, endpoint, statusCode string, duration time.Duration, responseSize int64) {
	m.HTTPRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
	m.HTTPResponseSize.WithLabelValues(method, endpoint).Observe(float64(responseSize))
}

// RecordServiceCreated 记录服务创建
func (m *Metrics) RecordServiceCreated() {
	m.ServicesCreated.Inc()
}

// RecordServiceDeleted 记录服务删除
func (m *Metrics) RecordServiceDeleted() {
	m.ServicesDeleted.Inc()
}

// RecordKeyCreated 记录密钥创建
func (m *Metrics) RecordKeyCreated() {
	m.KeysCreated.Inc()
}

// RecordKeyDeleted 记录密钥删除
func (m *Metrics) RecordKeyDeleted() {
	m.KeysDeleted.Inc()
}

// RecordKeyToggle 记录密钥状态切换
func (m *Metrics) RecordKeyToggle() {
	m.KeyToggles.Inc()
}

// RecordKeyActivation 记录排他激活
func (m *Metrics) RecordKeyActivation() {
	m.KeyActivations.Inc()
}

// RecordPromptCreated 记录提示词创建
func (m *Metrics) RecordPromptCreated() {
	m.PromptsCreated.Inc()
}

// RecordUserRegistered 记录用户注册
func (m *Metrics) RecordUserRegistered() {
	m.UsersRegistered.Inc()
}

// RecordError 记录错误
func (m *Metrics) RecordError(errorType, component string) {
	m.ErrorsTotal.WithLabelValues(errorType, component).Inc()
}

// RecordPanic 记录 panic
func (m *Metrics) RecordPanic() {
	m.PanicsTotal.Inc()
}

// RecordRateLimitBlock 记录限流阻止
func (m *Metrics) RecordRateLimitBlock(limitType, key string) {
	m.RateLimitBlocks.WithLabelValues(limitType, key).Inc()
}

// UpdateDatabaseConnections 更新数据库连接数
func (m *Metrics) UpdateDatabaseConnections(count int) {
	m.DatabaseConnections.Set(float64(count))
}

// HTTPHandler 返回 Prometheus HTTP 处理器
func (m *Metrics) HTTPHandler() http.Handler {
	return promhttp.Handler()
}
