package metrics

import (
	"strconv"
	"time"

	"affiliate-link/internal/model"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// 链接
	LinksCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "afflink_links_created_total",
			Help: "Total number of short links created",
		},
		[]string{"platform"},
	)

	LinkCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "afflink_link_cache_hits_total",
			Help: "Total number of link lookups served from Redis",
		},
	)

	LinkCacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "afflink_link_cache_misses_total",
			Help: "Total number of link lookups that fell through to the database",
		},
	)

	// 点击
	Clicks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "afflink_clicks_total",
			Help: "Total number of redirects issued",
		},
		[]string{"platform"},
	)

	ClickLogFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "afflink_click_log_failures_total",
			Help: "Total number of click log inserts that failed while the redirect still succeeded",
		},
	)

	// 转化
	Conversions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "afflink_conversions_total",
			Help: "Total number of postback conversions stored",
		},
		[]string{"platform", "status"},
	)

	// 实时面板
	DashboardSubscribers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "afflink_dashboard_subscribers",
			Help: "Current number of active dashboard feeds",
		},
	)

	EventPublishFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "afflink_event_publish_failures_total",
			Help: "Total number of change feed events that could not be published",
		},
		[]string{"table"},
	)

	// HTTP
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "afflink_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)
)

// RecordHTTPRequest 记录一次 HTTP 请求耗时
func RecordHTTPRequest(method, route string, status int, duration time.Duration) {
	HTTPRequestDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(duration.Seconds())
}

// PlatformLabel 平台标签只取已知值，其余归为 other
func PlatformLabel(platform string) string {
	switch platform {
	case model.PlatformLazada, model.PlatformShopee:
		return platform
	default:
		return "other"
	}
}
