package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RedisErrors counts Redis errors by command name.
	RedisErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "blogcms_redis_errors_total",
		Help: "Total number of Redis errors by command",
	}, []string{"command"})

	// CacheLookups counts cache-aside lookups by result (hit, miss, error).
	CacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "blogcms_cache_lookups_total",
		Help: "Cache-aside lookups by result",
	}, []string{"result"})

	// CommentActions counts comment submissions and moderation actions.
	CommentActions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "blogcms_comment_actions_total",
		Help: "Comment submissions and moderation actions",
	}, []string{"action"})

	// FeedSyncRecords counts per-record sync outcomes.
	FeedSyncRecords = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "blogcms_feed_sync_records_total",
		Help: "Feed records processed by outcome (inserted, updated, failed)",
	}, []string{"source", "outcome"})

	// FeedSyncDuration records how long a whole sync took.
	FeedSyncDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "blogcms_feed_sync_duration_seconds",
		Help:    "Feed synchronization duration in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"source", "result"})

	// MediaUploadBytes records accepted upload sizes.
	MediaUploadBytes = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "blogcms_media_upload_bytes",
		Help:    "Size of accepted media uploads in bytes",
		Buckets: prometheus.ExponentialBuckets(16<<10, 4, 8),
	}, []string{"kind"})

	// MediaUploadsRejected counts rejected uploads by reason.
	MediaUploadsRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "blogcms_media_uploads_rejected_total",
		Help: "Rejected media uploads by reason",
	}, []string{"reason"})

	// WebSocketConnections is the gauge of open admin event connections.
	WebSocketConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "blogcms_websocket_connections",
		Help: "Number of open admin event websocket connections",
	})

	// WebSocketBackpressureDrops counts events dropped because a client buffer was full.
	WebSocketBackpressureDrops = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "blogcms_websocket_backpressure_drops_total",
		Help: "Total number of websocket messages dropped due to backpressure",
	}, []string{"reason"})
)
