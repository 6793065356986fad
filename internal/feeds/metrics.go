package feeds

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	recordsWritten = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tokenindexor_records_written_total",
			Help: "Rows inserted or updated by feeds",
		},
		[]string{"table"},
	)

	recordsSkipped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tokenindexor_records_skipped_total",
			Help: "Events that produced no row",
		},
		[]string{"table", "reason"},
	)

	notificationsEmitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tokenindexor_notifications_emitted_total",
			Help: "Notifications created by code",
		},
		[]string{"code"},
	)

	watchSetSize = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "tokenindexor_watchset_size",
			Help: "Contracts watched by a feed",
		},
		[]string{"feed", "kind"},
	)
)

// RecordWritten counts one row written to table.
func RecordWritten(table string) {
	recordsWritten.WithLabelValues(table).Inc()
}

// RecordSkipped counts one event dropped for reason.
func RecordSkipped(table, reason string) {
	recordsSkipped.WithLabelValues(table, reason).Inc()
}

// NotificationEmitted counts one notification of code.
func NotificationEmitted(code string) {
	notificationsEmitted.WithLabelValues(code).Inc()
}

// WatchSetSize records the number of tokens and linked contracts of feed.
func WatchSetSize(feed string, tokens, links int) {
	watchSetSize.WithLabelValues(feed, "token").Set(float64(tokens))
	watchSetSize.WithLabelValues(feed, "link").Set(float64(links))
}
