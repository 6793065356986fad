package scanner

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	eventsScanned = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tokenindexor_scanner_events_total",
		Help: "Decoded events returned by the scanner",
	}, []string{"event"})

	scanDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "tokenindexor_scanner_fetch_duration_seconds",
		Help:    "Time spent fetching logs for one event and window",
		Buckets: prometheus.DefBuckets,
	}, []string{"event"})
)

func eventsScannedAdd(event string, n int) {
	eventsScanned.WithLabelValues(event).Add(float64(n))
}

func scanDurationLog(event string, d time.Duration) {
	scanDuration.WithLabelValues(event).Observe(d.Seconds())
}
