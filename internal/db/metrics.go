package db

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	checkpointOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tokenindexor_db_checkpoints_total",
			Help: "WAL checkpoints by outcome",
		},
		[]string{"status"},
	)

	checkpointDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "tokenindexor_db_checkpoint_duration_seconds",
			Help:    "Time spent holding the exclusive operation lock for a checkpoint",
			Buckets: prometheus.DefBuckets,
		},
	)

	dbSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "tokenindexor_db_size_bytes",
			Help: "Database size in bytes including WAL files",
		},
	)

	storageErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tokenindexor_db_storage_errors_total",
			Help: "Storage failures by operation and vendor code",
		},
		[]string{"op", "code"},
	)
)

func maintenanceOutcomeInc(status string) {
	checkpointOutcomes.WithLabelValues(status).Inc()
}

func maintenanceDurationLog(d time.Duration) {
	checkpointDuration.Observe(d.Seconds())
}

func dbSizeLog(size int64) {
	dbSize.Set(float64(size))
}

func storageErrorInc(op, code string) {
	if code == "" {
		code = "none"
	}
	storageErrors.WithLabelValues(op, code).Inc()
}
