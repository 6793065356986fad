package metrics

import (
	"maps"
	"runtime"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Cycle outcomes.
const (
	OutcomeOK          = "ok"
	OutcomeUnavailable = "unavailable"
	OutcomeStorage     = "storage"
	OutcomeFailed      = "failed"
)

var (
	// Sync metrics
	cycles = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tokenindexor_cycles_total",
			Help: "Total number of sync cycles by feed and outcome",
		},
		[]string{"feed", "outcome"},
	)

	cycleTime = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tokenindexor_cycle_duration_seconds",
			Help:    "Duration of one sync cycle",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"feed"},
	)

	LastSyncedBlock = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "tokenindexor_last_synced_block",
			Help: "The cursor of a stream after its last commit",
		},
		[]string{"feed", "stream"},
	)

	WindowsScanned = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tokenindexor_windows_scanned_total",
			Help: "Total number of block windows scanned",
		},
		[]string{"feed"},
	)

	BlocksProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tokenindexor_blocks_processed_total",
			Help: "Total number of blocks covered by committed cycles",
		},
		[]string{"feed"},
	)

	MutationsApplied = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tokenindexor_mutations_applied_total",
			Help: "Total number of event writes committed",
		},
		[]string{"feed"},
	)

	// System metrics
	Uptime = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "tokenindexor_uptime_seconds",
			Help: "Application uptime in seconds",
		},
	)

	ComponentHealth = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "tokenindexor_component_health",
			Help: "Component health status (1=healthy, 0=unhealthy)",
		},
		[]string{"component"},
	)

	Goroutines = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "tokenindexor_goroutines",
			Help: "Number of active goroutines",
		},
	)

	MemoryUsage = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "tokenindexor_memory_usage_bytes",
			Help: "Memory usage statistics",
		},
		[]string{"type"},
	)

	startTime = time.Now()

	healthMu sync.RWMutex
	health   = map[string]bool{}
)

func CycleInc(feed, outcome string) {
	cycles.WithLabelValues(feed, outcome).Inc()
}

func CycleDuration(feed string, d time.Duration) {
	cycleTime.WithLabelValues(feed).Observe(d.Seconds())
}

func LastSyncedBlockSet(feed, stream string, block uint64) {
	LastSyncedBlock.WithLabelValues(feed, stream).Set(float64(block))
}

func WindowsScannedInc(feed string) {
	WindowsScanned.WithLabelValues(feed).Inc()
}

func BlocksProcessedAdd(feed string, count uint64) {
	BlocksProcessed.WithLabelValues(feed).Add(float64(count))
}

func MutationsAppliedAdd(feed string, count int) {
	MutationsApplied.WithLabelValues(feed).Add(float64(count))
}

// ComponentHealthSet records the outcome of a component's last cycle, both
// as a gauge and for the /health report.
func ComponentHealthSet(component string, healthy bool) {
	healthMu.Lock()
	health[component] = healthy
	healthMu.Unlock()

	v := 0.0
	if healthy {
		v = 1
	}
	ComponentHealth.WithLabelValues(component).Set(v)
}

// HealthSnapshot returns the last recorded health of every component.
func HealthSnapshot() map[string]bool {
	healthMu.RLock()
	defer healthMu.RUnlock()

	return maps.Clone(health)
}

// UpdateSystemMetrics refreshes runtime gauges.
func UpdateSystemMetrics() {
	Uptime.Set(time.Since(startTime).Seconds())
	Goroutines.Set(float64(runtime.NumGoroutine()))

	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	MemoryUsage.WithLabelValues("alloc").Set(float64(m.Alloc))
	MemoryUsage.WithLabelValues("sys").Set(float64(m.Sys))
	MemoryUsage.WithLabelValues("heap_inuse").Set(float64(m.HeapInuse))
}
