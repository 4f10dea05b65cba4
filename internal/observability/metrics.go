// Package observability exposes Prometheus metrics for the workout log.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	workoutsGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "workoutlog",
		Subsystem: "registry",
		Name:      "workouts",
		Help:      "Number of workouts currently held by the registry.",
	})
	mutationCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "workoutlog",
		Subsystem: "registry",
		Name:      "mutations_total",
		Help:      "Committed registry mutations grouped by operation.",
	}, []string{"op"})
	snapshotGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "workoutlog",
		Subsystem: "persistence",
		Name:      "last_snapshot_written_timestamp_seconds",
		Help:      "Unix timestamp of the most recent snapshot write.",
	})
	snapshotBytesGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "workoutlog",
		Subsystem: "persistence",
		Name:      "last_snapshot_bytes",
		Help:      "Size in bytes of the most recent snapshot document.",
	})
	snapshotFailureCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "workoutlog",
		Subsystem: "persistence",
		Name:      "snapshot_failures_total",
		Help:      "Number of snapshot writes that failed.",
	})
	noticeCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "workoutlog",
		Subsystem: "presenter",
		Name:      "notices_total",
		Help:      "Number of user-facing notices raised.",
	})
)

func init() {
	prometheus.MustRegister(workoutsGauge, mutationCounter, snapshotGauge, snapshotBytesGauge, snapshotFailureCounter, noticeCounter)
}

// RecordSnapshotWritten updates the persistence watermark gauges.
func RecordSnapshotWritten(ts time.Time, size int) {
	if ts.IsZero() {
		return
	}
	snapshotGauge.Set(float64(ts.Unix()))
	snapshotBytesGauge.Set(float64(size))
}

// RecordSnapshotFailure counts a failed snapshot write.
func RecordSnapshotFailure() {
	snapshotFailureCounter.Inc()
}

// RecordNotice counts a user-facing notice.
func RecordNotice() {
	noticeCounter.Inc()
}

// RegistryObserver feeds committed registry mutations into the metrics.
type RegistryObserver struct{}

// Committed implements domain.Observer.
func (RegistryObserver) Committed(op string, count int) {
	mutationCounter.WithLabelValues(op).Inc()
	workoutsGauge.Set(float64(count))
}

// SetWorkouts sets the current workout count, e.g. after rehydration.
func SetWorkouts(count int) {
	workoutsGauge.Set(float64(count))
}
