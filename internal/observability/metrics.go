package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	summaryPersistGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "daypulse",
		Subsystem: "persistence",
		Name:      "last_summary_persisted_timestamp_seconds",
		Help:      "Unix timestamp of the most recent daily summary upserted to Postgres.",
	})
	syncCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "daypulse",
		Subsystem: "sync",
		Name:      "requests_total",
		Help:      "Sync requests handled, labeled by outcome.",
	}, []string{"outcome"})
	syncDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "daypulse",
		Subsystem: "sync",
		Name:      "duration_seconds",
		Help:      "Time spent executing the sync upsert transaction.",
		Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10),
	})
	usersProvisionedCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "daypulse",
		Subsystem: "sync",
		Name:      "users_provisioned_total",
		Help:      "Users lazily created by the self-provisioning sync endpoint.",
	})
	aliveReportCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "daypulse",
		Subsystem: "agent",
		Name:      "alive_reports_total",
		Help:      "Alive reports accepted by the session store.",
	})
	detectorDisabledCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "daypulse",
		Subsystem: "agent",
		Name:      "detector_disabled_total",
		Help:      "Presence detectors that transitioned to the terminal disabled state.",
	})
)

func init() {
	prometheus.MustRegister(
		summaryPersistGauge,
		syncCounter,
		syncDuration,
		usersProvisionedCounter,
		aliveReportCounter,
		detectorDisabledCounter,
	)
}

// RecordSummaryPersisted updates the persistence watermark gauge.
func RecordSummaryPersisted(ts time.Time) {
	if ts.IsZero() {
		return
	}
	summaryPersistGauge.Set(float64(ts.Unix()))
}

// RecordSync counts one handled sync request by outcome.
func RecordSync(outcome string, elapsed time.Duration) {
	syncCounter.WithLabelValues(outcome).Inc()
	if outcome == "success" {
		syncDuration.Observe(elapsed.Seconds())
	}
}

// RecordUserProvisioned counts a lazily created user.
func RecordUserProvisioned() {
	usersProvisionedCounter.Inc()
}

// RecordAliveReport counts an accepted alive report.
func RecordAliveReport() {
	aliveReportCounter.Inc()
}

// RecordDetectorDisabled counts a detector's one-way disable transition.
func RecordDetectorDisabled() {
	detectorDisabledCounter.Inc()
}
