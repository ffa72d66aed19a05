package metrics

import (
	"database/sql"
	"log"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricPrefix = "recon_"

	// ResultSuccess and ResultError label operation outcomes.
	ResultSuccess = "success"
	ResultError   = "error"
)

var (
	registerOnce sync.Once

	importTotal   *prometheus.CounterVec
	importLatency *prometheus.HistogramVec

	matchTotal   *prometheus.CounterVec
	matchLatency *prometheus.HistogramVec

	submitTotal   *prometheus.CounterVec
	submitLatency *prometheus.HistogramVec

	exportTotal   *prometheus.CounterVec
	exportLatency *prometheus.HistogramVec

	decisionUpdates *prometheus.CounterVec
	stageChanges    *prometheus.CounterVec
	sessionsOpen    prometheus.Gauge

	consumerLag *prometheus.GaugeVec
)

// Init registers observability metrics and DB-backed gauges.
func Init(db *sql.DB, logger *log.Logger) {
	registerOnce.Do(func() {
		importTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "statement_import_total",
				Help: "Total statement import operations by result",
			},
			[]string{"result"},
		)
		importLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "statement_import_latency_seconds",
				Help:    "Statement import latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"result"},
		)

		matchTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "match_total",
				Help: "Total automatic matching runs by result",
			},
			[]string{"result"},
		)
		matchLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "match_latency_seconds",
				Help:    "Automatic matching latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"result"},
		)

		submitTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "submit_total",
				Help: "Total reconciliation submissions by result",
			},
			[]string{"result"},
		)
		submitLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "submit_latency_seconds",
				Help:    "Reconciliation submission latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"result"},
		)

		exportTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "result_export_total",
				Help: "Total result export operations by format and result",
			},
			[]string{"format", "result"},
		)
		exportLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "result_export_latency_seconds",
				Help:    "Result export latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"format", "result"},
		)

		decisionUpdates = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "manual_decision_updates_total",
				Help: "Total manual decision updates by field",
			},
			[]string{"field"},
		)
		stageChanges = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "stage_changes_total",
				Help: "Total workflow stage transitions by target stage",
			},
			[]string{"stage"},
		)
		sessionsOpen = prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: metricPrefix + "sessions_open",
				Help: "Reconciliation sessions currently open",
			},
		)

		consumerLag = prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: metricPrefix + "event_consumer_lag_seconds",
				Help: "Consumer processing lag in seconds",
			},
			[]string{"consumer"},
		)

		prometheus.MustRegister(
			importTotal,
			importLatency,
			matchTotal,
			matchLatency,
			submitTotal,
			submitLatency,
			exportTotal,
			exportLatency,
			decisionUpdates,
			stageChanges,
			sessionsOpen,
			consumerLag,
		)

		if db != nil {
			registerDBMetrics(db, logger)
		}
	})
}

// ObserveImport records statement import duration and result.
func ObserveImport(result string, duration time.Duration) {
	if result == "" {
		result = ResultSuccess
	}
	if importTotal != nil {
		importTotal.WithLabelValues(result).Inc()
	}
	if importLatency != nil {
		importLatency.WithLabelValues(result).Observe(duration.Seconds())
	}
}

// ObserveMatch records automatic matching duration and result.
func ObserveMatch(result string, duration time.Duration) {
	if result == "" {
		result = ResultSuccess
	}
	if matchTotal != nil {
		matchTotal.WithLabelValues(result).Inc()
	}
	if matchLatency != nil {
		matchLatency.WithLabelValues(result).Observe(duration.Seconds())
	}
}

// ObserveSubmit records submission duration and result.
func ObserveSubmit(result string, duration time.Duration) {
	if result == "" {
		result = ResultSuccess
	}
	if submitTotal != nil {
		submitTotal.WithLabelValues(result).Inc()
	}
	if submitLatency != nil {
		submitLatency.WithLabelValues(result).Observe(duration.Seconds())
	}
}

// ObserveExport records export duration by format and result.
func ObserveExport(format, result string, duration time.Duration) {
	if format == "" {
		format = "unknown"
	}
	if result == "" {
		result = ResultSuccess
	}
	if exportTotal != nil {
		exportTotal.WithLabelValues(format, result).Inc()
	}
	if exportLatency != nil {
		exportLatency.WithLabelValues(format, result).Observe(duration.Seconds())
	}
}

// IncDecisionUpdate increments the manual decision counter for a field.
func IncDecisionUpdate(field string) {
	if field == "" {
		field = "unknown"
	}
	if decisionUpdates != nil {
		decisionUpdates.WithLabelValues(field).Inc()
	}
}

// IncStageChange increments the stage transition counter.
func IncStageChange(stage string) {
	if stage == "" {
		stage = "unknown"
	}
	if stageChanges != nil {
		stageChanges.WithLabelValues(stage).Inc()
	}
}

// SetSessionsOpen sets the open session gauge.
func SetSessionsOpen(count int) {
	if count < 0 {
		count = 0
	}
	if sessionsOpen != nil {
		sessionsOpen.Set(float64(count))
	}
}

// ObserveConsumerLag sets consumer lag in seconds.
func ObserveConsumerLag(consumer string, lag time.Duration) {
	if consumer == "" {
		consumer = "unknown"
	}
	if lag < 0 {
		lag = 0
	}
	if consumerLag != nil {
		consumerLag.WithLabelValues(consumer).Set(lag.Seconds())
	}
}
