package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics groups the collectors of the dataset builder. A nil *Metrics is
// valid and records nothing, so library callers and tests can skip it.
type Metrics struct {
	Registry *prometheus.Registry

	buildsTotal      *prometheus.CounterVec
	buildDuration    prometheus.Histogram
	stageDuration    *prometheus.HistogramVec
	sensorsMatched   prometheus.Gauge
	sensorsExcluded  *prometheus.GaugeVec
	recordsSkipped   *prometheus.CounterVec
	rowsAssembled    prometheus.Gauge
	rowsMissingWeath prometheus.Gauge
	featureRequests  *prometheus.CounterVec
	featureCacheHits prometheus.Counter
	featureCacheMiss prometheus.Counter
}

// New registers every collector on a dedicated registry
func New() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)

	return &Metrics{
		Registry: reg,
		buildsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "cityzn_dataset_builds_total",
			Help: "Dataset builds by final status.",
		}, []string{"status"}),
		buildDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "cityzn_dataset_build_duration_seconds",
			Help:    "Duration of a full dataset build.",
			Buckets: []float64{0.5, 1, 5, 15, 30, 60, 120, 300},
		}),
		stageDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "cityzn_dataset_stage_duration_seconds",
			Help:    "Duration of each pipeline stage.",
			Buckets: []float64{0.01, 0.1, 0.5, 1, 5, 15, 60},
		}, []string{"stage"}),
		sensorsMatched: f.NewGauge(prometheus.GaugeOpts{
			Name: "cityzn_sensors_matched",
			Help: "Sensors associated to an edge in the last build.",
		}),
		sensorsExcluded: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "cityzn_sensors_excluded",
			Help: "Sensors excluded from the last build by reason.",
		}, []string{"reason"}),
		recordsSkipped: f.NewCounterVec(prometheus.CounterOpts{
			Name: "cityzn_feed_records_skipped_total",
			Help: "Feed files and records skipped as malformed.",
		}, []string{"feed"}),
		rowsAssembled: f.NewGauge(prometheus.GaugeOpts{
			Name: "cityzn_training_rows",
			Help: "Rows of the last assembled training table.",
		}),
		rowsMissingWeath: f.NewGauge(prometheus.GaugeOpts{
			Name: "cityzn_training_rows_missing_weather",
			Help: "Rows of the last training table without a prior weather record.",
		}),
		featureRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "cityzn_feature_requests_total",
			Help: "Prediction feature requests by outcome.",
		}, []string{"outcome"}),
		featureCacheHits: f.NewCounter(prometheus.CounterOpts{
			Name: "cityzn_feature_cache_hits_total",
			Help: "Static edge table cache hits.",
		}),
		featureCacheMiss: f.NewCounter(prometheus.CounterOpts{
			Name: "cityzn_feature_cache_misses_total",
			Help: "Static edge table cache misses.",
		}),
	}
}

// ObserveStage records the duration of one pipeline stage
func (m *Metrics) ObserveStage(stage string, start time.Time) {
	if m == nil {
		return
	}
	m.stageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
}

// BuildFinished records a finished build
func (m *Metrics) BuildFinished(status string, start time.Time) {
	if m == nil {
		return
	}
	m.buildsTotal.WithLabelValues(status).Inc()
	m.buildDuration.Observe(time.Since(start).Seconds())
}

// SetMatches records the sensor association outcome
func (m *Metrics) SetMatches(matched int, excluded map[string]int) {
	if m == nil {
		return
	}
	m.sensorsMatched.Set(float64(matched))
	m.sensorsExcluded.Reset()
	for reason, n := range excluded {
		m.sensorsExcluded.WithLabelValues(reason).Set(float64(n))
	}
}

// AddSkipped counts skipped files or records of a feed
func (m *Metrics) AddSkipped(feed string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.recordsSkipped.WithLabelValues(feed).Add(float64(n))
}

// SetRows records the size of the assembled training table
func (m *Metrics) SetRows(total, missingWeather int) {
	if m == nil {
		return
	}
	m.rowsAssembled.Set(float64(total))
	m.rowsMissingWeath.Set(float64(missingWeather))
}

// FeatureRequest counts a prediction feature request
func (m *Metrics) FeatureRequest(outcome string) {
	if m == nil {
		return
	}
	m.featureRequests.WithLabelValues(outcome).Inc()
}

// FeatureCache counts a lookup of the static edge cache
func (m *Metrics) FeatureCache(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.featureCacheHits.Inc()
		return
	}
	m.featureCacheMiss.Inc()
}
