package pipeline

import (
	"sort"
	"time"

	"github.com/guregu/null"

	"github.com/cityzn/cityzn-backend-go/internal/config"
	"github.com/cityzn/cityzn-backend-go/internal/models"
)

type countKey struct {
	edgeID int64
	unix   int64
}

// CountLookup holds summed counts keyed by (edge, timestamp)
type CountLookup struct {
	counts     map[countKey]int64
	timestamps []time.Time
	perSensor  map[string][]float64

	Used      int // records mapped to an edge
	Unmatched int // records of a sensor without association
}

// BuildCountLookup maps each record to its sensor's edge and sums the counts
// of every sensor sharing an edge at the same timestamp. Records whose
// sensor has no association are dropped and counted.
func BuildCountLookup(records []models.CountRecord, matches *MatchResult) *CountLookup {
	cl := &CountLookup{
		counts:    make(map[countKey]int64),
		perSensor: make(map[string][]float64),
	}
	seen := make(map[int64]time.Time)

	for _, r := range records {
		m, ok := matches.Matches[r.CounterID]
		if !ok {
			cl.Unmatched++
			continue
		}
		cl.Used++
		unix := r.Timestamp.Unix()
		cl.counts[countKey{m.EdgeID, unix}] += r.Count
		cl.perSensor[r.CounterID] = append(cl.perSensor[r.CounterID], float64(r.Count))
		if _, ok := seen[unix]; !ok {
			seen[unix] = r.Timestamp
		}
	}

	cl.timestamps = make([]time.Time, 0, len(seen))
	for _, ts := range seen {
		cl.timestamps = append(cl.timestamps, ts)
	}
	sort.Slice(cl.timestamps, func(i, j int) bool { return cl.timestamps[i].Before(cl.timestamps[j]) })
	return cl
}

// Get returns the summed count of an edge at ts
func (cl *CountLookup) Get(edgeID int64, ts time.Time) (int64, bool) {
	c, ok := cl.counts[countKey{edgeID, ts.Unix()}]
	return c, ok
}

// Timestamps returns the distinct timestamps of the used records, ascending
func (cl *CountLookup) Timestamps() []time.Time {
	return cl.timestamps
}

// SensorValues returns the used counts of each matched sensor
func (cl *CountLookup) SensorValues() map[string][]float64 {
	return cl.perSensor
}

// WeatherSeries is a weather feed sorted by timestamp with one record per timestamp
type WeatherSeries struct {
	records []models.WeatherRecord
}

// NewWeatherSeries sorts records; on duplicate timestamps the first record read wins
func NewWeatherSeries(records []models.WeatherRecord) *WeatherSeries {
	sorted := make([]models.WeatherRecord, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Timestamp.Before(sorted[j].Timestamp) })

	out := sorted[:0]
	for _, r := range sorted {
		if len(out) > 0 && out[len(out)-1].Timestamp.Equal(r.Timestamp) {
			continue
		}
		out = append(out, r)
	}
	return &WeatherSeries{records: out}
}

// Len returns the number of distinct records
func (w *WeatherSeries) Len() int {
	return len(w.records)
}

// NearestPrior is the training-time strategy: the record at ts, else the
// latest record strictly before ts. A later record is never used; with no
// record at or before ts it returns ErrMissingWeatherData.
func (w *WeatherSeries) NearestPrior(ts time.Time) (models.WeatherRecord, error) {
	// first record strictly after ts
	i := sort.Search(len(w.records), func(i int) bool { return w.records[i].Timestamp.After(ts) })
	if i == 0 {
		return models.WeatherRecord{}, ErrMissingWeatherData
	}
	return w.records[i-1], nil
}

// NearestAbsolute is the prediction-time strategy: the record with the
// smallest absolute time difference to ts, future records included. Ties go
// to the earlier record. ok is false on an empty series.
func (w *WeatherSeries) NearestAbsolute(ts time.Time) (rec models.WeatherRecord, ok bool) {
	if len(w.records) == 0 {
		return models.WeatherRecord{}, false
	}
	i := sort.Search(len(w.records), func(i int) bool { return !w.records[i].Timestamp.Before(ts) })
	switch {
	case i == 0:
		return w.records[0], true
	case i == len(w.records):
		return w.records[i-1], true
	}
	before, after := w.records[i-1], w.records[i]
	if after.Timestamp.Sub(ts) < ts.Sub(before.Timestamp) {
		return after, true
	}
	return before, true
}

// WeatherFlags derives the threshold indicators of a record. A null
// measurement never raises its flag.
func WeatherFlags(r models.WeatherRecord, th config.WeatherThresholds) models.WeatherFlags {
	return models.WeatherFlags{
		IsRaining: r.IsRaining,
		IsCold:    r.TemperatureC.Valid && r.TemperatureC.Float64 < th.ColdBelowC,
		IsHot:     r.TemperatureC.Valid && r.TemperatureC.Float64 > th.HotAboveC,
		IsWindy:   r.WindSpeedKmh.Valid && r.WindSpeedKmh.Float64 > th.WindyAboveKmh,
	}
}

// DefaultWeatherRecord builds the stand-in record used when no feed exists
func DefaultWeatherRecord(ts time.Time, d config.DefaultWeather) models.WeatherRecord {
	return models.WeatherRecord{
		Timestamp:       ts,
		TemperatureC:    null.FloatFrom(d.TemperatureC),
		PrecipitationMM: null.FloatFrom(d.PrecipitationMM),
		WindSpeedKmh:    null.FloatFrom(d.WindSpeedKmh),
		IsRaining:       d.IsRaining,
	}
}
