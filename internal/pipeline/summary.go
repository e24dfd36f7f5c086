package pipeline

import (
	"github.com/guregu/null"
	"go.uber.org/zap"

	"github.com/cityzn/cityzn-backend-go/internal/feeds"
	"github.com/cityzn/cityzn-backend-go/internal/models"
	"github.com/cityzn/cityzn-backend-go/internal/spatial"
	"github.com/cityzn/cityzn-backend-go/internal/stats"
)

// Weather observed farther than this from the reference point is suspicious
const stationWarnKm = 20.0

func (p *Pipeline) summarize(sum *models.RunSummary, b *feeds.Bundle, res *Result, counts *CountLookup, weather *WeatherSeries, gst GridStats) {
	sum.Edges.Total = len(res.Edges)
	for _, f := range res.Edges {
		if len(f.Geometry) < 2 {
			sum.Edges.Degenerate++
		}
		if f.HasDedicatedBikeLane {
			sum.Edges.WithDedicatedLane++
		}
	}
	sum.Edges.WithSensor = len(res.Matches.EdgeIDs)
	sum.Edges.FacilityLayer = b.Infrastructure != nil

	sum.Sensors.Total = len(b.Sensors)
	for _, s := range b.Sensors {
		if s.Location != nil {
			sum.Sensors.WithLocation++
		}
	}
	sum.Sensors.Matched = len(res.Matches.Matches)
	sum.Sensors.Excluded = res.Matches.ExcludedByReason()

	sum.Counts.FilesRead = b.Counts.FilesRead
	sum.Counts.FilesSkipped = b.Counts.FilesSkipped
	sum.Counts.RecordsRead = len(b.Counts.Records) + b.Counts.RecordsInvalid
	sum.Counts.RecordsInvalid = b.Counts.RecordsInvalid
	sum.Counts.RecordsUnmatched = counts.Unmatched
	sum.Counts.RecordsUsed = counts.Used
	sum.Counts.DistinctTimestamp = len(counts.Timestamps())

	sum.Weather.Source = b.Weather.Source()
	sum.Weather.Records = weather.Len()
	sum.Weather.RowsMissing = gst.MissingWeather
	if st := b.Weather.Station; st != nil {
		d := spatial.HaversineDistance(p.cfg.Reference.Lat, p.cfg.Reference.Lon, st.Lat(), st.Lon()) / 1000
		sum.Weather.StationDistanceKm = d
		if d > stationWarnKm {
			p.log.Warn("weather station far from the reference point", zap.Float64("distance_km", d))
		}
	}

	targets := make([]null.Int, len(res.Rows))
	temps := make([]null.Float, len(res.Rows))
	rain := make([]null.Bool, len(res.Rows))
	for i, r := range res.Rows {
		targets[i] = r.BikeCount
		temps[i] = r.TemperatureC
		rain[i] = r.IsRaining
		if r.HasDedicatedBikeLane {
			sum.Rows.OnBikeLane++
		}
	}
	sum.Rows.Total = len(res.Rows)
	sum.Rows.WithTarget = gst.WithTarget
	sum.Rows.BikeCount = stats.SummarizeInts(targets)
	sum.Rows.Temperature = stats.SummarizeFloats(temps)
	sum.Rows.RainShare = stats.Share(rain)

	sum.SensorStats = make(map[string]models.ValueStats)
	for id, values := range counts.SensorValues() {
		sum.SensorStats[id] = stats.Summarize(values)
	}
}
