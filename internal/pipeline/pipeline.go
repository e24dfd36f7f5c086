package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/paulmach/orb"
	"go.uber.org/zap"

	"github.com/cityzn/cityzn-backend-go/internal/config"
	"github.com/cityzn/cityzn-backend-go/internal/feeds"
	"github.com/cityzn/cityzn-backend-go/internal/logger"
	"github.com/cityzn/cityzn-backend-go/internal/metrics"
	"github.com/cityzn/cityzn-backend-go/internal/models"
	"github.com/cityzn/cityzn-backend-go/internal/spatial"
)

// Pipeline assembles the training table from a bundle of feeds. Each stage
// consumes the complete output of the previous one; nothing runs concurrently.
type Pipeline struct {
	cfg     config.PipelineConfig
	log     *zap.Logger
	metrics *metrics.Metrics
	lambert *spatial.Lambert93
}

// Result is the output of one build
type Result struct {
	Edges   []models.EdgeFeatures // every edge of the network
	Rows    []models.TrainingRow  // edges with sensors × distinct timestamps
	Matches *MatchResult
	Schema  models.CategorySchema // RunID and Version are set by the caller
	Summary models.RunSummary
}

// New creates a pipeline. log and m may be nil.
func New(cfg config.PipelineConfig, log *zap.Logger, m *metrics.Metrics) *Pipeline {
	return &Pipeline{
		cfg:     cfg,
		log:     logger.OrNop(log).Named("pipeline"),
		metrics: m,
		lambert: spatial.NewLambert93(),
	}
}

// Config returns the thresholds the pipeline runs with
func (p *Pipeline) Config() config.PipelineConfig {
	return p.cfg
}

// ReferencePoint returns the projected reference point
func (p *Pipeline) ReferencePoint() orb.Point {
	return p.lambert.Project(orb.Point{p.cfg.Reference.Lon, p.cfg.Reference.Lat})
}

// Build runs every stage. The context is checked between stages.
func (p *Pipeline) Build(ctx context.Context, b *feeds.Bundle) (*Result, error) {
	if b == nil || b.Network == nil || b.Counts == nil || b.Weather == nil {
		return nil, fmt.Errorf("incomplete feed bundle")
	}
	res := &Result{}
	sum := &res.Summary

	// Projection and index
	start := time.Now()
	edges, err := ProjectEdges(b.Network.Edges, b.Network.CRS, p.lambert)
	if err != nil {
		return nil, err
	}
	var facilities []orb.Geometry
	if b.Infrastructure != nil {
		if facilities, err = ProjectFacilities(b.Infrastructure.Geometries, b.Infrastructure.CRS, p.lambert); err != nil {
			return nil, err
		}
	}
	ix := BuildEdgeIndex(edges, p.cfg.IndexCellSizeM)
	p.stageDone("index", start)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Sensor association
	start = time.Now()
	res.Matches = MatchSensors(b.Sensors, ix, p.lambert, p.cfg.MaxMatchDistanceM, p.log)
	p.stageDone("match", start)
	if len(res.Matches.EdgeIDs) == 0 {
		return nil, ErrNoTrainingEdges
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Static features
	start = time.Now()
	proximity := AnnotateInfrastructure(edges, facilities, res.Matches, ProximityConfig{
		BufferM:   p.cfg.BikeLaneBufferM,
		SentinelM: p.cfg.BikeLaneSentinelM,
		CellSizeM: p.cfg.IndexCellSizeM,
	}, p.log)
	res.Edges = ComputeStaticFeatures(edges, proximity, res.Matches, StaticConfig{
		DefaultMaxSpeedKmh: p.cfg.DefaultMaxSpeedKmh,
		DefaultLanes:       p.cfg.DefaultLanes,
		Reference:          p.ReferencePoint(),
	})
	p.stageDone("static", start)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Temporal lookups
	start = time.Now()
	counts := BuildCountLookup(b.Counts.Records, res.Matches)
	weather := NewWeatherSeries(b.Weather.Records)
	timestamps := counts.Timestamps()
	p.stageDone("temporal", start)
	if len(timestamps) == 0 {
		return nil, ErrNoTimestamps
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Grid
	start = time.Now()
	static := make(map[int64]models.EdgeFeatures, len(res.Edges))
	for _, f := range res.Edges {
		static[f.OSMID] = f
	}
	rows, gst, err := AssembleGrid(res.Matches.EdgeIDs, timestamps, static, counts, weather, GridConfig{
		RushMorning: p.cfg.RushMorning,
		RushEvening: p.cfg.RushEvening,
		Weather:     p.cfg.TrainingWeather,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to assemble grid: %w", err)
	}
	p.stageDone("grid", start)
	if gst.MissingWeather > 0 {
		p.log.Warn("rows without prior weather record", zap.Int("rows", gst.MissingWeather))
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Lags
	start = time.Now()
	DeriveLagFeatures(rows, LagConfig{
		Short:             p.cfg.LagShort,
		Long:              p.cfg.LagLong,
		RollingWindow:     p.cfg.RollingWindow,
		RollingMinPeriods: p.cfg.RollingMinPeriods,
	})
	res.Rows = rows
	res.Schema = BuildSchema(rows, "", 0)
	p.stageDone("lags", start)

	p.summarize(sum, b, res, counts, weather, gst)
	p.metrics.SetMatches(sum.Sensors.Matched, sum.Sensors.Excluded)
	p.metrics.AddSkipped("network", len(b.Network.Skipped))
	p.metrics.AddSkipped("counts", b.Counts.FilesSkipped+b.Counts.RecordsInvalid)
	p.metrics.AddSkipped("weather", b.Weather.Invalid)
	p.metrics.SetRows(sum.Rows.Total, sum.Weather.RowsMissing)

	p.log.Info("training table assembled",
		zap.Int("edges", len(res.Matches.EdgeIDs)),
		zap.Int("timestamps", len(timestamps)),
		zap.Int("rows", len(rows)),
		zap.Int("rows_with_target", gst.WithTarget))
	return res, nil
}

func (p *Pipeline) stageDone(stage string, start time.Time) {
	p.metrics.ObserveStage(stage, start)
	p.log.Debug("stage done", zap.String("stage", stage), zap.Duration("took", time.Since(start)))
}
