package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/bluele/gcache"
	"go.uber.org/zap"

	"github.com/cityzn/cityzn-backend-go/internal/config"
	"github.com/cityzn/cityzn-backend-go/internal/feeds"
	"github.com/cityzn/cityzn-backend-go/internal/logger"
	"github.com/cityzn/cityzn-backend-go/internal/metrics"
	"github.com/cityzn/cityzn-backend-go/internal/models"
	"github.com/cityzn/cityzn-backend-go/internal/pipeline"
	"github.com/cityzn/cityzn-backend-go/internal/repository"
)

// ErrNoDataset is returned when prediction features are requested before
// any build completed
var ErrNoDataset = errors.New("no dataset has been built yet")

// Cache keys
const (
	cacheEdges   = "edges"
	cacheSchema  = "schema"
	cacheWeather = "weather"
)

// FeatureService builds prediction-time feature matrices from the persisted
// static edges and category schema
type FeatureService struct {
	edges      *repository.EdgeRepository
	schemas    *repository.SchemaRepository
	cache      gcache.Cache
	weatherDir string
	loc        *time.Location
	rainMM     float64
	predict    pipeline.PredictionConfig
	seed       int64
	metrics    *metrics.Metrics
	log        *zap.Logger
}

// NewFeatureService creates a feature service. Static edges, the schema and
// the weather series are cached for the configured TTL.
func NewFeatureService(db *sql.DB, cfg *config.Config, m *metrics.Metrics, log *zap.Logger) (*FeatureService, error) {
	loc, err := feeds.LoadLocation(cfg.Data.Timezone)
	if err != nil {
		return nil, err
	}
	ttl := time.Duration(cfg.Server.FeatureTTL) * time.Second
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	p := cfg.Pipeline
	return &FeatureService{
		edges:      repository.NewEdgeRepository(db),
		schemas:    repository.NewSchemaRepository(db),
		cache:      gcache.New(8).LRU().Expiration(ttl).Build(),
		weatherDir: feeds.NewLayout(cfg.Data.Dir).WeatherDir(),
		loc:        loc,
		rainMM:     p.PredictionWeather.RainAboveMM,
		predict: pipeline.PredictionConfig{
			RushMorning:    p.RushMorning,
			RushEvening:    p.RushEvening,
			Weather:        p.PredictionWeather,
			DefaultWeather: p.DefaultWeather,
		},
		seed:    p.SampleSeed,
		metrics: m,
		log:     logger.OrNop(log).Named("features"),
	}, nil
}

// ParseTarget parses a requested datetime as local wall-clock time
func (s *FeatureService) ParseTarget(value string) (time.Time, error) {
	return feeds.ParseTimestamp(value, s.loc)
}

// Features builds the feature matrix of every edge at target. sample > 0
// restricts the matrix to a reproducible subset of that many edges.
func (s *FeatureService) Features(ctx context.Context, target time.Time, sample int) (*models.FeatureMatrix, error) {
	m, err := s.features(ctx, target, sample)
	if err != nil {
		s.metrics.FeatureRequest("error")
		return nil, err
	}
	s.metrics.FeatureRequest("ok")
	return m, nil
}

func (s *FeatureService) features(ctx context.Context, target time.Time, sample int) (*models.FeatureMatrix, error) {
	schema, err := s.Schema(ctx)
	if err != nil {
		return nil, err
	}
	edges, err := s.staticEdges(ctx)
	if err != nil {
		return nil, err
	}
	weather, err := s.weatherSeries()
	if err != nil {
		return nil, err
	}

	edges = pipeline.SampleEdges(edges, sample, s.seed)
	m, err := pipeline.PredictionFeatures(edges, target, weather, schema, s.predict)
	if err != nil {
		return nil, err
	}

	for col, n := range m.UnseenValues {
		s.log.Warn("categories unseen at training time", zap.String("column", col), zap.Int("rows", n))
	}
	if m.WeatherAt == nil {
		s.log.Info("no weather record, default weather used", zap.Time("target", target))
	}
	return m, nil
}

// Schema returns the latest category schema
func (s *FeatureService) Schema(ctx context.Context) (*models.CategorySchema, error) {
	if v, err := s.cache.Get(cacheSchema); err == nil {
		s.metrics.FeatureCache(true)
		return v.(*models.CategorySchema), nil
	}
	s.metrics.FeatureCache(false)

	schema, err := s.schemas.Latest(ctx)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNoDataset
	}
	if err != nil {
		return nil, err
	}
	if err := pipeline.ValidateSchema(schema); err != nil {
		return nil, err
	}
	s.cache.Set(cacheSchema, schema)
	return schema, nil
}

// Edge returns the static features of one edge
func (s *FeatureService) Edge(ctx context.Context, osmID int64) (*models.EdgeFeatures, error) {
	return s.edges.GetByID(ctx, osmID)
}

// Invalidate drops every cached value, called after a build
func (s *FeatureService) Invalidate() {
	s.cache.Purge()
}

func (s *FeatureService) staticEdges(ctx context.Context) ([]models.EdgeFeatures, error) {
	if v, err := s.cache.Get(cacheEdges); err == nil {
		s.metrics.FeatureCache(true)
		return v.([]models.EdgeFeatures), nil
	}
	s.metrics.FeatureCache(false)

	edges, err := s.edges.List(ctx)
	if err != nil {
		return nil, err
	}
	if len(edges) == 0 {
		return nil, ErrNoDataset
	}
	s.cache.Set(cacheEdges, edges)
	return edges, nil
}

func (s *FeatureService) weatherSeries() (*pipeline.WeatherSeries, error) {
	if v, err := s.cache.Get(cacheWeather); err == nil {
		s.metrics.FeatureCache(true)
		return v.(*pipeline.WeatherSeries), nil
	}
	s.metrics.FeatureCache(false)

	feed, err := feeds.LoadWeatherAll(s.weatherDir, s.loc, s.rainMM, s.log)
	if err != nil {
		return nil, fmt.Errorf("failed to load weather: %w", err)
	}
	series := pipeline.NewWeatherSeries(feed.Records)
	s.cache.Set(cacheWeather, series)
	return series, nil
}
