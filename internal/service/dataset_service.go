package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/cityzn/cityzn-backend-go/internal/config"
	"github.com/cityzn/cityzn-backend-go/internal/database"
	"github.com/cityzn/cityzn-backend-go/internal/export"
	"github.com/cityzn/cityzn-backend-go/internal/feeds"
	"github.com/cityzn/cityzn-backend-go/internal/logger"
	"github.com/cityzn/cityzn-backend-go/internal/metrics"
	"github.com/cityzn/cityzn-backend-go/internal/models"
	"github.com/cityzn/cityzn-backend-go/internal/pipeline"
	"github.com/cityzn/cityzn-backend-go/internal/repository"
)

// ErrBuildInProgress is returned when a build is requested while one runs
var ErrBuildInProgress = errors.New("a dataset build is already running")

// DatasetService runs dataset builds and persists their output. At most one
// build runs at a time.
type DatasetService struct {
	db       *sql.DB
	layout   feeds.Layout
	opts     feeds.Options
	pipeline *pipeline.Pipeline
	runs     *repository.RunRepository
	metrics  *metrics.Metrics
	log      *zap.Logger

	mu sync.Mutex
	wg sync.WaitGroup

	// OnBuilt is called after every successful build, e.g. to drop caches
	OnBuilt func()
}

// NewDatasetService creates a dataset service over an open, migrated database
func NewDatasetService(db *sql.DB, cfg *config.Config, m *metrics.Metrics, log *zap.Logger) (*DatasetService, error) {
	loc, err := feeds.LoadLocation(cfg.Data.Timezone)
	if err != nil {
		return nil, err
	}
	log = logger.OrNop(log)
	return &DatasetService{
		db:     db,
		layout: feeds.NewLayout(cfg.Data.Dir),
		opts: feeds.Options{
			Location:          loc,
			NetworkCRS:        cfg.Pipeline.NetworkCRS,
			InfrastructureCRS: cfg.Pipeline.InfrastructureCRS,
			RainAboveMM:       cfg.Pipeline.TrainingWeather.RainAboveMM,
		},
		pipeline: pipeline.New(cfg.Pipeline, log, m),
		runs:     repository.NewRunRepository(db),
		metrics:  m,
		log:      log.Named("dataset"),
	}, nil
}

// Build runs a complete build synchronously and returns the finished run.
// A failed build is recorded with its error and leaves the previous
// dataset untouched.
func (s *DatasetService) Build(ctx context.Context) (*models.PipelineRun, error) {
	if !s.mu.TryLock() {
		return nil, ErrBuildInProgress
	}
	defer s.mu.Unlock()

	run, err := s.runs.Create(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.execute(ctx, run.ID); err != nil {
		return s.finished(run.ID), err
	}
	return s.finished(run.ID), nil
}

// Start launches a build in the background and returns the pending run.
// The build stops when ctx is cancelled.
func (s *DatasetService) Start(ctx context.Context) (*models.PipelineRun, error) {
	if !s.mu.TryLock() {
		return nil, ErrBuildInProgress
	}

	run, err := s.runs.Create(ctx)
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.mu.Unlock()
		if err := s.execute(ctx, run.ID); err != nil {
			s.log.Error("dataset build failed", zap.String("run_id", run.ID), zap.Error(err))
		}
	}()
	return run, nil
}

// Wait blocks until background builds have returned
func (s *DatasetService) Wait() {
	s.wg.Wait()
}

// Run returns one run by id
func (s *DatasetService) Run(ctx context.Context, id string) (*models.PipelineRun, error) {
	return s.runs.GetByID(ctx, id)
}

// Runs lists runs, newest first
func (s *DatasetService) Runs(ctx context.Context, limit, offset int) ([]*models.PipelineRun, error) {
	return s.runs.List(ctx, limit, offset)
}

// Summary returns the summary of the latest completed build
func (s *DatasetService) Summary(ctx context.Context) (*models.PipelineRun, error) {
	return s.runs.LatestCompleted(ctx)
}

func (s *DatasetService) execute(ctx context.Context, runID string) error {
	start := time.Now()
	log := s.log.With(zap.String("run_id", runID))

	if err := s.runs.MarkAsRunning(ctx, runID); err != nil {
		return err
	}

	res, err := s.buildAndPersist(ctx, runID, log)
	if err != nil {
		s.metrics.BuildFinished(models.RunStatusFailed, start)
		// ctx may be cancelled already, the failure must still be recorded
		if mErr := s.runs.MarkAsFailed(context.Background(), runID, err.Error()); mErr != nil {
			log.Error("failed to record build failure", zap.Error(mErr))
		}
		return err
	}
	s.metrics.BuildFinished(models.RunStatusCompleted, start)

	if err := export.WriteArtifacts(s.layout.ProcessedDir(), export.Artifacts{
		Edges:   res.Edges,
		Rows:    res.Rows,
		Summary: &res.Summary,
		Schema:  &res.Schema,
	}, log); err != nil {
		// the database is the source of truth, files are a convenience copy
		log.Error("failed to export artifacts", zap.Error(err))
	}

	if s.OnBuilt != nil {
		s.OnBuilt()
	}
	log.Info("dataset build completed",
		zap.Int("rows", len(res.Rows)),
		zap.Int("schema_version", res.Schema.Version),
		zap.Duration("took", time.Since(start)))
	return nil
}

func (s *DatasetService) buildAndPersist(ctx context.Context, runID string, log *zap.Logger) (*pipeline.Result, error) {
	bundle, err := feeds.LoadAll(s.layout, s.opts, log)
	if err != nil {
		return nil, err
	}
	res, err := s.pipeline.Build(ctx, bundle)
	if err != nil {
		return nil, err
	}

	err = database.Transaction(ctx, s.db, func(tx *sql.Tx) error {
		schemas := repository.NewSchemaRepository(tx)
		version, err := schemas.NextVersion(ctx)
		if err != nil {
			return err
		}
		res.Schema.Version = version
		res.Schema.RunID = runID

		if err := repository.NewEdgeRepository(tx).ReplaceAll(ctx, runID, res.Edges); err != nil {
			return err
		}
		if err := repository.NewDatasetRepository(tx).ReplaceAll(ctx, runID, res.Rows); err != nil {
			return err
		}
		if err := schemas.Save(ctx, &res.Schema); err != nil {
			return err
		}
		return repository.NewRunRepository(tx).MarkAsCompleted(ctx, runID, &res.Summary)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to persist dataset: %w", err)
	}
	return res, nil
}

func (s *DatasetService) finished(runID string) *models.PipelineRun {
	run, err := s.runs.GetByID(context.Background(), runID)
	if err != nil {
		s.log.Error("failed to reload run", zap.String("run_id", runID), zap.Error(err))
		return &models.PipelineRun{ID: runID}
	}
	return run
}
