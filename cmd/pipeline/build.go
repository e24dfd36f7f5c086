package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cityzn/cityzn-backend-go/internal/database"
	"github.com/cityzn/cityzn-backend-go/internal/export"
	"github.com/cityzn/cityzn-backend-go/internal/feeds"
	"github.com/cityzn/cityzn-backend-go/internal/service"
)

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Build the training dataset from the raw feeds",
	Long: `Read the raw feeds under the data directory and rebuild the dataset.

This command:
  1. Matches every counting sensor to its nearest road edge (50 m)
  2. Annotates edges with the cycling facility layer (20 m buffer)
  3. Computes static edge features and the category schema
  4. Aligns counts and weather on the hourly grid
  5. Derives the lag and rolling features

The result replaces the stored dataset only when every stage succeeds,
and is exported to the processed directory.`,
	RunE: runBuild,
}

func init() {
	rootCmd.AddCommand(buildCmd)
}

func runBuild(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.OpenAndMigrate(database.Config{Path: cfg.Database.Path}, log)
	if err != nil {
		return err
	}
	defer db.Close()

	datasets, err := service.NewDatasetService(db, cfg, nil, log)
	if err != nil {
		return err
	}

	start := time.Now()
	run, err := datasets.Build(ctx)
	if err != nil {
		if run != nil {
			log.Error("build failed", zap.String("run_id", run.ID))
		}
		return err
	}

	fields := []zap.Field{
		zap.String("run_id", run.ID),
		zap.Duration("duration", time.Since(start).Round(time.Millisecond)),
		zap.String("output", feeds.NewLayout(cfg.Data.Dir).ProcessedDir()),
		zap.String("dataset", export.DatasetCSVFile),
	}
	if s := run.Summary; s != nil {
		fields = append(fields,
			zap.Int("edges", s.Edges.Total),
			zap.Int("sensors_matched", s.Sensors.Matched),
			zap.Int("timestamps", s.Counts.DistinctTimestamp),
			zap.Int("rows", s.Rows.Total),
			zap.Int("rows_with_target", s.Rows.WithTarget),
			zap.Int("rows_missing_weather", s.Weather.RowsMissing),
		)
	}
	log.Info("Build complete", fields...)
	return nil
}
