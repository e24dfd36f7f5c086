package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/cityzn/cityzn-backend-go/internal/models"
)

// DatasetRepository handles the training_rows table
type DatasetRepository struct {
	db DBTX
}

// NewDatasetRepository creates a new dataset repository
func NewDatasetRepository(db DBTX) *DatasetRepository {
	return &DatasetRepository{db: db}
}

var trainingInsert = `INSERT INTO training_rows (run_id, ` + strings.Join(models.TrainingColumns, ", ") +
	`) VALUES (?` + strings.Repeat(", ?", len(models.TrainingColumns)) + `)`

// ReplaceAll swaps the training table for the rows of runID
func (r *DatasetRepository) ReplaceAll(ctx context.Context, runID string, rows []models.TrainingRow) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM training_rows`); err != nil {
		return fmt.Errorf("failed to clear training_rows: %w", err)
	}

	stmt, err := r.db.PrepareContext(ctx, trainingInsert)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for i := range rows {
		row := &rows[i]
		_, err := stmt.ExecContext(ctx,
			runID, row.EdgeID, formatTimestamp(row.Timestamp),
			row.Hour, row.DayOfWeek, row.IsWeekend, row.IsRushHourMorning, row.IsRushHourEvening,
			row.TemperatureC, row.PrecipitationMM, row.WindSpeedKmh,
			row.IsRaining, row.IsCold, row.IsHot, row.IsWindy,
			row.HighwayType, row.RoadCategory, row.Lanes, row.MaxSpeedKmh, row.HasCycleway,
			row.HasDedicatedBikeLane, row.BikeLaneDistanceM, row.SurfaceQuality, row.IsLit,
			row.EdgeLengthM, row.DistanceToCenterKm, string(row.Orientation),
			row.BikeCount,
			row.BikeCountLag1h, row.BikeCountLag24h, row.BikeCountRolling7d,
		)
		if err != nil {
			return fmt.Errorf("failed to insert row (edge %d, %s): %w", row.EdgeID, formatTimestamp(row.Timestamp), err)
		}
	}
	return nil
}

// Count returns the number of rows and how many carry a target
func (r *DatasetRepository) Count(ctx context.Context) (total, withTarget int, err error) {
	err = r.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COUNT(bike_count) FROM training_rows`).Scan(&total, &withTarget)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to count training rows: %w", err)
	}
	return total, withTarget, nil
}

// ListByEdge returns the rows of one edge in timestamp order
func (r *DatasetRepository) ListByEdge(ctx context.Context, edgeID int64, limit int) ([]models.TrainingRow, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+strings.Join(models.TrainingColumns, ", ")+`
		FROM training_rows
		WHERE edge_id = ?
		ORDER BY timestamp
		LIMIT ?`, edgeID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list training rows: %w", err)
	}
	defer rows.Close()

	var out []models.TrainingRow
	for rows.Next() {
		var (
			row         models.TrainingRow
			ts          string
			orientation string
		)
		err := rows.Scan(
			&row.EdgeID, &ts,
			&row.Hour, &row.DayOfWeek, &row.IsWeekend, &row.IsRushHourMorning, &row.IsRushHourEvening,
			&row.TemperatureC, &row.PrecipitationMM, &row.WindSpeedKmh,
			&row.IsRaining, &row.IsCold, &row.IsHot, &row.IsWindy,
			&row.HighwayType, &row.RoadCategory, &row.Lanes, &row.MaxSpeedKmh, &row.HasCycleway,
			&row.HasDedicatedBikeLane, &row.BikeLaneDistanceM, &row.SurfaceQuality, &row.IsLit,
			&row.EdgeLengthM, &row.DistanceToCenterKm, &orientation,
			&row.BikeCount,
			&row.BikeCountLag1h, &row.BikeCountLag24h, &row.BikeCountRolling7d,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan training row: %w", err)
		}
		if row.Timestamp, err = parseTimestamp(ts); err != nil {
			return nil, fmt.Errorf("failed to parse timestamp %q: %w", ts, err)
		}
		row.Orientation = models.Orientation(orientation)
		out = append(out, row)
	}
	return out, rows.Err()
}
