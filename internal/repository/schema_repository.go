package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cityzn/cityzn-backend-go/internal/models"
)

// SchemaRepository stores the versioned category schemas
type SchemaRepository struct {
	db DBTX
}

// NewSchemaRepository creates a new schema repository
func NewSchemaRepository(db DBTX) *SchemaRepository {
	return &SchemaRepository{db: db}
}

// NextVersion returns the version the next saved schema should carry
func (r *SchemaRepository) NextVersion(ctx context.Context) (int, error) {
	var v int
	if err := r.db.QueryRowContext(ctx, `SELECT COALESCE(MAX(version), 0) + 1 FROM category_schemas`).Scan(&v); err != nil {
		return 0, fmt.Errorf("failed to get next schema version: %w", err)
	}
	return v, nil
}

// Save inserts a schema under its version
func (r *SchemaRepository) Save(ctx context.Context, s *models.CategorySchema) error {
	cols, err := json.Marshal(s.FeatureColumns)
	if err != nil {
		return fmt.Errorf("failed to encode feature columns: %w", err)
	}
	cats, err := json.Marshal(s.Categories)
	if err != nil {
		return fmt.Errorf("failed to encode categories: %w", err)
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO category_schemas (version, run_id, feature_columns, categories, created_at) VALUES (?, ?, ?, ?, ?)`,
		s.Version, s.RunID, string(cols), string(cats), s.CreatedAt.Unix())
	if err != nil {
		return fmt.Errorf("failed to save schema v%d: %w", s.Version, err)
	}
	return nil
}

// Latest returns the schema with the highest version
func (r *SchemaRepository) Latest(ctx context.Context) (*models.CategorySchema, error) {
	return r.get(ctx, `SELECT version, run_id, feature_columns, categories, created_at
		FROM category_schemas ORDER BY version DESC LIMIT 1`)
}

// GetByVersion returns one schema version
func (r *SchemaRepository) GetByVersion(ctx context.Context, version int) (*models.CategorySchema, error) {
	return r.get(ctx, `SELECT version, run_id, feature_columns, categories, created_at
		FROM category_schemas WHERE version = ?`, version)
}

func (r *SchemaRepository) get(ctx context.Context, query string, args ...any) (*models.CategorySchema, error) {
	var (
		s          models.CategorySchema
		cols, cats string
		createdAt  int64
	)
	err := r.db.QueryRowContext(ctx, query, args...).Scan(&s.Version, &s.RunID, &cols, &cats, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("category schema: %w", ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get schema: %w", err)
	}
	if err := json.Unmarshal([]byte(cols), &s.FeatureColumns); err != nil {
		return nil, fmt.Errorf("failed to decode feature columns: %w", err)
	}
	if err := json.Unmarshal([]byte(cats), &s.Categories); err != nil {
		return nil, fmt.Errorf("failed to decode categories: %w", err)
	}
	s.CreatedAt = time.Unix(createdAt, 0).UTC()
	return &s, nil
}
