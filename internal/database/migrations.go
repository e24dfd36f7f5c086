package database

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"embed"
	"encoding/hex"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// Migration is one versioned schema change, read from NNN_name.sql
type Migration struct {
	Version  int
	Name     string
	SQL      string
	Checksum string
}

// MigrationManager applies the pending migrations of a database
type MigrationManager struct {
	db    *sql.DB
	files fs.FS
	log   *zap.Logger
}

// NewMigrationManager creates a migration manager over the embedded migrations
func NewMigrationManager(db *sql.DB, log *zap.Logger) *MigrationManager {
	sub, err := fs.Sub(migrationFiles, "migrations")
	if err != nil {
		// the embed pattern guarantees the directory
		panic(err)
	}
	return NewMigrationManagerFS(db, sub, log)
}

// NewMigrationManagerFS creates a migration manager reading *.sql files from files
func NewMigrationManagerFS(db *sql.DB, files fs.FS, log *zap.Logger) *MigrationManager {
	if log == nil {
		log = zap.NewNop()
	}
	return &MigrationManager{db: db, files: files, log: log.Named("migrations")}
}

const createMigrationsTable = `
	CREATE TABLE IF NOT EXISTS migrations (
		version INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		checksum TEXT NOT NULL,
		applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)
`

// applied maps the recorded versions to their checksum
func (m *MigrationManager) applied(ctx context.Context) (map[int]string, error) {
	if _, err := m.db.ExecContext(ctx, createMigrationsTable); err != nil {
		return nil, fmt.Errorf("failed to create migrations table: %w", err)
	}

	rows, err := m.db.QueryContext(ctx, "SELECT version, checksum FROM migrations")
	if err != nil {
		return nil, fmt.Errorf("failed to query migrations: %w", err)
	}
	defer rows.Close()

	out := make(map[int]string)
	for rows.Next() {
		var (
			version  int
			checksum string
		)
		if err := rows.Scan(&version, &checksum); err != nil {
			return nil, fmt.Errorf("failed to scan migration: %w", err)
		}
		out[version] = checksum
	}
	return out, rows.Err()
}

// LoadMigrations reads the migration files sorted by version. Files whose
// name does not start with a numeric version are skipped.
func (m *MigrationManager) LoadMigrations() ([]Migration, error) {
	entries, err := fs.ReadDir(m.files, ".")
	if err != nil {
		return nil, fmt.Errorf("failed to read migrations: %w", err)
	}

	var migrations []Migration
	for _, entry := range entries {
		file := entry.Name()
		if entry.IsDir() || path.Ext(file) != ".sql" {
			continue
		}

		prefix, _, found := strings.Cut(file, "_")
		version, err := strconv.Atoi(prefix)
		if !found || err != nil {
			m.log.Warn("skipping migration file with invalid name", zap.String("file", file))
			continue
		}

		content, err := fs.ReadFile(m.files, file)
		if err != nil {
			return nil, fmt.Errorf("failed to read migration %s: %w", file, err)
		}
		sum := sha256.Sum256(content)

		migrations = append(migrations, Migration{
			Version:  version,
			Name:     strings.TrimSuffix(file, ".sql"),
			SQL:      string(content),
			Checksum: hex.EncodeToString(sum[:]),
		})
	}

	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].Version < migrations[j].Version
	})
	for i := 1; i < len(migrations); i++ {
		if migrations[i].Version == migrations[i-1].Version {
			return nil, fmt.Errorf("duplicate migration version %d", migrations[i].Version)
		}
	}
	return migrations, nil
}

// Pending lists the migrations not applied yet. An applied migration whose
// file changed since is an error.
func (m *MigrationManager) Pending(ctx context.Context) ([]Migration, error) {
	applied, err := m.applied(ctx)
	if err != nil {
		return nil, err
	}
	migrations, err := m.LoadMigrations()
	if err != nil {
		return nil, err
	}

	var pending []Migration
	for _, mig := range migrations {
		sum, ok := applied[mig.Version]
		if !ok {
			pending = append(pending, mig)
			continue
		}
		if sum != mig.Checksum {
			return nil, fmt.Errorf("migration %s was modified after being applied", mig.Name)
		}
	}
	return pending, nil
}

// RunMigrations applies every pending migration, each in its own transaction
func (m *MigrationManager) RunMigrations(ctx context.Context) error {
	pending, err := m.Pending(ctx)
	if err != nil {
		return err
	}

	for _, mig := range pending {
		err := Transaction(ctx, m.db, func(tx *sql.Tx) error {
			if _, err := tx.ExecContext(ctx, mig.SQL); err != nil {
				return fmt.Errorf("failed to execute migration %d: %w", mig.Version, err)
			}
			_, err := tx.ExecContext(ctx,
				"INSERT INTO migrations (version, name, checksum) VALUES (?, ?, ?)",
				mig.Version, mig.Name, mig.Checksum)
			if err != nil {
				return fmt.Errorf("failed to record migration %d: %w", mig.Version, err)
			}
			return nil
		})
		if err != nil {
			return err
		}
		m.log.Info("applied migration", zap.Int("version", mig.Version), zap.String("name", mig.Name))
	}
	return nil
}
