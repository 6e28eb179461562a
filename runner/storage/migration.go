package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/benchtrend/runner/config"
)

// Migration represents a database migration
type Migration struct {
	Version int
	Name    string
	SQL     string
	// Optional migrations are skipped when their extension is missing
	Optional bool
}

// migrationHypertable needs TimescaleDB
const migrationHypertable = 4

// Migrations returns the ordered migrations for the configured tables
func Migrations(cfg *config.PostgreSQLConfig) []Migration {
	return []Migration{
		{Version: 1, Name: "create_runs", SQL: runsTableSQL(cfg.RunsTable)},
		{Version: 2, Name: "create_metrics", SQL: metricsTableSQL(cfg.MetricsTable)},
		{Version: 3, Name: "create_indices", SQL: indicesSQL(cfg.RunsTable, cfg.MetricsTable)},
		{Version: migrationHypertable, Name: "metrics_hypertable", SQL: hypertableSQL(cfg.MetricsTable), Optional: true},
	}
}

// RunMigrations applies every migration not yet recorded in schema_migrations
func RunMigrations(ctx context.Context, db *sql.DB, cfg *config.PostgreSQLConfig, log logrus.FieldLogger) error {
	log = log.WithField("component", "migration")

	if err := createMigrationTable(ctx, db); err != nil {
		return fmt.Errorf("failed to create migration table: %w", err)
	}

	for _, migration := range Migrations(cfg) {
		applied, err := isMigrationApplied(ctx, db, migration.Version)
		if err != nil {
			return fmt.Errorf("failed to check migration %d: %w", migration.Version, err)
		}

		if applied {
			log.WithField("version", migration.Version).Debug("Migration already applied")
			continue
		}

		log.WithFields(logrus.Fields{
			"version": migration.Version,
			"name":    migration.Name,
		}).Info("Applying migration")
		if err := applyMigration(ctx, db, migration, log); err != nil {
			return fmt.Errorf("failed to apply migration %d: %w", migration.Version, err)
		}
	}

	return nil
}

// AppliedVersions lists recorded migration versions in ascending order
func AppliedVersions(ctx context.Context, db *sql.DB) ([]int, error) {
	rows, err := db.QueryContext(ctx, `SELECT version FROM schema_migrations ORDER BY version`)
	if err != nil {
		return nil, fmt.Errorf("failed to query migrations: %w", err)
	}
	defer rows.Close()

	var versions []int
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("failed to scan migration version: %w", err)
		}
		versions = append(versions, v)
	}
	return versions, rows.Err()
}

func createMigrationTable(ctx context.Context, db *sql.DB) error {
	query := `
	CREATE TABLE IF NOT EXISTS schema_migrations (
		version INTEGER PRIMARY KEY,
		applied_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP
	)`

	_, err := db.ExecContext(ctx, query)
	return err
}

func isMigrationApplied(ctx context.Context, db *sql.DB, version int) (bool, error) {
	var count int
	query := `SELECT COUNT(*) FROM schema_migrations WHERE version = $1`
	if err := db.QueryRowContext(ctx, query, version).Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}

func applyMigration(ctx context.Context, db *sql.DB, migration Migration, log logrus.FieldLogger) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if migration.Optional {
		var available bool
		err := tx.QueryRowContext(ctx,
			"SELECT EXISTS(SELECT 1 FROM pg_extension WHERE extname = 'timescaledb')").Scan(&available)
		switch {
		case err != nil:
			log.WithError(err).Warn("Could not check for TimescaleDB extension, skipping hypertable creation")
		case !available:
			log.Info("TimescaleDB not available, skipping hypertable creation")
		default:
			if _, err := tx.ExecContext(ctx, migration.SQL); err != nil {
				return fmt.Errorf("failed to create hypertable: %w", err)
			}
		}
	} else if _, err := tx.ExecContext(ctx, migration.SQL); err != nil {
		return fmt.Errorf("failed to execute migration SQL: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `INSERT INTO schema_migrations (version) VALUES ($1)`, migration.Version); err != nil {
		return fmt.Errorf("failed to record migration: %w", err)
	}

	return tx.Commit()
}
