package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"

	"github.com/benchtrend/runner/config"
	"github.com/benchtrend/runner/types"
)

// Mirror receives a copy of every persisted run. The JSON history stays
// the source of truth; mirror failures never fail the pipeline.
type Mirror interface {
	Start(ctx context.Context) error
	SaveRun(ctx context.Context, runID string, run *types.HistoryRun) error
	Close() error
}

const pingTimeout = 10 * time.Second

// PostgresMirror writes runs into Grafana-queryable PostgreSQL tables
type PostgresMirror struct {
	db  *sql.DB
	cfg *config.PostgreSQLConfig
	log logrus.FieldLogger
}

// NewPostgresMirror creates a mirror; Start connects it
func NewPostgresMirror(cfg *config.PostgreSQLConfig, log logrus.FieldLogger) *PostgresMirror {
	return &PostgresMirror{
		cfg: cfg,
		log: log.WithField("component", "postgres"),
	}
}

// Start connects, verifies the connection and applies migrations
func (m *PostgresMirror) Start(ctx context.Context) error {
	db, err := sql.Open("postgres", m.cfg.ConnectionString())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(m.cfg.MaxOpenConns)
	db.SetMaxIdleConns(m.cfg.MaxIdleConns)

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}

	if err := RunMigrations(ctx, db, m.cfg, m.log); err != nil {
		db.Close()
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	m.db = db
	m.log.WithFields(logrus.Fields{
		"host":     m.cfg.Host,
		"database": m.cfg.Database,
	}).Info("Connected to PostgreSQL database")
	return nil
}

// SaveRun inserts the run row and one metric row per benchmark measurement
// in a single transaction. Saving the same run id twice is a no-op.
func (m *PostgresMirror) SaveRun(ctx context.Context, runID string, run *types.HistoryRun) error {
	if m.db == nil {
		return errors.New("postgres mirror not started")
	}

	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	runQuery := fmt.Sprintf(`
		INSERT INTO %s (id, timestamp, git_commit, git_ref, benchmark_count)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO NOTHING`, m.cfg.RunsTable)

	res, err := tx.ExecContext(ctx, runQuery, runID, run.Timestamp, run.Commit, run.Ref, len(run.Results))
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		m.log.WithField("run_id", runID).Debug("Run already mirrored")
		return nil
	}

	metricQuery := fmt.Sprintf(`
		INSERT INTO %s (time, run_id, benchmark, metric_name, value, tags)
		VALUES ($1, $2, $3, $4, $5, $6)`, m.cfg.MetricsTable)

	stmt, err := tx.PrepareContext(ctx, metricQuery)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	metrics := types.FlattenRun(runID, run)
	for _, metric := range metrics {
		tagsJSON, err := json.Marshal(metric.Tags)
		if err != nil {
			return fmt.Errorf("failed to marshal tags: %w", err)
		}
		if _, err := stmt.ExecContext(ctx,
			metric.Time, metric.RunID, metric.Benchmark, metric.MetricName, metric.Value, tagsJSON,
		); err != nil {
			return fmt.Errorf("failed to insert metric: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit run: %w", err)
	}

	m.log.WithFields(logrus.Fields{
		"run_id":  runID,
		"metrics": len(metrics),
	}).Info("Mirrored run to PostgreSQL")
	return nil
}

// QueryMetrics returns the mirrored values of one benchmark metric, newest
// first. limit <= 0 means no limit.
func (m *PostgresMirror) QueryMetrics(ctx context.Context, benchmark, metricName string, limit int) ([]types.TimeSeriesMetric, error) {
	if m.db == nil {
		return nil, errors.New("postgres mirror not started")
	}

	query := fmt.Sprintf(`SELECT time, run_id, benchmark, metric_name, value, tags
		FROM %s WHERE benchmark = $1 AND metric_name = $2 ORDER BY time DESC`, m.cfg.MetricsTable)
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := m.db.QueryContext(ctx, query, benchmark, metricName)
	if err != nil {
		return nil, fmt.Errorf("failed to query metrics: %w", err)
	}
	defer rows.Close()

	var metrics []types.TimeSeriesMetric
	for rows.Next() {
		var metric types.TimeSeriesMetric
		var tagsJSON []byte

		if err := rows.Scan(
			&metric.Time, &metric.RunID, &metric.Benchmark,
			&metric.MetricName, &metric.Value, &tagsJSON,
		); err != nil {
			return nil, fmt.Errorf("failed to scan metric: %w", err)
		}
		if tagsJSON != nil {
			if err := json.Unmarshal(tagsJSON, &metric.Tags); err != nil {
				return nil, fmt.Errorf("failed to decode tags: %w", err)
			}
		}
		metrics = append(metrics, metric)
	}

	return metrics, rows.Err()
}

// Close releases the connection pool
func (m *PostgresMirror) Close() error {
	if m.db == nil {
		return nil
	}
	err := m.db.Close()
	m.db = nil
	return err
}
