package storage

import "fmt"

// Grafana-friendly table layouts. Table names come from configuration and
// are validated as plain identifiers before they reach these templates.
const runsTableTemplate = `
CREATE TABLE IF NOT EXISTS %s (
    id VARCHAR(64) PRIMARY KEY,
    timestamp TIMESTAMPTZ NOT NULL,
    git_commit VARCHAR(64) NOT NULL,
    git_ref VARCHAR(255) NOT NULL,
    benchmark_count INTEGER NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
);`

const metricsTableTemplate = `
CREATE TABLE IF NOT EXISTS %s (
    time TIMESTAMPTZ NOT NULL,
    run_id VARCHAR(64) NOT NULL,
    benchmark VARCHAR(512) NOT NULL,
    metric_name VARCHAR(64) NOT NULL,
    value DOUBLE PRECISION NOT NULL,
    tags JSONB,
    PRIMARY KEY (time, run_id, benchmark, metric_name)
);`

const indicesTemplate = `
CREATE INDEX IF NOT EXISTS idx_%[1]s_timestamp ON %[1]s(timestamp DESC);
CREATE INDEX IF NOT EXISTS idx_%[1]s_git_ref ON %[1]s(git_ref);
CREATE INDEX IF NOT EXISTS idx_%[2]s_time ON %[2]s(time DESC);
CREATE INDEX IF NOT EXISTS idx_%[2]s_benchmark ON %[2]s(benchmark, metric_name);
CREATE INDEX IF NOT EXISTS idx_%[2]s_run_id ON %[2]s(run_id);
`

// hypertableTemplate only applies when TimescaleDB is installed
const hypertableTemplate = `SELECT create_hypertable('%s', 'time', if_not_exists => TRUE);`

func runsTableSQL(table string) string {
	return fmt.Sprintf(runsTableTemplate, table)
}

func metricsTableSQL(table string) string {
	return fmt.Sprintf(metricsTableTemplate, table)
}

func indicesSQL(runsTable, metricsTable string) string {
	return fmt.Sprintf(indicesTemplate, runsTable, metricsTable)
}

func hypertableSQL(metricsTable string) string {
	return fmt.Sprintf(hypertableTemplate, metricsTable)
}
