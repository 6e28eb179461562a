package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

// ConfigTestSuite covers loading, defaults and validation
type ConfigTestSuite struct {
	suite.Suite
	logger logrus.FieldLogger
	dir    string
}

func (s *ConfigTestSuite) SetupTest() {
	s.logger = logrus.New().WithField("test", "config")
	s.dir = s.T().TempDir()
}

func (s *ConfigTestSuite) writeConfig(content string) string {
	path := filepath.Join(s.dir, "benchtrend.yaml")
	require.NoError(s.T(), os.WriteFile(path, []byte(content), 0644))
	return path
}

func (s *ConfigTestSuite) TestDefaults() {
	t := s.T()
	cfg := Default()

	assert.Equal(t, "benchmark-results/benchmark_output.txt", cfg.ReportPath)
	assert.Equal(t, "benchmark-results/benchmark_data.json", cfg.ResultsPath)
	assert.Equal(t, "benchmark-results/history/benchmark_history.json", cfg.HistoryPath)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, "GITHUB_SHA", cfg.CI.CommitEnv)
	assert.Equal(t, "GITHUB_REF", cfg.CI.RefEnv)
	assert.Equal(t, 8, cfg.CI.CommitLength)
	assert.Equal(t, ":8080", cfg.API.Addr)

	assert.False(t, cfg.PostgreSQL.Enabled)
	assert.Equal(t, 10, cfg.PostgreSQL.MaxOpenConns)
	assert.Equal(t, 5, cfg.PostgreSQL.MaxIdleConns)
	assert.Equal(t, "benchmark_runs", cfg.PostgreSQL.RunsTable)
	assert.Equal(t, "benchmark_metrics", cfg.PostgreSQL.MetricsTable)

	assert.Equal(t, "benchtrend", cfg.Prometheus.Job)
	assert.False(t, cfg.Prometheus.Enabled())

	assert.NoError(t, cfg.Validate())
}

func (s *ConfigTestSuite) TestEmptyPathUsesDefaults() {
	cfg, err := LoadFromFile("", s.logger)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), Default(), cfg)
}

func (s *ConfigTestSuite) TestMissingFileUsesDefaults() {
	cfg, err := LoadFromFile(filepath.Join(s.dir, "absent.yaml"), s.logger)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), Default(), cfg)
}

func (s *ConfigTestSuite) TestLoadPartialFile() {
	t := s.T()
	t.Setenv("BT_PG_PASSWORD", "hunter2")

	path := s.writeConfig(`
history_path: /var/lib/benchtrend/history.json
log_level: debug
log_format: json
ci:
  commit_length: 12
postgresql:
  enabled: true
  host: pg.internal
  password: ${BT_PG_PASSWORD}
prometheus:
  push_url: ${BT_PUSH_URL:-http://pushgateway:9091}
`)

	cfg, err := LoadFromFile(path, s.logger)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "/var/lib/benchtrend/history.json", cfg.HistoryPath)
	assert.Equal(t, DefaultReportPath, cfg.ReportPath)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 12, cfg.CI.CommitLength)
	assert.Equal(t, "GITHUB_SHA", cfg.CI.CommitEnv)

	assert.True(t, cfg.PostgreSQL.Enabled)
	assert.Equal(t, "pg.internal", cfg.PostgreSQL.Host)
	assert.Equal(t, 5432, cfg.PostgreSQL.Port)
	assert.Equal(t, "hunter2", cfg.PostgreSQL.Password)
	assert.Equal(t,
		"host=pg.internal port=5432 user=postgres password=hunter2 dbname=benchtrend sslmode=disable",
		cfg.PostgreSQL.ConnectionString())

	assert.Equal(t, "http://pushgateway:9091", cfg.Prometheus.PushURL)
	assert.True(t, cfg.Prometheus.Enabled())
}

func (s *ConfigTestSuite) TestMissingRequiredVariable() {
	path := s.writeConfig("postgresql:\n  password: ${BT_REQUIRED_PASSWORD:?database password is required}\n")

	_, err := LoadFromFile(path, s.logger)
	require.Error(s.T(), err)
	assert.Contains(s.T(), err.Error(), "database password is required")
	assert.Contains(s.T(), err.Error(), path)
}

func (s *ConfigTestSuite) TestInvalidYAML() {
	path := s.writeConfig("report_path: [unterminated\n")

	_, err := LoadFromFile(path, s.logger)
	assert.Error(s.T(), err)
}

func (s *ConfigTestSuite) TestValidate() {
	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{"empty history path", func(c *Config) { c.HistoryPath = "" }, "history_path"},
		{"bad log level", func(c *Config) { c.LogLevel = "loud" }, "log_level"},
		{"bad log format", func(c *Config) { c.LogFormat = "xml" }, "log_format"},
		{"negative commit length", func(c *Config) { c.CI.CommitLength = -1 }, "commit_length"},
		{"postgres without host", func(c *Config) {
			c.PostgreSQL.Enabled = true
			c.PostgreSQL.Host = ""
		}, "host is required"},
		{"postgres bad port", func(c *Config) {
			c.PostgreSQL.Enabled = true
			c.PostgreSQL.Port = 70000
		}, "port"},
		{"postgres unsafe table", func(c *Config) {
			c.PostgreSQL.Enabled = true
			c.PostgreSQL.RunsTable = "runs; DROP TABLE x"
		}, "runs_table"},
		{"push url without scheme", func(c *Config) { c.Prometheus.PushURL = "pushgateway:9091" }, "push_url"},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(s.T(), err)
			assert.Contains(s.T(), err.Error(), tt.errMsg)
		})
	}
}

func (s *ConfigTestSuite) TestDisabledPostgresIsNotValidated() {
	cfg := Default()
	cfg.PostgreSQL.Host = ""
	assert.NoError(s.T(), cfg.Validate())
}

func (s *ConfigTestSuite) TestNewLogger() {
	cfg := Default()
	cfg.LogLevel = "warn"
	cfg.LogFormat = "json"

	log, err := cfg.NewLogger()
	require.NoError(s.T(), err)
	assert.Equal(s.T(), logrus.WarnLevel, log.GetLevel())
	assert.IsType(s.T(), &logrus.JSONFormatter{}, log.Formatter)
}

func TestConfigTestSuite(t *testing.T) {
	suite.Run(t, new(ConfigTestSuite))
}
