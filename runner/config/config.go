package config

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// Defaults for the file layout used by CI jobs
const (
	DefaultReportPath  = "benchmark-results/benchmark_output.txt"
	DefaultResultsPath = "benchmark-results/benchmark_data.json"
	DefaultHistoryPath = "benchmark-results/history/benchmark_history.json"
	DefaultAPIAddr     = ":8080"
)

// Config represents the benchtrend configuration
type Config struct {
	ReportPath  string `yaml:"report_path"`
	ResultsPath string `yaml:"results_path"`
	HistoryPath string `yaml:"history_path"`
	LogLevel    string `yaml:"log_level"`
	LogFormat   string `yaml:"log_format"`

	CI         CIConfig         `yaml:"ci"`
	PostgreSQL PostgreSQLConfig `yaml:"postgresql"`
	Prometheus PrometheusConfig `yaml:"prometheus"`
	API        APIConfig        `yaml:"api"`
}

// CIConfig names the environment variables carrying run metadata
type CIConfig struct {
	CommitEnv    string `yaml:"commit_env"`
	RefEnv       string `yaml:"ref_env"`
	CommitLength int    `yaml:"commit_length"`
}

// APIConfig configures the read-only HTTP server
type APIConfig struct {
	Addr string `yaml:"addr"`
}

// Default returns a configuration with every default applied
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// applyDefaults fills every unset field
func (c *Config) applyDefaults() {
	if c.ReportPath == "" {
		c.ReportPath = DefaultReportPath
	}
	if c.ResultsPath == "" {
		c.ResultsPath = DefaultResultsPath
	}
	if c.HistoryPath == "" {
		c.HistoryPath = DefaultHistoryPath
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.LogFormat == "" {
		c.LogFormat = "text"
	}
	if c.CI.CommitEnv == "" {
		c.CI.CommitEnv = "GITHUB_SHA"
	}
	if c.CI.RefEnv == "" {
		c.CI.RefEnv = "GITHUB_REF"
	}
	if c.CI.CommitLength == 0 {
		c.CI.CommitLength = 8
	}
	if c.API.Addr == "" {
		c.API.Addr = DefaultAPIAddr
	}
	c.PostgreSQL.applyDefaults()
	c.Prometheus.applyDefaults()
}

// Validate checks the configuration for values the pipeline cannot use
func (c *Config) Validate() error {
	if c.ReportPath == "" {
		return fmt.Errorf("report_path is required")
	}
	if c.ResultsPath == "" {
		return fmt.Errorf("results_path is required")
	}
	if c.HistoryPath == "" {
		return fmt.Errorf("history_path is required")
	}
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("invalid log_level: %w", err)
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		return fmt.Errorf("log_format must be text or json, got %q", c.LogFormat)
	}
	if c.CI.CommitLength < 0 {
		return fmt.Errorf("ci.commit_length must not be negative")
	}

	if c.PostgreSQL.Enabled {
		if err := c.PostgreSQL.Validate(); err != nil {
			return fmt.Errorf("invalid PostgreSQL configuration: %w", err)
		}
	}
	if err := c.Prometheus.Validate(); err != nil {
		return fmt.Errorf("invalid Prometheus configuration: %w", err)
	}

	return nil
}

// NewLogger builds the root logger from the log settings
func (c *Config) NewLogger() (*logrus.Logger, error) {
	level, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("invalid log_level: %w", err)
	}

	log := logrus.New()
	log.SetLevel(level)
	if c.LogFormat == "json" {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return log, nil
}
