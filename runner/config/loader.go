package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// LoadFromFile loads the configuration at path. An empty path or a missing
// file yields the defaults. Environment references are substituted before
// the YAML is decoded.
func LoadFromFile(path string, log logrus.FieldLogger) (*Config, error) {
	log = log.WithField("component", "config")

	if path == "" {
		log.Debug("No config path provided, using defaults")
		return Default(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			log.WithField("path", path).Info("Config file not found, using defaults")
			return Default(), nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to load config %s: %w", path, err)
	}

	log.WithFields(logrus.Fields{
		"path":         path,
		"report_path":  cfg.ReportPath,
		"history_path": cfg.HistoryPath,
		"postgresql":   cfg.PostgreSQL.Enabled,
		"prometheus":   cfg.Prometheus.Enabled(),
	}).Debug("Loaded configuration")

	return cfg, nil
}

// Parse decodes YAML configuration content and applies defaults.
// The result is not validated.
func Parse(data []byte) (*Config, error) {
	substituted, err := SubstituteEnvVars(string(data))
	if err != nil {
		return nil, fmt.Errorf("failed to substitute environment variables: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal([]byte(substituted), &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.applyDefaults()
	return &cfg, nil
}
