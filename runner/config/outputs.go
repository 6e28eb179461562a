package config

import (
	"fmt"
	"net/url"
)

// BasicAuth represents the basic authentication credentials for a server endpoint
type BasicAuth struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// PrometheusConfig configures metric export. Both outputs are optional.
type PrometheusConfig struct {
	// PushURL is the Pushgateway base URL; empty disables pushing
	PushURL   string    `yaml:"push_url"`
	Job       string    `yaml:"job"`
	BasicAuth BasicAuth `yaml:"basic_auth"`

	// TextfilePath is a node_exporter textfile collector target; empty disables it
	TextfilePath string `yaml:"textfile_path"`
}

func (c *PrometheusConfig) applyDefaults() {
	if c.Job == "" {
		c.Job = "benchtrend"
	}
}

// Enabled reports whether any export output is configured
func (c *PrometheusConfig) Enabled() bool {
	return c.PushURL != "" || c.TextfilePath != ""
}

// Validate validates the Prometheus configuration
func (c *PrometheusConfig) Validate() error {
	if c.PushURL == "" {
		return nil
	}
	u, err := url.Parse(c.PushURL)
	if err != nil {
		return fmt.Errorf("invalid push_url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("push_url must be an http(s) URL, got %q", c.PushURL)
	}
	if c.Job == "" {
		return fmt.Errorf("job is required when push_url is set")
	}
	return nil
}
