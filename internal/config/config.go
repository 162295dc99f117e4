package config

import (
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

type Config struct {
	App struct {
		Port    int    `yaml:"port"`
		DataDir string `yaml:"data_dir"`
		// ReadOnly disables the ingestion trigger; the API keeps serving
		// the catalog (serverless deploys can't run the scraper in-place).
		ReadOnly bool `yaml:"read_only"`
	} `yaml:"app"`

	Search SearchSpec `yaml:"search"`

	Sources struct {
		IAAI struct {
			Enabled bool   `yaml:"enabled"`
			BaseURL string `yaml:"base_url"`
		} `yaml:"iaai"`
		Copart struct {
			Enabled bool   `yaml:"enabled"`
			BaseURL string `yaml:"base_url"`
		} `yaml:"copart"`
	} `yaml:"sources"`

	Polling struct {
		Enabled         bool `yaml:"enabled"`
		IntervalMinutes int  `yaml:"interval_minutes"`
	} `yaml:"polling"`

	HTTP struct {
		TimeoutSeconds       int     `yaml:"timeout_seconds"`        // per request
		SourceTimeoutSeconds int     `yaml:"source_timeout_seconds"` // whole adapter run
		RatePerSec           float64 `yaml:"rate_per_sec"`
		Burst                int     `yaml:"burst"`
	} `yaml:"http"`
}

func Load(path string) (Config, error) {
	var cfg Config
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, err
	}
	cfg.applyDefaults()
	cfg.applyEnv()
	return cfg, nil
}

type SearchSpec struct {
	Make  string `yaml:"make"`
	Model string `yaml:"model"`
}

// Query is the free-text search string sent to both sources.
func (s SearchSpec) Query() string {
	return strings.TrimSpace(s.Make + " " + s.Model)
}

func (c *Config) applyDefaults() {
	if c.App.Port == 0 {
		c.App.Port = 8080
	}
	if c.App.DataDir == "" {
		c.App.DataDir = "data"
	}
	if c.HTTP.TimeoutSeconds == 0 {
		c.HTTP.TimeoutSeconds = 30
	}
	if c.HTTP.SourceTimeoutSeconds == 0 {
		c.HTTP.SourceTimeoutSeconds = 300
	}
	if c.HTTP.RatePerSec == 0 {
		c.HTTP.RatePerSec = 1.0
	}
	if c.HTTP.Burst == 0 {
		c.HTTP.Burst = 2
	}
	if c.Polling.IntervalMinutes == 0 {
		c.Polling.IntervalMinutes = 60
	}
}

// applyEnv lets deployment env vars win over the yaml file for the few
// settings that differ per host.
func (c *Config) applyEnv() {
	if v := os.Getenv("LOTWATCH_DATA_DIR"); v != "" {
		c.App.DataDir = v
	}
	if v := os.Getenv("LOTWATCH_READ_ONLY"); v == "1" || strings.EqualFold(v, "true") {
		c.App.ReadOnly = true
	}
}
