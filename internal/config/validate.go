package config

import (
	"errors"
	"fmt"
	"strings"
)

func Validate(cfg Config) error {
	var errs []string

	if cfg.App.Port <= 0 || cfg.App.Port > 65535 {
		errs = append(errs, "app.port must be 1..65535")
	}
	if strings.TrimSpace(cfg.Search.Make) == "" {
		errs = append(errs, "search.make is required")
	}
	if strings.TrimSpace(cfg.Search.Model) == "" {
		errs = append(errs, "search.model is required")
	}
	if !cfg.Sources.IAAI.Enabled && !cfg.Sources.Copart.Enabled {
		errs = append(errs, "no sources enabled: enable sources.iaai or sources.copart")
	}
	if cfg.HTTP.TimeoutSeconds <= 0 {
		errs = append(errs, "http.timeout_seconds must be > 0")
	}
	if cfg.HTTP.SourceTimeoutSeconds < cfg.HTTP.TimeoutSeconds {
		errs = append(errs, "http.source_timeout_seconds must cover at least one request timeout")
	}
	if cfg.HTTP.RatePerSec <= 0 {
		errs = append(errs, "http.rate_per_sec must be > 0")
	}
	if cfg.Polling.Enabled && cfg.Polling.IntervalMinutes < 5 {
		errs = append(errs, fmt.Sprintf("polling.interval_minutes is %d; below 5 the sources will start blocking us", cfg.Polling.IntervalMinutes))
	}

	if len(errs) > 0 {
		return errors.New("config validation failed:\n- " + strings.Join(errs, "\n- "))
	}
	return nil
}
