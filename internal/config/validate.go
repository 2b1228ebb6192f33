package config

import (
	"fmt"
	"net/url"
	"time"
)

// Poll intervals accepted for screens.
const (
	MinPollInterval = 3 * time.Second
	MaxPollInterval = 30 * time.Second
)

// Validate checks the configuration for invalid values.
func Validate(cfg *Config) error {
	if cfg.Fetcher.RequestTimeout <= 0 {
		return fmt.Errorf("fetcher.request_timeout must be > 0")
	}
	if cfg.Fetcher.MaxBodySize <= 0 {
		return fmt.Errorf("fetcher.max_body_size must be > 0")
	}

	for key, raw := range map[string]string{
		"sources.api_base_url":    cfg.Sources.APIBaseURL,
		"sources.data_base_url":   cfg.Sources.DataBaseURL,
		"sources.status_base_url": cfg.Sources.StatusBaseURL,
	} {
		if err := ValidateURL(raw); err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
	}

	for name, b := range cfg.Thresholds {
		if b.MinFlow > b.MaxFlow {
			return fmt.Errorf("thresholds.%s: min_flow %.2f > max_flow %.2f", name, b.MinFlow, b.MaxFlow)
		}
		if b.MinPressure > b.MaxPressure {
			return fmt.Errorf("thresholds.%s: min_pressure %.2f > max_pressure %.2f", name, b.MinPressure, b.MaxPressure)
		}
		if b.LowLevel > b.HighLevel {
			return fmt.Errorf("thresholds.%s: low_level %.2f > high_level %.2f", name, b.LowLevel, b.HighLevel)
		}
	}

	seen := make(map[string]bool, len(cfg.Tanks))
	for _, t := range cfg.Tanks {
		if t.Name == "" {
			return fmt.Errorf("tanks: every tank needs a name")
		}
		if seen[t.Name] {
			return fmt.Errorf("tanks: duplicate tank %q", t.Name)
		}
		seen[t.Name] = true
		if err := validateInterval("tanks."+t.Name+".interval", t.Interval); err != nil {
			return err
		}
		if t.HistoryInterval < MinPollInterval {
			return fmt.Errorf("tanks.%s.history_interval must be >= %s", t.Name, MinPollInterval)
		}
		if t.MaxLevel <= 0 {
			return fmt.Errorf("tanks.%s.max_level must be > 0", t.Name)
		}
		if _, ok := cfg.Thresholds[t.Name]; !ok {
			return fmt.Errorf("tanks.%s: no thresholds entry", t.Name)
		}
		if err := validateBindings("tanks."+t.Name, t.Bindings); err != nil {
			return err
		}
	}

	if err := validateInterval("sites.interval", cfg.Sites.Interval); err != nil {
		return err
	}
	if err := validateBindings("sites", cfg.Sites.Bindings); err != nil {
		return err
	}
	if err := validateInterval("wells.interval", cfg.Wells.Interval); err != nil {
		return err
	}
	if err := validatePipeline(cfg.Pipeline); err != nil {
		return err
	}
	if len(cfg.Energy.Sites) > 0 && cfg.Energy.Dir == "" {
		return fmt.Errorf("energy.dir is required when energy.sites is set")
	}

	if cfg.Dashboard.Enabled {
		if cfg.Dashboard.Port < 1 || cfg.Dashboard.Port > 65535 {
			return fmt.Errorf("dashboard.port must be 1-65535, got %d", cfg.Dashboard.Port)
		}
	}
	if _, err := cfg.Dashboard.Zone(); err != nil {
		return fmt.Errorf("dashboard.location: %w", err)
	}

	if cfg.Browser.Enabled && cfg.Browser.URL != "" {
		if err := ValidateURL(cfg.Browser.URL); err != nil {
			return fmt.Errorf("browser.url: %w", err)
		}
	}

	validStorageTypes := map[string]bool{
		"none": true, "jsonl": true, "csv": true, "mongodb": true,
	}
	if !validStorageTypes[cfg.Storage.Type] {
		return fmt.Errorf("storage.type %q is not supported (valid: none, jsonl, csv, mongodb)", cfg.Storage.Type)
	}
	if cfg.Storage.Type == "mongodb" && cfg.Storage.MongoURI == "" {
		return fmt.Errorf("storage.mongo_uri is required for mongodb storage")
	}

	if cfg.Notify.WebhookURL != "" {
		if err := ValidateURL(cfg.Notify.WebhookURL); err != nil {
			return fmt.Errorf("notify.webhook_url: %w", err)
		}
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[cfg.Logging.Level] {
		return fmt.Errorf("logging.level must be debug/info/warn/error, got %q", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "text" && cfg.Logging.Format != "json" {
		return fmt.Errorf("logging.format must be 'text' or 'json', got %q", cfg.Logging.Format)
	}

	return nil
}

// Zone resolves the configured display location.
func (d DashboardConfig) Zone() (*time.Location, error) {
	if d.Location == "" || d.Location == "Local" {
		return time.Local, nil
	}
	return time.LoadLocation(d.Location)
}

// ValidateURL checks if a URL string is a usable http(s) endpoint.
func ValidateURL(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("URL scheme must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("URL must have a host")
	}
	return nil
}

func validateInterval(key string, d time.Duration) error {
	if d < MinPollInterval || d > MaxPollInterval {
		return fmt.Errorf("%s must be between %s and %s, got %s", key, MinPollInterval, MaxPollInterval, d)
	}
	return nil
}

func validateBindings(key string, bindings []Binding) error {
	seen := make(map[string]bool, len(bindings))
	for _, b := range bindings {
		if b.Element == "" {
			return fmt.Errorf("%s: binding without element", key)
		}
		if seen[b.Element] {
			return fmt.Errorf("%s: element %q bound twice", key, b.Element)
		}
		seen[b.Element] = true
	}
	return nil
}

func validatePipeline(p PipelineConfig) error {
	for i, r := range p.Rename {
		if r.From == "" || r.To == "" {
			return fmt.Errorf("pipeline.rename[%d]: from and to are required", i)
		}
	}
	for i, d := range p.Defaults {
		if d.Field == "" {
			return fmt.Errorf("pipeline.defaults[%d]: field is required", i)
		}
	}
	for i, r := range p.Required {
		if len(r.Fields) == 0 {
			return fmt.Errorf("pipeline.required[%d]: no fields listed", i)
		}
	}
	return nil
}
