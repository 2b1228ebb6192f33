package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultConfigValidates(t *testing.T) {
	if err := Validate(DefaultConfig()); err != nil {
		t.Fatalf("default config should be valid: %v", err)
	}
}

func TestDefaultThresholdsPerTank(t *testing.T) {
	cfg := DefaultConfig()

	cantos := cfg.Thresholds["tanque3cantos"]
	if cantos.LowLevel != 1.30 || cantos.HighLevel != 3.70 {
		t.Errorf("tanque3cantos thresholds = %.2f/%.2f", cantos.LowLevel, cantos.HighLevel)
	}
	lajas := cfg.Thresholds["tanquelajas"]
	if lajas.LowLevel != 2.0 || lajas.HighLevel != 4.5 {
		t.Errorf("tanquelajas thresholds = %.2f/%.2f", lajas.LowLevel, lajas.HighLevel)
	}
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"interval too short", func(c *Config) { c.Tanks[0].Interval = time.Second }, "interval"},
		{"interval too long", func(c *Config) { c.Sites.Interval = time.Minute }, "sites.interval"},
		{"inverted levels", func(c *Config) {
			c.Thresholds["tanque3cantos"] = Band{LowLevel: 4, HighLevel: 1}
		}, "low_level"},
		{"inverted flow band", func(c *Config) {
			c.Thresholds["p263"] = Band{MinFlow: 60, MaxFlow: 52}
		}, "min_flow"},
		{"tank without thresholds", func(c *Config) { delete(c.Thresholds, "tanquelajas") }, "no thresholds"},
		{"duplicate element", func(c *Config) {
			c.Sites.Bindings = append(c.Sites.Bindings, Binding{Element: "ultimo3"})
		}, "bound twice"},
		{"bad storage", func(c *Config) { c.Storage.Type = "parquet" }, "storage.type"},
		{"mongo without uri", func(c *Config) { c.Storage.Type = "mongodb" }, "mongo_uri"},
		{"bad source url", func(c *Config) { c.Sources.APIBaseURL = "ftp://x" }, "api_base_url"},
		{"bad log level", func(c *Config) { c.Logging.Level = "trace" }, "logging.level"},
		{"bad location", func(c *Config) { c.Dashboard.Location = "Mars/Olympus" }, "dashboard.location"},
		{"rename without target", func(c *Config) {
			c.Pipeline.Rename = []FieldRename{{From: "Nivel"}}
		}, "pipeline.rename"},
		{"energy without dir", func(c *Config) { c.Energy.Dir = "" }, "energy.dir"},
		{"required without fields", func(c *Config) {
			c.Pipeline.Required = []RequiredFields{{Site: "tanque3cantos"}}
		}, "pipeline.required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := Validate(cfg)
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "telemetria.yaml")
	yaml := `
logging:
  level: debug
sites:
  interval: 10s
dashboard:
  port: 9000
thresholds:
  p85:
    min_flow: 5
    max_flow: 20
    min_pressure: 1
    max_pressure: 9
`
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("logging.level = %q, want debug", cfg.Logging.Level)
	}
	if cfg.Sites.Interval != 10*time.Second {
		t.Errorf("sites.interval = %s, want 10s", cfg.Sites.Interval)
	}
	if cfg.Dashboard.Port != 9000 {
		t.Errorf("dashboard.port = %d, want 9000", cfg.Dashboard.Port)
	}
	if got := cfg.Thresholds["p85"].MaxFlow; got != 20 {
		t.Errorf("thresholds.p85.max_flow = %.1f, want 20", got)
	}
	if cfg.Wells.Interval != 30*time.Second {
		t.Errorf("untouched wells.interval should keep default, got %s", cfg.Wells.Interval)
	}
}

func TestLoadPipeline(t *testing.T) {
	path := filepath.Join(t.TempDir(), "telemetria.yaml")
	yaml := `
pipeline:
  rename:
    - from: Nivel
      to: Nivel_1
  defaults:
    - field: estado_motor
      value: 0
  required:
    - site: tanque3cantos
      fields: [nivel]
`
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	p := cfg.Pipeline
	if len(p.Rename) != 1 || p.Rename[0] != (FieldRename{From: "Nivel", To: "Nivel_1"}) {
		t.Errorf("rename = %+v", p.Rename)
	}
	if len(p.Defaults) != 1 || p.Defaults[0].Field != "estado_motor" {
		t.Errorf("defaults = %+v", p.Defaults)
	}
	if len(p.Required) != 1 || p.Required[0].Site != "tanque3cantos" || p.Required[0].Fields[0] != "nivel" {
		t.Errorf("required = %+v", p.Required)
	}
	if err := Validate(cfg); err != nil {
		t.Errorf("validate: %v", err)
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing explicit config file")
	}
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("TELEMETRIA_LOGGING_FORMAT", "json")
	t.Setenv("TELEMETRIA_STORAGE_TYPE", "jsonl")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Logging.Format != "json" {
		t.Errorf("logging.format = %q, want json", cfg.Logging.Format)
	}
	if cfg.Storage.Type != "jsonl" {
		t.Errorf("storage.type = %q, want jsonl", cfg.Storage.Type)
	}
}

func TestTankLookup(t *testing.T) {
	cfg := DefaultConfig()
	if _, ok := cfg.Tank("tanquelajas"); !ok {
		t.Error("expected tanquelajas to be configured")
	}
	if _, ok := cfg.Tank("nope"); ok {
		t.Error("unexpected tank")
	}
}

func TestBandLookup(t *testing.T) {
	cfg := DefaultConfig()
	b, ok := cfg.Band("REB62A")
	if !ok || b.MaxPressure != 40 {
		t.Errorf("expected reb62a band, got %+v %v", b, ok)
	}
	if _, ok := cfg.Band("p999"); ok {
		t.Error("unexpected band for unknown site")
	}
}

func TestEnergySiteLookup(t *testing.T) {
	cfg := DefaultConfig()
	if s, ok := cfg.EnergySite("5-r_ch"); !ok || s != "5-R_CH" {
		t.Errorf("EnergySite(5-r_ch) = %q, %v", s, ok)
	}
	if _, ok := cfg.EnergySite("999-X"); ok {
		t.Error("unexpected energy site")
	}
}
