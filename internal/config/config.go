package config

import (
	"strings"
	"time"
)

// Version is set at build time via ldflags.
var Version = "dev"

// Config is the root configuration for telemetria.
type Config struct {
	Fetcher    FetcherConfig   `mapstructure:"fetcher"    yaml:"fetcher"`
	Sources    SourcesConfig   `mapstructure:"sources"    yaml:"sources"`
	Thresholds map[string]Band `mapstructure:"thresholds" yaml:"thresholds"`
	Tanks      []TankConfig    `mapstructure:"tanks"      yaml:"tanks"`
	Sites      SitesConfig     `mapstructure:"sites"      yaml:"sites"`
	Wells      WellsConfig     `mapstructure:"wells"      yaml:"wells"`
	Pipeline   PipelineConfig  `mapstructure:"pipeline"   yaml:"pipeline"`
	Energy     EnergyConfig    `mapstructure:"energy"     yaml:"energy"`
	Dashboard  DashboardConfig `mapstructure:"dashboard"  yaml:"dashboard"`
	Browser    BrowserConfig   `mapstructure:"browser"    yaml:"browser"`
	Storage    StorageConfig   `mapstructure:"storage"    yaml:"storage"`
	Notify     NotifyConfig    `mapstructure:"notify"     yaml:"notify"`
	Logging    LoggingConfig   `mapstructure:"logging"    yaml:"logging"`
	Metrics    MetricsConfig   `mapstructure:"metrics"    yaml:"metrics"`
}

// FetcherConfig controls the HTTP fetcher.
type FetcherConfig struct {
	RequestTimeout  time.Duration `mapstructure:"request_timeout"   yaml:"request_timeout"`
	MaxBodySize     int64         `mapstructure:"max_body_size"     yaml:"max_body_size"`
	TLSInsecure     bool          `mapstructure:"tls_insecure"      yaml:"tls_insecure"`
	IdleConnTimeout time.Duration `mapstructure:"idle_conn_timeout" yaml:"idle_conn_timeout"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"    yaml:"max_idle_conns"`
	UserAgent       string        `mapstructure:"user_agent"        yaml:"user_agent"`
}

// SourcesConfig holds the base URLs of the polled endpoints.
type SourcesConfig struct {
	// APIBaseURL serves /datos-resumidos/{tank} and /historial/{tank}.
	APIBaseURL string `mapstructure:"api_base_url"    yaml:"api_base_url"`
	// DataBaseURL serves the per-site CSV snapshots and hourly averages.
	DataBaseURL string `mapstructure:"data_base_url"   yaml:"data_base_url"`
	// StatusBaseURL serves the detailed per-well status JSON.
	StatusBaseURL string `mapstructure:"status_base_url" yaml:"status_base_url"`
}

// Band is the operating envelope of one site or tank. Flow and pressure bounds
// drive indicator coloring; level bounds drive the three-state classifier.
type Band struct {
	MinFlow     float64 `mapstructure:"min_flow"     yaml:"min_flow"`
	MaxFlow     float64 `mapstructure:"max_flow"     yaml:"max_flow"`
	MinPressure float64 `mapstructure:"min_pressure" yaml:"min_pressure"`
	MaxPressure float64 `mapstructure:"max_pressure" yaml:"max_pressure"`
	LowLevel    float64 `mapstructure:"low_level"    yaml:"low_level"`
	HighLevel   float64 `mapstructure:"high_level"   yaml:"high_level"`
}

// Binding associates a page element with a source field.
type Binding struct {
	Element  string `mapstructure:"element"  yaml:"element"`
	Field    string `mapstructure:"field"    yaml:"field"` // empty: static text
	Site     string `mapstructure:"site"     yaml:"site"`
	Prefix   string `mapstructure:"prefix"   yaml:"prefix"`
	Unit     string `mapstructure:"unit"     yaml:"unit"`
	Degraded string `mapstructure:"degraded" yaml:"degraded"`
}

// TankConfig describes one tank screen.
type TankConfig struct {
	Name            string        `mapstructure:"name"             yaml:"name"`
	Title           string        `mapstructure:"title"            yaml:"title"`
	Interval        time.Duration `mapstructure:"interval"         yaml:"interval"`
	HistoryInterval time.Duration `mapstructure:"history_interval" yaml:"history_interval"`
	MaxLevel        float64       `mapstructure:"max_level"        yaml:"max_level"`
	GaugeHeight     float64       `mapstructure:"gauge_height"     yaml:"gauge_height"` // vh
	Bindings        []Binding     `mapstructure:"bindings"         yaml:"bindings"`
}

// SitesConfig describes the multi-site aggregate screen.
type SitesConfig struct {
	Interval       time.Duration     `mapstructure:"interval"        yaml:"interval"`
	Inflow         []string          `mapstructure:"inflow"          yaml:"inflow"`
	Outflow        []string          `mapstructure:"outflow"         yaml:"outflow"`
	InflowElement  string            `mapstructure:"inflow_element"  yaml:"inflow_element"`
	OutflowElement string            `mapstructure:"outflow_element" yaml:"outflow_element"`
	Indicators     map[string]string `mapstructure:"indicators"      yaml:"indicators"`
	Bindings       []Binding         `mapstructure:"bindings"        yaml:"bindings"`
}

// WellsConfig describes the per-well detail screens.
type WellsConfig struct {
	Interval time.Duration `mapstructure:"interval" yaml:"interval"`
	Sites    []string      `mapstructure:"sites"    yaml:"sites"`
}

// EnergyConfig locates the monthly electricity bills of the wells and
// pumping stations.
type EnergyConfig struct {
	Dir   string   `mapstructure:"dir"   yaml:"dir"` // holds historial_{site}.csv and pozo_{site}.csv
	Sites []string `mapstructure:"sites" yaml:"sites"`
}

// PipelineConfig adjusts how polled readings are normalized. Field names
// are given as lists because map keys lose their case when loaded.
type PipelineConfig struct {
	Rename   []FieldRename    `mapstructure:"rename"   yaml:"rename"`
	Defaults []FieldDefault   `mapstructure:"defaults" yaml:"defaults"`
	Required []RequiredFields `mapstructure:"required" yaml:"required"`
}

// FieldRename maps a published field name onto the one the screens read.
type FieldRename struct {
	From string `mapstructure:"from" yaml:"from"`
	To   string `mapstructure:"to"   yaml:"to"`
}

// FieldDefault fills a field a site did not publish.
type FieldDefault struct {
	Field string  `mapstructure:"field" yaml:"field"`
	Value float64 `mapstructure:"value" yaml:"value"`
}

// RequiredFields rejects readings of Site that lack any of Fields. An empty
// Site applies to every reading.
type RequiredFields struct {
	Site   string   `mapstructure:"site"   yaml:"site"`
	Fields []string `mapstructure:"fields" yaml:"fields"`
}

// DashboardConfig controls the embedded HTTP dashboard.
type DashboardConfig struct {
	Enabled  bool   `mapstructure:"enabled"  yaml:"enabled"`
	Port     int    `mapstructure:"port"     yaml:"port"`
	Location string `mapstructure:"location" yaml:"location"` // IANA zone for displayed times
}

// BrowserConfig controls mirroring one screen into a live browser page.
type BrowserConfig struct {
	Enabled  bool   `mapstructure:"enabled"  yaml:"enabled"`
	URL      string `mapstructure:"url"      yaml:"url"`
	Screen   string `mapstructure:"screen"   yaml:"screen"`
	Headless bool   `mapstructure:"headless" yaml:"headless"`
	Stealth  bool   `mapstructure:"stealth"  yaml:"stealth"`
}

// StorageConfig controls the archive of accepted readings.
type StorageConfig struct {
	Type       string `mapstructure:"type"        yaml:"type"` // none, jsonl, csv, mongodb
	OutputPath string `mapstructure:"output_path" yaml:"output_path"`
	MongoURI   string `mapstructure:"mongo_uri"   yaml:"mongo_uri"`
	Database   string `mapstructure:"database"    yaml:"database"`
	Collection string `mapstructure:"collection"  yaml:"collection"`
}

// NotifyConfig controls level-alert notifications.
type NotifyConfig struct {
	WebhookURL string        `mapstructure:"webhook_url" yaml:"webhook_url"`
	Timeout    time.Duration `mapstructure:"timeout"     yaml:"timeout"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	Level  string `mapstructure:"level"  yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// MetricsConfig controls Prometheus metrics.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Path    string `mapstructure:"path"    yaml:"path"`
}

// Tank returns the tank screen with the given name.
func (c *Config) Tank(name string) (TankConfig, bool) {
	for _, t := range c.Tanks {
		if t.Name == name {
			return t, true
		}
	}
	return TankConfig{}, false
}

// Band returns the operating envelope of a site or tank. Names are matched
// case-insensitively.
func (c *Config) Band(name string) (Band, bool) {
	if b, ok := c.Thresholds[name]; ok {
		return b, true
	}
	for k, b := range c.Thresholds {
		if strings.EqualFold(k, name) {
			return b, true
		}
	}
	return Band{}, false
}

func tankBindings() []Binding {
	return []Binding{
		{Element: "ultimo7", Field: "nivel", Prefix: "Nivel: ", Unit: "m"},
		{Element: "ultimo8", Field: "entrada", Prefix: "Q= Entrada: ", Unit: "L/s"},
		{Element: "ultimo10", Field: "salida", Prefix: "Q= Salida: ", Unit: "L/s"},
	}
}

func energySites() []string {
	return []string{
		"1-RR", "4", "5", "5-R_CH", "6", "7-RR", "9-R", "11-R", "12", "14-R", "15-R", "16-R", "17-R", "23-R",
		"24-R", "28", "33-R", "38", "42-RR", "45", "46-R", "47-R", "48-R", "50-R", "52-R", "54-R", "55-R",
		"56-R", "58", "60", "61-R", "62-R", "63-R", "64", "66-R", "67-R", "68-R", "69-R", "70-R", "71-R",
		"72-R", "73-R", "75-R", "76", "78-R", "79-R", "80-B", "80-AR", "81-R", "84-R", "86-R", "87",
		"88", "89-R", "89-RR", "91-R", "92-R", "93-R", "94-R", "95", "96", "97-R", "98-R", "99-R", "100",
		"101", "103", "104", "106", "110", "111", "112", "113", "114", "115", "116", "117", "119", "120",
		"121", "122", "123-R", "124", "129", "130", "132", "133-R", "134", "135-R", "136-R", "138",
		"141", "142", "143", "144", "145", "146", "147", "148", "149", "150", "152-R", "156-R",
		"157", "160", "161", "163", "164", "165", "166", "167-R", "168", "169", "170", "171", "172",
		"173", "174", "176", "177", "178", "179", "180", "182", "183", "184-R", "185", "186", "187",
		"188", "190", "191", "192", "193", "194", "195", "196", "197", "198", "199", "200", "201",
		"202", "203", "REB 60", "REB 60-A", "204", "205", "206", "207", "208", "209", "210-R", "211",
		"212", "212-R", "213", "214", "215", "216", "217", "218", "219", "220-R", "221", "222", "223",
		"226", "229", "230", "231 (CEFERESO 9)", "232 (electrolux 1)", "233 (electrolux 2)", "234 (IVI 9)",
		"235 (IVI 10)", "236 (IVI 8)", "237", "238", "239 (IVI 12)", "240 (IVI 13)", "244", "245", "246 BODEGA POZO 19",
		"Pozo Loma Blanca", "1 ACM", "2 ACM", "3 ACM", "5 ACM", "6 ACM", "7 ACM", "9 ACM", "10 ACM", "11 ACM",
		"12 ACM", "13 ACM", "14 ACM", "15 ACM", "16 ACM", "17 ACM", "18 ACM", "19 ACM", "21 ACM", "22 ACM",
		"23 ACM", "24 ACM", "25 ACM", "26 ACM", "27 ACM", "247", "250", "251", "252", "253", "255", "259",
		"262", "263", "269", "6 Anapra", "2 Samalayuca", "3 Samalayuca", "3-ZARA-R", "4-ZARA", "5-ZARA(140)",
		"6-ZARA(151)", "7-ZARA(158)", "8-ZARA",
	}
}

// EnergySite returns the configured spelling of an energy site, matching
// case-insensitively.
func (c *Config) EnergySite(name string) (string, bool) {
	for _, s := range c.Energy.Sites {
		if strings.EqualFold(s, name) {
			return s, true
		}
	}
	return "", false
}

// DefaultConfig returns a Config with the production tanks, sites and
// wells preconfigured.
func DefaultConfig() *Config {
	return &Config{
		Fetcher: FetcherConfig{
			RequestTimeout:  10 * time.Second,
			MaxBodySize:     4 * 1024 * 1024, // 4MB
			IdleConnTimeout: 90 * time.Second,
			MaxIdleConns:    20,
			UserAgent:       "telemetria/" + Version,
		},
		Sources: SourcesConfig{
			APIBaseURL:    "https://render-fastapi-app.onrender.com",
			DataBaseURL:   "http://localhost:10000",
			StatusBaseURL: "http://192.168.100.13:10000",
		},
		Thresholds: map[string]Band{
			"tanque3cantos": {LowLevel: 1.30, HighLevel: 3.70},
			"tanquelajas":   {LowLevel: 2.0, HighLevel: 4.5},
			"p263":          {MinFlow: 30, MaxFlow: 52, MinPressure: 5, MaxPressure: 15},
			"p25":           {MinFlow: 15, MaxFlow: 30, MinPressure: 6, MaxPressure: 18},
			"reb62":         {MinFlow: 0, MaxFlow: 45, MinPressure: 10, MaxPressure: 40},
			"reb62a":        {MinFlow: 0, MaxFlow: 45, MinPressure: 10, MaxPressure: 40},
		},
		Tanks: []TankConfig{
			{
				Name:            "tanque3cantos",
				Title:           "Tanque 3 Cantos",
				Interval:        3 * time.Second,
				HistoryInterval: 60 * time.Second,
				MaxLevel:        5,
				GaugeHeight:     46,
				Bindings:        tankBindings(),
			},
			{
				Name:            "tanquelajas",
				Title:           "Tanque Lajas",
				Interval:        30 * time.Second,
				HistoryInterval: 60 * time.Second,
				MaxLevel:        5,
				GaugeHeight:     46,
				Bindings:        tankBindings(),
			},
		},
		Sites: SitesConfig{
			Interval:       30 * time.Second,
			Inflow:         []string{"p263", "p25"},
			Outflow:        []string{"reb62", "reb62a"},
			InflowElement:  "ultimo8",
			OutflowElement: "ultimo10",
			Indicators: map[string]string{
				"p263":   "circle-263",
				"p25":    "circle-25-R",
				"reb62":  "circle-reb_62",
				"reb62a": "circle-reb_62A",
			},
			Bindings: []Binding{
				{Element: "ultimo3", Field: "Presion_Instantanea", Site: "p263", Unit: "psi"},
				{Element: "ultimo4", Field: "Gasto_Instantaneo", Site: "p263", Prefix: "Q= ", Unit: "L/s"},
				{Element: "ultimo11", Field: "Presion_Instantanea", Site: "reb62", Unit: "psi"},
				{Element: "ultimo12", Field: "Gasto_Instantaneo", Site: "reb62", Prefix: "Q= ", Unit: "L/s"},
				{Element: "ultimo13", Field: "Presion_Instantanea", Site: "p25", Unit: "psi"},
				{Element: "ultimo14", Field: "Gasto_Instantaneo", Site: "p25", Prefix: "Q= ", Unit: "L/s"},
				{Element: "ultimo15", Field: "Presion_Instantanea", Site: "reb62a", Unit: "psi"},
				{Element: "ultimo16", Field: "Gasto_Instantaneo", Site: "reb62a", Prefix: "Q= ", Unit: "L/s"},
				{Element: "ultimo7", Field: "Nivel_1", Site: "tanque3cantos", Prefix: "Nivel: ", Unit: "m"},
				{Element: "ultimo17", Prefix: "Gasto de Entrada"},
				{Element: "ultimo18", Prefix: "Gasto de Salida"},
			},
		},
		Wells: WellsConfig{
			Interval: 30 * time.Second,
			Sites:    []string{"p263", "p25", "p254", "p85"},
		},
		Energy: EnergyConfig{
			Dir:   "output",
			Sites: energySites(),
		},
		Dashboard: DashboardConfig{
			Enabled:  true,
			Port:     8080,
			Location: "Local",
		},
		Browser: BrowserConfig{
			Enabled:  false,
			Screen:   "tanque/tanque3cantos",
			Headless: true,
		},
		Storage: StorageConfig{
			Type:       "none",
			OutputPath: "./output",
			Database:   "telemetria",
			Collection: "lecturas",
		},
		Notify: NotifyConfig{
			Timeout: 5 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
	}
}
