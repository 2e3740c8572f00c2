package config

import (
	"fmt"
	"net/url"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"geotrace/internal/models"
)

// Config holds all configuration for geotrace
type Config struct {
	Server            string                 `yaml:"server"`
	Target            string                 `yaml:"target"`
	MaxHops           int                    `yaml:"max_hops"`
	IncludeReputation bool                   `yaml:"include_reputation"`
	APIKey            string                 `yaml:"api_key"`
	ClientLocation    *models.ClientLocation `yaml:"client_location"`
	CheckHealth       bool                   `yaml:"check_health"`

	DatabasePath  string `yaml:"database"`
	Record        bool   `yaml:"record"`
	GeoJSONPath   string `yaml:"geojson"`
	RetentionDays int    `yaml:"retention_days"`

	Port     int           `yaml:"port"`
	Targets  []string      `yaml:"targets"`
	Interval time.Duration `yaml:"interval"`

	TraceID   int64  `yaml:"-"`
	OutputDir string `yaml:"output_dir"`
	Limit     int    `yaml:"-"`

	Progress ProgressConfig `yaml:"progress"`
	Verbose  bool           `yaml:"verbose"`
	NoColor  bool           `yaml:"no_color"`
}

// ProgressConfig tunes the ticking progress source
type ProgressConfig struct {
	Interval time.Duration `yaml:"interval"`
	Step     float64       `yaml:"step"`
	Cap      float64       `yaml:"cap"`
}

// Default returns the built-in configuration
func Default() Config {
	return Config{
		Server:        "http://localhost:8000",
		MaxHops:       30,
		DatabasePath:  "geotrace.db",
		Record:        true,
		RetentionDays: 90,
		Port:          8080,
		Interval:      15 * time.Minute,
		OutputDir:     "reports",
		Limit:         20,
		Progress: ProgressConfig{
			Interval: 500 * time.Millisecond,
			Step:     1,
			Cap:      90,
		},
	}
}

// Load reads a YAML file over the defaults
func Load(path string) (Config, error) {
	cfg := Default()
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	d := Default()
	if c.Server == "" {
		c.Server = d.Server
	}
	if c.MaxHops == 0 {
		c.MaxHops = d.MaxHops
	}
	if c.DatabasePath == "" {
		c.DatabasePath = d.DatabasePath
	}
	if c.RetentionDays == 0 {
		c.RetentionDays = d.RetentionDays
	}
	if c.Port == 0 {
		c.Port = d.Port
	}
	if c.Interval == 0 {
		c.Interval = d.Interval
	}
	if c.OutputDir == "" {
		c.OutputDir = d.OutputDir
	}
	if c.Progress.Interval == 0 {
		c.Progress.Interval = d.Progress.Interval
	}
	if c.Progress.Step == 0 {
		c.Progress.Step = d.Progress.Step
	}
	if c.Progress.Cap == 0 {
		c.Progress.Cap = d.Progress.Cap
	}
	if c.APIKey == "" {
		c.APIKey = os.Getenv("IPINFO_API_KEY")
	}
}

// Request builds the trace request described by the configuration
func (c *Config) Request() models.TraceRequest {
	return models.TraceRequest{
		Target:            c.Target,
		MaxHops:           c.MaxHops,
		IncludeReputation: c.IncludeReputation && c.APIKey != "",
		APIKey:            c.APIKey,
		ClientLocation:    c.ClientLocation,
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	u, err := url.Parse(c.Server)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("server must be an http(s) URL, got %q", c.Server)
	}
	if c.MaxHops < 1 || c.MaxHops > models.MaxHopsLimit {
		return fmt.Errorf("max hops must be between 1 and %d", models.MaxHopsLimit)
	}
	if c.Record && c.DatabasePath == "" {
		return fmt.Errorf("database path cannot be empty when recording")
	}
	if c.RetentionDays <= 0 {
		return fmt.Errorf("retention days must be positive")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535")
	}
	if len(c.Targets) > 0 && c.Interval <= 0 {
		return fmt.Errorf("interval must be positive when targets are watched")
	}
	if c.Progress.Interval <= 0 {
		return fmt.Errorf("progress interval must be positive")
	}
	if c.Progress.Step <= 0 || c.Progress.Cap <= 0 || c.Progress.Cap > 100 {
		return fmt.Errorf("progress step must be positive and cap within (0, 100]")
	}
	return nil
}
