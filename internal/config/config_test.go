package config

import (
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"geotrace/internal/models"
)

func writeConfig(t *testing.T, data string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "geotrace.yaml")
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	t.Setenv("IPINFO_API_KEY", "")
	path := writeConfig(t, `
server: https://trace.example.com
max_hops: 20
client_location:
  latitude: 60.17
  longitude: 24.94
  city: Helsinki
progress:
  step: 2
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}

	if cfg.Server != "https://trace.example.com" {
		t.Fatalf("expected server from file, got %s", cfg.Server)
	}
	if cfg.MaxHops != 20 {
		t.Fatalf("expected max hops 20, got %d", cfg.MaxHops)
	}
	if cfg.ClientLocation == nil || cfg.ClientLocation.City != "Helsinki" {
		t.Fatalf("expected client location from file, got %+v", cfg.ClientLocation)
	}
	if cfg.Progress.Interval != 500*time.Millisecond {
		t.Fatalf("expected default interval 500ms, got %s", cfg.Progress.Interval)
	}
	if cfg.Progress.Step != 2 || cfg.Progress.Cap != 90 {
		t.Fatalf("expected step 2 and default cap 90, got %v/%v", cfg.Progress.Step, cfg.Progress.Cap)
	}
	if cfg.DatabasePath != "geotrace.db" {
		t.Fatalf("expected default database path, got %s", cfg.DatabasePath)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected valid config, got %v", err)
	}
}

func TestParseFlagsOverridesFile(t *testing.T) {
	path := writeConfig(t, "server: https://trace.example.com\nmax_hops: 20\n")

	cfg, err := ParseFlags("trace", []string{"--config", path, "-m", "12", "--client-lat", "1.5", "--client-lon", "2.5", "example.org"}, io.Discard)
	if err != nil {
		t.Fatalf("parse flags: %v", err)
	}

	if cfg.Server != "https://trace.example.com" {
		t.Errorf("server = %s, want value from file", cfg.Server)
	}
	if cfg.MaxHops != 12 {
		t.Errorf("max hops = %d, want flag value 12", cfg.MaxHops)
	}
	if cfg.Target != "example.org" {
		t.Errorf("target = %q, want example.org", cfg.Target)
	}
	if cfg.ClientLocation == nil || cfg.ClientLocation.Latitude != 1.5 || cfg.ClientLocation.Longitude != 2.5 {
		t.Errorf("client location = %+v", cfg.ClientLocation)
	}
}

func TestParseFlagsTraceNeedsTarget(t *testing.T) {
	if _, err := ParseFlags("trace", nil, io.Discard); err == nil {
		t.Fatal("expected error without target")
	}
}

func TestRequestDropsReputationWithoutKey(t *testing.T) {
	cfg := Default()
	cfg.Target = "example.com"
	cfg.IncludeReputation = true

	if cfg.Request().IncludeReputation {
		t.Fatal("reputation needs an API key")
	}
	cfg.APIKey = "key"
	if !cfg.Request().IncludeReputation {
		t.Fatal("expected reputation with API key")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		valid  bool
	}{
		{name: "defaults", mutate: func(*Config) {}, valid: true},
		{name: "bad server", mutate: func(c *Config) { c.Server = "localhost:8000" }, valid: false},
		{name: "too many hops", mutate: func(c *Config) { c.MaxHops = 65 }, valid: false},
		{name: "no database while recording", mutate: func(c *Config) { c.DatabasePath = "" }, valid: false},
		{name: "bad port", mutate: func(c *Config) { c.Port = 70000 }, valid: false},
		{name: "cap above 100", mutate: func(c *Config) { c.Progress.Cap = 120 }, valid: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.valid && err != nil {
				t.Errorf("expected valid, got %v", err)
			}
			if !tt.valid && err == nil {
				t.Errorf("expected validation error")
			}
		})
	}
}

func TestParseFlagsServeTargets(t *testing.T) {
	cfg, err := ParseFlags("serve", []string{"--targets", "example.org,example.net", "--interval", "5m", "-p", "9090"}, io.Discard)
	if err != nil {
		t.Fatalf("parse flags: %v", err)
	}

	if len(cfg.Targets) != 2 || cfg.Targets[1] != "example.net" {
		t.Errorf("targets = %v", cfg.Targets)
	}
	if cfg.Interval != 5*time.Minute {
		t.Errorf("interval = %s, want 5m", cfg.Interval)
	}
	if cfg.Port != 9090 {
		t.Errorf("port = %d, want 9090", cfg.Port)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("expected valid config, got %v", err)
	}
}

func TestParseFlagsPartialClientLocation(t *testing.T) {
	path := writeConfig(t, `
client_location:
  latitude: 48.85
  longitude: 2.35
  city: Paris
  country: France
`)

	cfg, err := ParseFlags("trace", []string{"--config", path, "--client-city", "Lyon", "example.org"}, io.Discard)
	if err != nil {
		t.Fatalf("parse flags: %v", err)
	}

	want := models.ClientLocation{Latitude: 48.85, Longitude: 2.35, City: "Lyon", Country: "France"}
	if cfg.ClientLocation == nil || *cfg.ClientLocation != want {
		t.Errorf("client location = %+v, want %+v", cfg.ClientLocation, want)
	}
}

func TestParseFlagsClientLocationWithoutFile(t *testing.T) {
	cfg, err := ParseFlags("trace", []string{"--client-country", "Finland", "example.org"}, io.Discard)
	if err != nil {
		t.Fatalf("parse flags: %v", err)
	}

	want := models.ClientLocation{Country: "Finland"}
	if cfg.ClientLocation == nil || *cfg.ClientLocation != want {
		t.Errorf("client location = %+v, want %+v", cfg.ClientLocation, want)
	}
}
