package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaults(t *testing.T) {
	cfg := Default()

	if cfg.RefreshSeconds != 30 {
		t.Errorf("refresh = %d, want 30", cfg.RefreshSeconds)
	}
	if cfg.Subway.Route != "Q" {
		t.Errorf("route = %q, want Q", cfg.Subway.Route)
	}
	if cfg.Subway.Stops["uptown"] != "Q05N" || cfg.Subway.Stops["downtown"] != "Q05S" {
		t.Errorf("stops = %v", cfg.Subway.Stops)
	}
	if len(cfg.Bus.Routes) != 2 {
		t.Errorf("bus routes = %d, want 2", len(cfg.Bus.Routes))
	}
	if got := cfg.Weather.CurrentBudgets(); len(got) != 3 || got[0] != 20*time.Second {
		t.Errorf("current budgets = %v", got)
	}
	if got := cfg.Subway.DisplayAdjustMinutes(); got != 1 {
		t.Errorf("display adjust = %d, want 1 by default", got)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	body := `
refresh_seconds: 15
subway:
  route: N
  display_adjust_minutes: 0
  offset_minutes:
    uptown: -1
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.RefreshSeconds != 15 {
		t.Errorf("refresh = %d, want 15", cfg.RefreshSeconds)
	}
	if cfg.Subway.Route != "N" {
		t.Errorf("route = %q, want N", cfg.Subway.Route)
	}
	if got := cfg.Subway.DisplayAdjustMinutes(); got != 0 {
		t.Errorf("display adjust = %d, want explicit 0", got)
	}
	if cfg.Subway.OffsetMinutes["uptown"] != -1 {
		t.Errorf("uptown offset = %d, want -1", cfg.Subway.OffsetMinutes["uptown"])
	}
	// Untouched sections keep their defaults.
	if cfg.Bus.Operator != "MTA" {
		t.Errorf("operator = %q, want MTA", cfg.Bus.Operator)
	}
}

func TestLoadMissingExplicitPath(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yml")); err == nil {
		t.Error("expected an error for an explicit missing path")
	}
}

func TestLoadRejectsInvalidConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	if err := os.WriteFile(path, []byte("refresh_seconds: -5\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected a validation error for a negative refresh interval")
	}
}

func TestEnvironmentKeys(t *testing.T) {
	t.Setenv("SUBWAY_API_KEY", "sub-key")
	t.Setenv("BUS_API_KEY", "bus-key")
	t.Setenv("WEATHER_API_KEY", "wx-key")
	t.Setenv("USE_MOCK_DATA", "YES")

	cfg := Default()
	cfg.loadEnv()

	if cfg.SubwayAPIKey != "sub-key" || cfg.BusAPIKey != "bus-key" || cfg.WeatherAPIKey != "wx-key" {
		t.Errorf("keys not loaded: %+v", cfg)
	}
	if !cfg.UseMockData {
		t.Error("USE_MOCK_DATA=YES must enable mock data")
	}
}

func TestTruthy(t *testing.T) {
	for _, v := range []string{"1", "true", "TRUE", "yes", "Yes"} {
		if !truthy(v) {
			t.Errorf("truthy(%q) = false", v)
		}
	}
	for _, v := range []string{"", "0", "no", "false", "on"} {
		if truthy(v) {
			t.Errorf("truthy(%q) = true", v)
		}
	}
}
