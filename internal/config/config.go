// Package config handles application configuration from an optional YAML
// file layered over built-in defaults, with API keys taken from the
// environment.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// AlternateFeed is one fallback source for the subway feed, tried in order
// after the primary.
type AlternateFeed struct {
	Name string `yaml:"name" validate:"required"`
	URL  string `yaml:"url" validate:"required,url"`
}

// SubwayConfig describes the tracked subway route and its source chain.
type SubwayConfig struct {
	Route          string          `yaml:"route" validate:"required"`
	FeedURL        string          `yaml:"feed_url" validate:"required,url"`
	AlternateFeeds []AlternateFeed `yaml:"alternate_feeds" validate:"dive"`
	AlertsURL      string          `yaml:"alerts_url" validate:"omitempty,url"`

	// Stops maps a direction name to its platform stop ID, e.g. uptown: Q05N.
	Stops map[string]string `yaml:"stops" validate:"required"`

	// OffsetMinutes corrects known clock skew in the feed, per direction.
	// Negative values shift arrivals earlier.
	OffsetMinutes map[string]int `yaml:"offset_minutes"`

	// DisplayAdjust is subtracted from every positive minutes-away value to
	// offset systematic overstatement in the feed. Nil means the default of 1.
	DisplayAdjust *int `yaml:"display_adjust_minutes"`
}

// DisplayAdjustMinutes returns the configured display adjustment, defaulting
// to one minute.
func (s SubwayConfig) DisplayAdjustMinutes() int {
	if s.DisplayAdjust == nil {
		return 1
	}
	return *s.DisplayAdjust
}

// BusRoute is one monitored bus route and the stop it is watched at.
type BusRoute struct {
	Name    string `yaml:"name" validate:"required"`
	LineRef string `yaml:"line_ref" validate:"required"`
	StopID  string `yaml:"stop_id" validate:"required"`

	// SkipLimited drops visits whose destination is a limited-service variant.
	SkipLimited bool `yaml:"skip_limited"`
}

// BusConfig describes the monitored bus routes and provider endpoints.
type BusConfig struct {
	APIURL   string     `yaml:"api_url" validate:"required,url"`
	StopsURL string     `yaml:"stops_url" validate:"omitempty,url"`
	Operator string     `yaml:"operator" validate:"required"`
	Routes   []BusRoute `yaml:"routes" validate:"min=1,dive"`
}

// WeatherConfig describes the weather provider endpoints and retry budgets.
type WeatherConfig struct {
	City        string `yaml:"city" validate:"required"`
	CurrentURL  string `yaml:"current_url" validate:"required,url"`
	ForecastURL string `yaml:"forecast_url" validate:"required,url"`

	// Escalating per-attempt response budgets, in seconds.
	CurrentTimeouts  []int `yaml:"current_timeouts_seconds" validate:"omitempty,dive,gt=0"`
	ForecastTimeouts []int `yaml:"forecast_timeouts_seconds" validate:"omitempty,dive,gt=0"`

	// ForecastBlocks is the cnt query parameter; the acquirer keeps the
	// first five blocks regardless.
	ForecastBlocks int `yaml:"forecast_blocks" validate:"gt=0"`
}

// CurrentBudgets returns the current-conditions timeout budgets as durations.
func (w WeatherConfig) CurrentBudgets() []time.Duration {
	return budgets(w.CurrentTimeouts)
}

// ForecastBudgets returns the forecast timeout budgets as durations.
func (w WeatherConfig) ForecastBudgets() []time.Duration {
	return budgets(w.ForecastTimeouts)
}

func budgets(seconds []int) []time.Duration {
	out := make([]time.Duration, len(seconds))
	for i, s := range seconds {
		out[i] = time.Duration(s) * time.Second
	}
	return out
}

// Config holds all application configuration.
type Config struct {
	RefreshSeconds     int `yaml:"refresh_seconds" validate:"gt=0"`
	HTTPTimeoutSeconds int `yaml:"http_timeout_seconds" validate:"gt=0"`

	Subway  SubwayConfig  `yaml:"subway"`
	Bus     BusConfig     `yaml:"bus"`
	Weather WeatherConfig `yaml:"weather"`

	// Environment-only settings, never read from the config file.
	SubwayAPIKey  string `yaml:"-"`
	BusAPIKey     string `yaml:"-"`
	WeatherAPIKey string `yaml:"-"`
	UseMockData   bool   `yaml:"-"`
}

// RefreshInterval returns the polling interval as a duration.
func (c *Config) RefreshInterval() time.Duration {
	return time.Duration(c.RefreshSeconds) * time.Second
}

// HTTPTimeout returns the per-request transport timeout as a duration.
func (c *Config) HTTPTimeout() time.Duration {
	return time.Duration(c.HTTPTimeoutSeconds) * time.Second
}

// Default returns the built-in configuration: Q train at 86 St, M102/M103 at
// 2 Av, Manhattan weather.
func Default() *Config {
	return &Config{
		RefreshSeconds:     30,
		HTTPTimeoutSeconds: 35,
		Subway: SubwayConfig{
			Route:   "Q",
			FeedURL: "https://api-endpoint.mta.info/Dataservice/mtagtfsfeeds/nyct%2Fgtfs-nqrw",
			AlternateFeeds: []AlternateFeed{
				{Name: "mtapi", URL: "https://api.nyct.io/gtfs-nqrw"},
				{Name: "transitland", URL: "https://transit.land/api/v2/rest/feeds/f-dr5r-nyct~rt"},
			},
			AlertsURL: "https://api-endpoint.mta.info/Dataservice/mtagtfsfeeds/camsys%2Fall-alerts",
			Stops: map[string]string{
				"uptown":   "Q05N",
				"downtown": "Q05S",
			},
			OffsetMinutes: map[string]int{
				"uptown":   -2,
				"downtown": -5,
			},
		},
		Bus: BusConfig{
			APIURL:   "https://bustime.mta.info/api/siri/stop-monitoring.json",
			StopsURL: "https://bustime.mta.info/api/where/stops-for-location.json",
			Operator: "MTA",
			Routes: []BusRoute{
				{Name: "M102", LineRef: "MTA NYCT_M102", StopID: "402694"},
				{Name: "M103", LineRef: "MTA NYCT_M103", StopID: "402694"},
			},
		},
		Weather: WeatherConfig{
			City:             "Manhattan,US",
			CurrentURL:       "https://api.openweathermap.org/data/2.5/weather",
			ForecastURL:      "https://api.openweathermap.org/data/2.5/forecast",
			CurrentTimeouts:  []int{20, 30, 45},
			ForecastTimeouts: []int{15, 25, 40},
			ForecastBlocks:   8,
		},
	}
}

// Load reads configuration. When path is empty a short list of default
// locations is tried and a missing file just means built-in defaults; an
// explicit path that cannot be read is an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	paths := []string{"config.yml", "/etc/commuteboard/config.yml"}
	if path != "" {
		paths = []string{path}
	}

	var data []byte
	var err error
	for _, p := range paths {
		data, err = os.ReadFile(p)
		if err == nil {
			break
		}
	}
	if err != nil && path != "" {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	if data != nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config: %w", err)
		}
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	cfg.loadEnv()
	return cfg, nil
}

func (c *Config) loadEnv() {
	c.SubwayAPIKey = getEnv("SUBWAY_API_KEY", "")
	c.BusAPIKey = getEnv("BUS_API_KEY", "")
	c.WeatherAPIKey = getEnv("WEATHER_API_KEY", "")
	c.UseMockData = truthy(os.Getenv("USE_MOCK_DATA"))
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func truthy(value string) bool {
	switch strings.ToLower(value) {
	case "1", "true", "yes":
		return true
	}
	return false
}
