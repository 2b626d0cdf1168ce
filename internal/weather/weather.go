// Package weather fetches current conditions and a short hourly forecast
// from OpenWeatherMap, with escalating timeout retries and synthetic
// fallback data.
package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/commuteboard/commuteboard/internal/config"
	"github.com/commuteboard/commuteboard/internal/fetch"
	"github.com/commuteboard/commuteboard/internal/log"
)

// fallbackUserAgent is the distinct request identity used for the last-ditch
// forecast attempt after every budgeted retry has failed.
const fallbackUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"

// Snapshot is the current-conditions result, with the hourly forecast
// embedded. Units are imperial.
type Snapshot struct {
	Description string      `json:"description"`
	TempF       int         `json:"temp"`
	FeelsLikeF  int         `json:"feels_like"`
	HumidityPct int         `json:"humidity"`
	WindMph     int         `json:"wind_speed"`
	Icon        string      `json:"icon"`
	Main        string      `json:"main"`
	Sunrise     string      `json:"sunrise,omitempty"`
	Sunset      string      `json:"sunset,omitempty"`
	Hourly      []HourBlock `json:"hourly"`
}

// HourBlock is one forecast block, labeled by local hour
type HourBlock struct {
	Label       string  `json:"hour"`
	TempF       int     `json:"temp"`
	FeelsLikeF  int     `json:"feels_like"`
	Icon        string  `json:"icon"`
	Description string  `json:"description"`
	PrecipProb  float64 `json:"pop"`
	HumidityPct int     `json:"humidity"`
	WindMph     int     `json:"wind_speed"`
	WindDir     string  `json:"wind_direction,omitempty"`
}

// Service fetches weather data for one city.
type Service struct {
	cfg             config.WeatherConfig
	apiKey          string
	client          *http.Client
	currentBudgets  []time.Duration
	forecastBudgets []time.Duration
}

// NewService creates a new weather service. Attempts are bounded by
// per-attempt context budgets, not a client-wide timeout.
func NewService(cfg *config.Config) *Service {
	return &Service{
		cfg:             cfg.Weather,
		apiKey:          cfg.WeatherAPIKey,
		client:          &http.Client{},
		currentBudgets:  cfg.Weather.CurrentBudgets(),
		forecastBudgets: cfg.Weather.ForecastBudgets(),
	}
}

// FetchCurrent returns current conditions with the hourly forecast
// embedded. Timeouts escalate through the configured budgets; any non-200
// status or connection-level failure abandons retries immediately. It never
// fails outward.
func (s *Service) FetchCurrent(ctx context.Context) Snapshot {
	for _, budget := range s.currentBudgets {
		attemptCtx, cancel := context.WithTimeout(ctx, budget)
		body, fail := fetch.Get(attemptCtx, s.client, s.currentURL(), nil)
		cancel()

		if fail == nil {
			snap, err := parseCurrent(body)
			if err != nil {
				log.Warnf("weather: parsing current conditions: %v", err)
				return s.syntheticCurrent()
			}
			snap.Hourly = s.FetchHourly(ctx)
			log.Info("weather: using live current conditions")
			return snap
		}

		switch fail.Kind {
		case fetch.KindTimeout:
			log.Warnf("weather: current conditions timed out (budget %s)", budget)
			continue
		case fetch.KindStatus:
			// Provider rejection is authoritative, not transient.
			if fail.Status == http.StatusUnauthorized {
				log.Error("weather: api key rejected")
			}
			log.Warnf("weather: current conditions returned status %d", fail.Status)
			return s.syntheticCurrent()
		default:
			log.Warnf("weather: current conditions failed: %v", fail)
			return s.syntheticCurrent()
		}
	}

	log.Warn("weather: current conditions failed after all retries")
	return s.syntheticCurrent()
}

// FetchHourly returns the next five forecast blocks. Unlike current
// conditions, connection failures advance to the next budget, and after
// exhaustion one more attempt is made with a different client signature
// before giving up to synthetic data.
func (s *Service) FetchHourly(ctx context.Context) []HourBlock {
	for _, budget := range s.forecastBudgets {
		attemptCtx, cancel := context.WithTimeout(ctx, budget)
		body, fail := fetch.Get(attemptCtx, s.client, s.forecastURL(), nil)
		cancel()

		if fail == nil {
			blocks, err := parseHourly(body)
			if err != nil {
				log.Warnf("weather: parsing forecast: %v", err)
				continue
			}
			log.Info("weather: using live hourly forecast")
			return blocks
		}

		if fail.Kind == fetch.KindStatus {
			log.Warnf("weather: forecast returned status %d", fail.Status)
			return s.syntheticHourly()
		}
		log.Warnf("weather: forecast attempt failed (budget %s): %v", budget, fail)
	}

	log.Warn("weather: forecast failed after all retries, trying fallback request")
	if blocks := s.fallbackHourly(ctx); blocks != nil {
		return blocks
	}
	return s.syntheticHourly()
}

func (s *Service) fallbackHourly(ctx context.Context) []HourBlock {
	header := http.Header{}
	header.Set("User-Agent", fallbackUserAgent)

	budget := 40 * time.Second
	if b := s.forecastBudgets; len(b) > 0 {
		budget = b[len(b)-1]
	}

	attemptCtx, cancel := context.WithTimeout(ctx, budget)
	defer cancel()

	body, fail := fetch.Get(attemptCtx, s.client, s.forecastURL(), header)
	if fail != nil {
		log.Warnf("weather: fallback forecast request failed: %v", fail)
		return nil
	}
	blocks, err := parseHourly(body)
	if err != nil {
		log.Warnf("weather: parsing fallback forecast: %v", err)
		return nil
	}
	log.Info("weather: using live hourly forecast (fallback request)")
	return blocks
}

func (s *Service) currentURL() string {
	params := url.Values{}
	params.Set("q", s.cfg.City)
	params.Set("appid", s.apiKey)
	params.Set("units", "imperial")
	return s.cfg.CurrentURL + "?" + params.Encode()
}

func (s *Service) forecastURL() string {
	params := url.Values{}
	params.Set("q", s.cfg.City)
	params.Set("appid", s.apiKey)
	params.Set("units", "imperial")
	params.Set("cnt", fmt.Sprintf("%d", s.cfg.ForecastBlocks))
	return s.cfg.ForecastURL + "?" + params.Encode()
}

// Provider response structures
type owmCurrent struct {
	Weather []owmCondition `json:"weather"`
	Main    owmMain        `json:"main"`
	Wind    owmWind        `json:"wind"`
	Sys     *struct {
		Sunrise int64 `json:"sunrise"`
		Sunset  int64 `json:"sunset"`
	} `json:"sys"`
}

type owmForecast struct {
	List []struct {
		Dt      int64          `json:"dt"`
		Main    owmMain        `json:"main"`
		Weather []owmCondition `json:"weather"`
		Wind    owmWind        `json:"wind"`
		Pop     float64        `json:"pop"`
	} `json:"list"`
}

type owmCondition struct {
	Main        string `json:"main"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
}

type owmMain struct {
	Temp      float64  `json:"temp"`
	FeelsLike *float64 `json:"feels_like"`
	Humidity  int      `json:"humidity"`
}

type owmWind struct {
	Speed float64  `json:"speed"`
	Deg   *float64 `json:"deg"`
}

var titleCaser = cases.Title(language.AmericanEnglish)

func parseCurrent(body []byte) (Snapshot, error) {
	var data owmCurrent
	if err := json.Unmarshal(body, &data); err != nil {
		return Snapshot{}, fmt.Errorf("parsing response: %w", err)
	}
	if len(data.Weather) == 0 {
		return Snapshot{}, fmt.Errorf("response missing weather conditions")
	}

	snap := Snapshot{
		Description: titleCaser.String(data.Weather[0].Description),
		TempF:       roundF(data.Main.Temp),
		FeelsLikeF:  roundF(data.Main.Temp),
		HumidityPct: data.Main.Humidity,
		WindMph:     roundF(data.Wind.Speed),
		Icon:        data.Weather[0].Icon,
		Main:        data.Weather[0].Main,
	}
	if data.Main.FeelsLike != nil {
		snap.FeelsLikeF = roundF(*data.Main.FeelsLike)
	}
	if data.Sys != nil {
		snap.Sunrise = time.Unix(data.Sys.Sunrise, 0).Local().Format("15:04")
		snap.Sunset = time.Unix(data.Sys.Sunset, 0).Local().Format("15:04")
	}
	return snap, nil
}

func parseHourly(body []byte) ([]HourBlock, error) {
	var data owmForecast
	if err := json.Unmarshal(body, &data); err != nil {
		return nil, fmt.Errorf("parsing response: %w", err)
	}
	if len(data.List) == 0 {
		return nil, fmt.Errorf("response missing forecast blocks")
	}

	list := data.List
	if len(list) > 5 {
		list = list[:5]
	}

	blocks := make([]HourBlock, 0, len(list))
	for _, item := range list {
		if len(item.Weather) == 0 {
			continue
		}

		block := HourBlock{
			Label:       hourLabel(time.Unix(item.Dt, 0).Local()),
			TempF:       roundF(item.Main.Temp),
			FeelsLikeF:  roundF(item.Main.Temp),
			Icon:        item.Weather[0].Icon,
			Description: titleCaser.String(item.Weather[0].Description),
			PrecipProb:  item.Pop,
			HumidityPct: item.Main.Humidity,
			WindMph:     roundF(item.Wind.Speed),
		}
		if item.Main.FeelsLike != nil {
			block.FeelsLikeF = roundF(*item.Main.FeelsLike)
		}
		if item.Wind.Deg != nil {
			block.WindDir = CompassPoint(*item.Wind.Deg)
		}
		blocks = append(blocks, block)
	}
	return blocks, nil
}

// hourLabel formats a time as the "1PM" style label shown on the board
func hourLabel(t time.Time) string {
	return t.Format("3PM")
}

var compassPoints = [8]string{"N", "NE", "E", "SE", "S", "SW", "W", "NW"}

// CompassPoint maps a wind bearing in degrees to one of 8 compass points.
// Each point owns a 45° sector centered on its heading.
func CompassPoint(deg float64) string {
	idx := int(math.Mod(deg+22.5, 360) / 45)
	if idx < 0 || idx > 7 {
		idx = 0
	}
	return compassPoints[idx]
}

func roundF(v float64) int {
	return int(math.Round(v))
}
