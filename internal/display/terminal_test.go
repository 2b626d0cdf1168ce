package display_test

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/commuteboard/commuteboard/internal/board"
	"github.com/commuteboard/commuteboard/internal/display"
	"github.com/commuteboard/commuteboard/internal/transit"
	"github.com/commuteboard/commuteboard/internal/weather"
)

type stubSubway struct{}

func (stubSubway) FetchArrivals(ctx context.Context) transit.Directional {
	return transit.Directional{
		transit.DirUptown:   {{Minutes: 3, Clock: "08:15"}},
		transit.DirDowntown: {},
	}
}

type stubBus struct{}

func (stubBus) FetchArrivals(ctx context.Context) transit.Routes {
	return transit.Routes{
		"M102": {{Minutes: 5, Clock: "08:17", Destination: "A Very Long Destination Name Indeed"}},
		"M103": {},
	}
}

type stubWeather struct{}

func (stubWeather) FetchCurrent(ctx context.Context) weather.Snapshot {
	return weather.Snapshot{
		Description: "Scattered Clouds",
		TempF:       72,
		FeelsLikeF:  75,
		HumidityPct: 65,
		WindMph:     8,
		Icon:        "03d",
		Sunrise:     "06:30",
		Sunset:      "19:45",
		Hourly: []weather.HourBlock{
			{Label: "1PM", TempF: 73, Icon: "01d", PrecipProb: 0.2, WindMph: 7, WindDir: "NW"},
		},
	}
}

func TestRender(t *testing.T) {
	b := board.New(stubSubway{}, stubBus{}, stubWeather{}, nil, time.Hour)
	b.Poll(context.Background())

	var out bytes.Buffer
	term := &display.Terminal{Out: &out}
	term.Render(b)

	text := out.String()
	for _, want := range []string{
		"UPTOWN",
		"3 min (08:15)",
		"No upcoming trains",
		"M102",
		"No upcoming buses",
		"Scattered Clouds",
		"72°F (feels like 75°F)",
		"Sunrise: 06:30 | Sunset: 19:45",
		"1PM",
		"7 mph NW",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("render output missing %q", want)
		}
	}

	// Long destinations are truncated with an ellipsis.
	if !strings.Contains(text, "A Very Long Destinat...") {
		t.Errorf("destination not truncated:\n%s", text)
	}
}

func TestEmoji(t *testing.T) {
	if got := display.Emoji("01d"); got != "☀️" {
		t.Errorf("Emoji(01d) = %q", got)
	}
	if got := display.Emoji("unknown"); got != "🌡️" {
		t.Errorf("Emoji(unknown) = %q, want the fallback glyph", got)
	}
}
