// Package display renders the latest snapshots to a terminal.
package display

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/commuteboard/commuteboard/internal/board"
	"github.com/commuteboard/commuteboard/internal/transit"
)

// weatherEmoji maps provider icon codes to terminal glyphs
var weatherEmoji = map[string]string{
	"01d": "☀️", "01n": "🌙",
	"02d": "⛅", "02n": "☁️",
	"03d": "☁️", "03n": "☁️",
	"04d": "☁️", "04n": "☁️",
	"09d": "🌦️", "09n": "🌦️",
	"10d": "🌧️", "10n": "🌧️",
	"11d": "⛈️", "11n": "⛈️",
	"13d": "❄️", "13n": "❄️",
	"50d": "🌫️", "50n": "🌫️",
}

// Emoji returns the glyph for a provider icon code
func Emoji(icon string) string {
	if e, ok := weatherEmoji[icon]; ok {
		return e
	}
	return "🌡️"
}

// Terminal renders the whole board as text.
type Terminal struct {
	Out io.Writer

	// Clear controls whether the screen is wiped before each render.
	Clear bool
}

// Render draws the header and all data blocks from the board's latest
// snapshots.
func (t *Terminal) Render(b *board.Board) {
	if t.Clear {
		fmt.Fprint(t.Out, "\033[2J\033[H")
	}

	now := time.Now()
	fmt.Fprintln(t.Out, "🏙️  COMMUTEBOARD")
	fmt.Fprintln(t.Out, strings.Repeat("=", 40))
	fmt.Fprintf(t.Out, "📅 %s\n", now.Format("Monday, January 2, 2006"))
	fmt.Fprintf(t.Out, "⏰ %s\n", now.Format("3:04:05 PM"))

	t.renderAlerts(b)
	t.renderWeather(b)
	t.renderSubway(b)
	t.renderBus(b)
}

func (t *Terminal) renderAlerts(b *board.Board) {
	alerts, _, ok := b.Alerts.Latest()
	if !ok || len(alerts) == 0 {
		return
	}
	fmt.Fprintln(t.Out)
	for _, alert := range alerts {
		fmt.Fprintf(t.Out, "⚠️  %s\n", alert.Header)
	}
}

func (t *Terminal) renderWeather(b *board.Board) {
	weather, _, ok := b.Weather.Latest()
	if !ok {
		return
	}

	fmt.Fprintln(t.Out, "\n🌤️  WEATHER")
	fmt.Fprintln(t.Out, strings.Repeat("=", 30))
	fmt.Fprintf(t.Out, "Conditions: %s %s\n", weather.Description, Emoji(weather.Icon))
	fmt.Fprintf(t.Out, "Temperature: %d°F (feels like %d°F)\n", weather.TempF, weather.FeelsLikeF)
	fmt.Fprintf(t.Out, "Humidity: %d%%\n", weather.HumidityPct)
	fmt.Fprintf(t.Out, "Wind: %d mph\n", weather.WindMph)
	if weather.Sunrise != "" && weather.Sunset != "" {
		fmt.Fprintf(t.Out, "Sunrise: %s | Sunset: %s\n", weather.Sunrise, weather.Sunset)
	}

	if len(weather.Hourly) > 0 {
		fmt.Fprintln(t.Out)
		for _, hour := range weather.Hourly {
			wind := fmt.Sprintf("%d mph", hour.WindMph)
			if hour.WindDir != "" {
				wind = fmt.Sprintf("%d mph %s", hour.WindMph, hour.WindDir)
			}
			fmt.Fprintf(t.Out, "  %-4s %s %d°F  rain %.0f%%  %s\n",
				hour.Label, Emoji(hour.Icon), hour.TempF, hour.PrecipProb*100, wind)
		}
	}
}

func (t *Terminal) renderSubway(b *board.Board) {
	arrivals, _, ok := b.Subway.Latest()
	if !ok {
		return
	}

	fmt.Fprintln(t.Out, "\n🚇 SUBWAY")
	fmt.Fprintln(t.Out, strings.Repeat("=", 30))

	t.renderDirection(arrivals, transit.DirUptown, "UPTOWN")
	t.renderDirection(arrivals, transit.DirDowntown, "DOWNTOWN")
}

func (t *Terminal) renderDirection(arrivals transit.Directional, direction, title string) {
	fmt.Fprintf(t.Out, "%s:\n", title)
	if len(arrivals[direction]) == 0 {
		fmt.Fprintln(t.Out, "  No upcoming trains")
		return
	}
	for _, arrival := range arrivals[direction] {
		fmt.Fprintf(t.Out, "  %d min (%s)\n", arrival.Minutes, arrival.Clock)
	}
}

func (t *Terminal) renderBus(b *board.Board) {
	routes, _, ok := b.Bus.Latest()
	if !ok {
		return
	}

	fmt.Fprintln(t.Out, "\n🚌 BUSES")
	fmt.Fprintln(t.Out, strings.Repeat("=", 30))

	for _, route := range sortedRoutes(routes) {
		fmt.Fprintf(t.Out, "%s:\n", route)
		if len(routes[route]) == 0 {
			fmt.Fprintln(t.Out, "  No upcoming buses")
			continue
		}
		for _, arrival := range routes[route] {
			dest := arrival.Destination
			if len(dest) > 20 {
				dest = dest[:20] + "..."
			}
			if dest != "" {
				fmt.Fprintf(t.Out, "  %d min (%s) → %s\n", arrival.Minutes, arrival.Clock, dest)
			} else {
				fmt.Fprintf(t.Out, "  %d min (%s)\n", arrival.Minutes, arrival.Clock)
			}
		}
	}
}

func sortedRoutes(routes transit.Routes) []string {
	names := make([]string, 0, len(routes))
	for name := range routes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
