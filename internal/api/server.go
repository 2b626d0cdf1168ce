// Package api exposes the latest snapshots over HTTP as JSON, for remote
// displays that render the board themselves.
package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/commuteboard/commuteboard/internal/board"
	"github.com/commuteboard/commuteboard/internal/log"
	"github.com/commuteboard/commuteboard/internal/transit"
	"github.com/commuteboard/commuteboard/internal/weather"
)

// NewServer creates an HTTP server serving the board state.
func NewServer(addr string, b *board.Board) *http.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", getOnly(handleHealth))
	mux.HandleFunc("/board", getOnly(handleBoard(b)))

	return &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

// getOnly restricts a handler to GET requests, matching the behavior of the
// "GET /path" ServeMux patterns that require Go 1.22+.
func getOnly(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.Header().Set("Allow", http.MethodGet)
			http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
			return
		}
		h(w, r)
	}
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	response := struct {
		Status    string `json:"status"`
		Timestamp string `json:"timestamp"`
	}{
		Status:    "OK",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	writeJSON(w, http.StatusOK, response)
}

// boardResponse is the full board state with per-domain publish times
type boardResponse struct {
	Subway    transit.Directional `json:"subway"`
	SubwayAt  *time.Time          `json:"subway_updated_at,omitempty"`
	Bus       transit.Routes      `json:"bus"`
	BusAt     *time.Time          `json:"bus_updated_at,omitempty"`
	Weather   *weather.Snapshot   `json:"weather,omitempty"`
	WeatherAt *time.Time          `json:"weather_updated_at,omitempty"`
	Alerts    []transit.Alert     `json:"alerts,omitempty"`
}

func handleBoard(b *board.Board) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var response boardResponse

		if arrivals, at, ok := b.Subway.Latest(); ok {
			response.Subway = arrivals
			response.SubwayAt = &at
		}
		if routes, at, ok := b.Bus.Latest(); ok {
			response.Bus = routes
			response.BusAt = &at
		}
		if snap, at, ok := b.Weather.Latest(); ok {
			response.Weather = &snap
			response.WeatherAt = &at
		}
		if alerts, _, ok := b.Alerts.Latest(); ok {
			response.Alerts = alerts
		}

		writeJSON(w, http.StatusOK, response)
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Errorf("encoding JSON response: %v", err)
	}
}
