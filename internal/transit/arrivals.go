// Package transit fetches and normalizes real-time subway and bus arrivals.
package transit

import (
	"sort"
	"time"
)

// Direction names used as keys in Directional results.
const (
	DirUptown   = "uptown"
	DirDowntown = "downtown"
)

// Arrival represents one upcoming train or bus arrival. Records are built
// fresh on every acquisition cycle and never mutated.
type Arrival struct {
	Minutes     int    `json:"minutes"`
	Clock       string `json:"time"`
	Destination string `json:"destination,omitempty"`
}

// Directional maps a direction name to its upcoming arrivals, ascending by
// minutes away, at most three per direction.
type Directional map[string][]Arrival

// Routes maps a bus route name to its upcoming arrivals, ascending by
// minutes away, at most three per route.
type Routes map[string][]Arrival

// topThree sorts arrivals ascending by minutes away and keeps the first 3
func topThree(arrivals []Arrival) []Arrival {
	sort.Slice(arrivals, func(i, j int) bool {
		return arrivals[i].Minutes < arrivals[j].Minutes
	})
	if len(arrivals) > 3 {
		arrivals = arrivals[:3]
	}
	return arrivals
}

// clock formats a timestamp as the local HH:MM string shown on the board
func clock(t time.Time) string {
	return t.Local().Format("15:04")
}
