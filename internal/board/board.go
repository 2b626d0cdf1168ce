// Package board runs the polling loop that drives the three acquirers and
// publishes their snapshots for renderers.
package board

import (
	"context"
	"time"

	"github.com/commuteboard/commuteboard/internal/snapshot"
	"github.com/commuteboard/commuteboard/internal/transit"
	"github.com/commuteboard/commuteboard/internal/weather"
)

// SubwayFetcher provides subway arrivals
type SubwayFetcher interface {
	FetchArrivals(ctx context.Context) transit.Directional
}

// BusFetcher provides bus arrivals
type BusFetcher interface {
	FetchArrivals(ctx context.Context) transit.Routes
}

// WeatherFetcher provides the weather snapshot
type WeatherFetcher interface {
	FetchCurrent(ctx context.Context) weather.Snapshot
}

// AlertFetcher provides the subway alert banner
type AlertFetcher interface {
	FetchAlerts(ctx context.Context) []transit.Alert
}

// Board owns the acquirers and the latest snapshot per domain. Poll runs in
// a single goroutine, so the acquirers are never invoked concurrently;
// renderers read the holders.
type Board struct {
	subway   SubwayFetcher
	bus      BusFetcher
	weather  WeatherFetcher
	alerts   AlertFetcher
	interval time.Duration

	Subway  *snapshot.Holder[transit.Directional]
	Bus     *snapshot.Holder[transit.Routes]
	Weather *snapshot.Holder[weather.Snapshot]
	Alerts  *snapshot.Holder[[]transit.Alert]

	refresh chan struct{}
	updates chan struct{}
}

// New creates a board; alerts may be nil when no alerts feed is configured.
func New(subway SubwayFetcher, bus BusFetcher, weatherFetcher WeatherFetcher, alerts AlertFetcher, interval time.Duration) *Board {
	return &Board{
		subway:   subway,
		bus:      bus,
		weather:  weatherFetcher,
		alerts:   alerts,
		interval: interval,
		Subway:   snapshot.New[transit.Directional](),
		Bus:      snapshot.New[transit.Routes](),
		Weather:  snapshot.New[weather.Snapshot](),
		Alerts:   snapshot.New[[]transit.Alert](),
		refresh:  make(chan struct{}, 1),
		updates:  make(chan struct{}, 1),
	}
}

// Run polls immediately and then on every tick until ctx is cancelled.
func (b *Board) Run(ctx context.Context) {
	b.Poll(ctx)

	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			b.Poll(ctx)
		case <-b.refresh:
			b.Poll(ctx)
		}
	}
}

// Poll invokes the acquirers sequentially and publishes their snapshots.
func (b *Board) Poll(ctx context.Context) {
	b.Weather.Publish(b.weather.FetchCurrent(ctx))
	b.Subway.Publish(b.subway.FetchArrivals(ctx))
	b.Bus.Publish(b.bus.FetchArrivals(ctx))
	if b.alerts != nil {
		b.Alerts.Publish(b.alerts.FetchAlerts(ctx))
	}

	select {
	case b.updates <- struct{}{}:
	default:
	}
}

// Refresh requests an out-of-band poll. It is advisory: the signal is
// dropped when a refresh is already pending, and it never runs a poll
// concurrently with a scheduled one.
func (b *Board) Refresh() {
	select {
	case b.refresh <- struct{}{}:
	default:
	}
}

// Updates signals after each completed poll so renderers can redraw
func (b *Board) Updates() <-chan struct{} {
	return b.updates
}
