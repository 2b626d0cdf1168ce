package board

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/commuteboard/commuteboard/internal/transit"
	"github.com/commuteboard/commuteboard/internal/weather"
)

type fakeSubway struct{ calls atomic.Int32 }

func (f *fakeSubway) FetchArrivals(ctx context.Context) transit.Directional {
	f.calls.Add(1)
	return transit.Directional{
		transit.DirUptown:   {{Minutes: 3, Clock: "08:15"}},
		transit.DirDowntown: {},
	}
}

type fakeBus struct{ calls atomic.Int32 }

func (f *fakeBus) FetchArrivals(ctx context.Context) transit.Routes {
	f.calls.Add(1)
	return transit.Routes{"M102": {{Minutes: 6, Clock: "08:18", Destination: "East Harlem"}}}
}

type fakeWeather struct{ calls atomic.Int32 }

func (f *fakeWeather) FetchCurrent(ctx context.Context) weather.Snapshot {
	f.calls.Add(1)
	return weather.Snapshot{Description: "Clear Sky", TempF: 70}
}

func newTestBoard(interval time.Duration) (*Board, *fakeSubway, *fakeBus, *fakeWeather) {
	subway := &fakeSubway{}
	bus := &fakeBus{}
	wx := &fakeWeather{}
	return New(subway, bus, wx, nil, interval), subway, bus, wx
}

func TestPollPublishesAllDomains(t *testing.T) {
	b, _, _, _ := newTestBoard(time.Hour)
	b.Poll(context.Background())

	if _, _, ok := b.Subway.Latest(); !ok {
		t.Error("subway snapshot not published")
	}
	if _, _, ok := b.Bus.Latest(); !ok {
		t.Error("bus snapshot not published")
	}
	if snap, _, ok := b.Weather.Latest(); !ok || snap.TempF != 70 {
		t.Errorf("weather snapshot not published: %+v", snap)
	}

	select {
	case <-b.Updates():
	default:
		t.Error("no update signal after poll")
	}
}

func TestRunPollsImmediately(t *testing.T) {
	b, subway, bus, wx := newTestBoard(time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		b.Run(ctx)
		close(done)
	}()

	select {
	case <-b.Updates():
	case <-time.After(time.Second):
		t.Fatal("no poll within a second of Run")
	}

	cancel()
	<-done

	if subway.calls.Load() != 1 || bus.calls.Load() != 1 || wx.calls.Load() != 1 {
		t.Errorf("calls = %d/%d/%d, want 1 each",
			subway.calls.Load(), bus.calls.Load(), wx.calls.Load())
	}
}

func TestRefreshTriggersOutOfBandPoll(t *testing.T) {
	b, subway, _, _ := newTestBoard(time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		b.Run(ctx)
		close(done)
	}()

	<-b.Updates() // initial poll
	b.Refresh()
	select {
	case <-b.Updates():
	case <-time.After(time.Second):
		t.Fatal("no poll after Refresh")
	}

	cancel()
	<-done

	if got := subway.calls.Load(); got != 2 {
		t.Errorf("subway calls = %d, want 2", got)
	}
}

func TestRefreshIsCoalesced(t *testing.T) {
	b, _, _, _ := newTestBoard(time.Hour)

	// Without a running poll loop, repeated refresh requests collapse into
	// one pending signal.
	b.Refresh()
	b.Refresh()
	b.Refresh()

	if got := len(b.refresh); got != 1 {
		t.Errorf("pending refresh signals = %d, want 1", got)
	}
}
