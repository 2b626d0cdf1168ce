package transit

import (
	"context"
	"math"
	"math/rand"
	"net/http"
	"time"

	"github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"google.golang.org/protobuf/proto"

	"github.com/commuteboard/commuteboard/internal/config"
	"github.com/commuteboard/commuteboard/internal/fetch"
	"github.com/commuteboard/commuteboard/internal/log"
)

// SubwayService fetches real-time train arrivals for one route at one
// station from a chain of GTFS-RT sources.
type SubwayService struct {
	cfg     config.SubwayConfig
	apiKey  string
	useMock bool
	adjust  int
	client  *http.Client
}

// NewSubwayService creates a new subway service
func NewSubwayService(cfg *config.Config) *SubwayService {
	return &SubwayService{
		cfg:     cfg.Subway,
		apiKey:  cfg.SubwayAPIKey,
		useMock: cfg.UseMockData,
		adjust:  cfg.Subway.DisplayAdjustMinutes(),
		client:  &http.Client{Timeout: cfg.HTTPTimeout()},
	}
}

// FetchArrivals returns upcoming arrivals for both directions. It never
// fails outward: when every source in the chain is exhausted it returns
// synthetic data instead.
func (s *SubwayService) FetchArrivals(ctx context.Context) Directional {
	if s.useMock {
		log.Info("subway: mock data forced by environment")
		return s.syntheticArrivals()
	}

	if arrivals := s.tryPrimary(ctx); arrivals != nil {
		return arrivals
	}
	if arrivals := s.tryAlternates(ctx); arrivals != nil {
		return arrivals
	}

	log.Warn("subway: all sources failed, using synthetic data")
	return s.syntheticArrivals()
}

// tryPrimary attempts the main feed, authenticated first when a key is
// configured. A 403 on the authenticated attempt retries the same endpoint
// without credentials; any other failure hands off to the alternates.
func (s *SubwayService) tryPrimary(ctx context.Context) Directional {
	if s.apiKey != "" {
		header := http.Header{}
		header.Set("x-api-key", s.apiKey)

		body, fail := fetch.Get(ctx, s.client, s.cfg.FeedURL, header)
		switch {
		case fail == nil:
			if arrivals := s.decodeFeed(body); arrivals != nil {
				log.Info("subway: using primary feed (authenticated)")
				return arrivals
			}
		case fail.Kind == fetch.KindStatus && fail.Status == http.StatusForbidden:
			log.Warn("subway: api key rejected, retrying without authentication")
		default:
			log.Warnf("subway: primary feed failed: %v", fail)
			return nil
		}
	}

	body, fail := fetch.Get(ctx, s.client, s.cfg.FeedURL, nil)
	if fail != nil {
		log.Warnf("subway: primary feed failed: %v", fail)
		return nil
	}
	if arrivals := s.decodeFeed(body); arrivals != nil {
		log.Info("subway: using primary feed (public access)")
		return arrivals
	}
	return nil
}

// tryAlternates walks the fallback endpoints in configured order, stopping
// at the first that decodes to a non-empty result.
func (s *SubwayService) tryAlternates(ctx context.Context) Directional {
	for _, feed := range s.cfg.AlternateFeeds {
		body, fail := fetch.Get(ctx, s.client, feed.URL, nil)
		if fail != nil {
			log.Warnf("subway: alternate feed %s failed: %v", feed.Name, fail)
			continue
		}
		if arrivals := s.decodeFeed(body); arrivals != nil {
			log.Infof("subway: using alternate feed %s", feed.Name)
			return arrivals
		}
	}
	return nil
}

// decodeFeed parses a GTFS-RT payload; nil means unusable (malformed or no
// matching arrivals) so the chain moves on.
func (s *SubwayService) decodeFeed(body []byte) Directional {
	feed := &gtfs.FeedMessage{}
	if err := proto.Unmarshal(body, feed); err != nil {
		log.Warnf("subway: parsing protobuf: %v", err)
		return nil
	}
	return s.parseArrivals(feed)
}

func (s *SubwayService) parseArrivals(feed *gtfs.FeedMessage) Directional {
	arrivals := Directional{}
	for dir := range s.cfg.Stops {
		arrivals[dir] = []Arrival{}
	}

	now := time.Now()
	found := false

	for _, entity := range feed.GetEntity() {
		tripUpdate := entity.GetTripUpdate()
		if tripUpdate == nil {
			continue
		}

		trip := tripUpdate.GetTrip()
		if trip.GetRouteId() != s.cfg.Route {
			continue
		}
		// Only trips the feed is actively tracking; anything else is static
		// schedule data.
		if trip.GetScheduleRelationship() != gtfs.TripDescriptor_SCHEDULED {
			continue
		}

		for _, stopTimeUpdate := range tripUpdate.GetStopTimeUpdate() {
			direction, ok := s.directionFor(stopTimeUpdate.GetStopId())
			if !ok {
				continue
			}

			ts := stopTimeUpdate.GetArrival().GetTime()
			if ts == 0 {
				ts = stopTimeUpdate.GetDeparture().GetTime()
			}
			if ts == 0 {
				continue
			}

			offset := time.Duration(s.cfg.OffsetMinutes[direction]) * time.Minute
			corrected := time.Unix(ts, 0).Add(offset)
			if corrected.Before(now) {
				continue
			}

			minutes := int(math.Round(corrected.Sub(now).Seconds() / 60))
			if minutes > 0 {
				minutes -= s.adjust
			}
			if minutes < 0 {
				continue
			}

			arrivals[direction] = append(arrivals[direction], Arrival{
				Minutes: minutes,
				Clock:   clock(corrected),
			})
			found = true
		}
	}

	if !found {
		return nil
	}
	for direction := range arrivals {
		arrivals[direction] = topThree(arrivals[direction])
	}
	return arrivals
}

func (s *SubwayService) directionFor(stopID string) (string, bool) {
	for direction, id := range s.cfg.Stops {
		if id == stopID {
			return direction, true
		}
	}
	return "", false
}

// syntheticArrivals generates placeholder data: three arrivals per
// direction with strictly increasing minutes away.
func (s *SubwayService) syntheticArrivals() Directional {
	arrivals := Directional{}
	base := time.Now().Truncate(time.Minute)

	for direction := range s.cfg.Stops {
		list := make([]Arrival, 0, 3)
		prev := -1
		for i := 0; i < 3; i++ {
			minutes := 2 + rand.Intn(14) + i*5
			if minutes <= prev {
				minutes = prev + 1
			}
			prev = minutes

			list = append(list, Arrival{
				Minutes: minutes,
				Clock:   clock(base.Add(time.Duration(minutes) * time.Minute)),
			})
		}
		arrivals[direction] = list
	}
	return arrivals
}
