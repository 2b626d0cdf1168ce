package transit

import (
	"context"
	"net/http"
	"time"

	"github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"google.golang.org/protobuf/proto"

	"github.com/commuteboard/commuteboard/internal/config"
	"github.com/commuteboard/commuteboard/internal/fetch"
	"github.com/commuteboard/commuteboard/internal/log"
)

// Alert is an active service alert affecting the tracked route
type Alert struct {
	Header      string `json:"header"`
	Description string `json:"description,omitempty"`
}

// AlertService fetches service alerts for the tracked subway route.
type AlertService struct {
	feedURL string
	route   string
	client  *http.Client
}

// NewAlertService creates a new alert service; it returns nil when no
// alerts feed is configured.
func NewAlertService(cfg *config.Config) *AlertService {
	if cfg.Subway.AlertsURL == "" {
		return nil
	}
	return &AlertService{
		feedURL: cfg.Subway.AlertsURL,
		route:   cfg.Subway.Route,
		client:  &http.Client{Timeout: cfg.HTTPTimeout()},
	}
}

// FetchAlerts returns currently active alerts mentioning the tracked route.
// Failures degrade to an empty list; the board shows no banner rather than
// an error.
func (s *AlertService) FetchAlerts(ctx context.Context) []Alert {
	body, fail := fetch.Get(ctx, s.client, s.feedURL, nil)
	if fail != nil {
		log.Warnf("alerts: feed failed: %v", fail)
		return nil
	}

	feed := &gtfs.FeedMessage{}
	if err := proto.Unmarshal(body, feed); err != nil {
		log.Warnf("alerts: parsing protobuf: %v", err)
		return nil
	}

	return s.parseAlerts(feed)
}

func (s *AlertService) parseAlerts(feed *gtfs.FeedMessage) []Alert {
	var alerts []Alert
	now := time.Now().Unix()

	for _, entity := range feed.GetEntity() {
		alert := entity.GetAlert()
		if alert == nil {
			continue
		}

		// No active period means always active.
		active := len(alert.GetActivePeriod()) == 0
		for _, period := range alert.GetActivePeriod() {
			start := int64(period.GetStart())
			end := int64(period.GetEnd())
			if now >= start && (end == 0 || now < end) {
				active = true
				break
			}
		}
		if !active {
			continue
		}

		mentionsRoute := false
		for _, informed := range alert.GetInformedEntity() {
			if informed.GetRouteId() == s.route {
				mentionsRoute = true
				break
			}
		}
		if !mentionsRoute {
			continue
		}

		header := translatedText(alert.GetHeaderText())
		if header == "" {
			continue
		}

		alerts = append(alerts, Alert{
			Header:      header,
			Description: translatedText(alert.GetDescriptionText()),
		})
	}

	return alerts
}

func translatedText(ts *gtfs.TranslatedString) string {
	if ts == nil {
		return ""
	}
	for _, t := range ts.GetTranslation() {
		if t.GetLanguage() == "en" || t.GetLanguage() == "" {
			return t.GetText()
		}
	}
	if len(ts.GetTranslation()) > 0 {
		return ts.GetTranslation()[0].GetText()
	}
	return ""
}
