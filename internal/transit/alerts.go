package transit

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"google.golang.org/protobuf/proto"

	"github.com/randytsao24/stopfinder/internal/cache"
	"github.com/randytsao24/stopfinder/internal/metrics"
)

// ErrNoAlertsFeed is returned when neither a feed URL nor a fallback source is configured
var ErrNoAlertsFeed = errors.New("alerts feed not configured")

const alertsKey = "all"

// ServiceAlert is an active service alert
type ServiceAlert struct {
	ID          string   `json:"id"`
	Routes      []string `json:"routes"`
	Header      string   `json:"header"`
	Description string   `json:"description"`
}

// AlertSource supplies alerts when no GTFS-realtime feed is configured
type AlertSource interface {
	ActiveAlerts(ctx context.Context, filter AlertFilter) ([]ServiceAlert, error)
}

// AlertService fetches and caches service alerts from a GTFS-realtime feed,
// or from a fallback source such as BT4U when the feed URL is empty.
type AlertService struct {
	feedURL  string
	fallback AlertSource
	client   *http.Client
	cache    *cache.Cache[string, []ServiceAlert]
	now      func() time.Time
}

// NewAlertService creates an alert service reading feedURL
func NewAlertService(feedURL string, timeout time.Duration, cacheTTL time.Duration) *AlertService {
	return &AlertService{
		feedURL: feedURL,
		client:  &http.Client{Timeout: timeout},
		cache:   cache.New[string, []ServiceAlert](cacheTTL),
		now:     time.Now,
	}
}

// WithFallback sets the source used when no feed URL is configured
func (s *AlertService) WithFallback(src AlertSource) *AlertService {
	s.fallback = src
	return s
}

// Enabled reports whether a feed or fallback source is configured
func (s *AlertService) Enabled() bool {
	return s.feedURL != "" || s.fallback != nil
}

// Close stops the cache sweeper
func (s *AlertService) Close() {
	s.cache.Close()
}

// GetAlerts returns active service alerts, optionally filtered by route.
// Route names match case-insensitively.
func (s *AlertService) GetAlerts(ctx context.Context, routes []string) ([]ServiceAlert, error) {
	allAlerts, err := s.fetchAlerts(ctx)
	if err != nil {
		return nil, err
	}

	if len(routes) == 0 {
		return allAlerts, nil
	}

	routeSet := make(map[string]bool, len(routes))
	for _, r := range routes {
		routeSet[strings.ToLower(strings.TrimSpace(r))] = true
	}

	filtered := []ServiceAlert{}
	for _, alert := range allAlerts {
		for _, r := range alert.Routes {
			if routeSet[strings.ToLower(r)] {
				filtered = append(filtered, alert)
				break
			}
		}
	}
	return filtered, nil
}

func (s *AlertService) fetchAlerts(ctx context.Context) ([]ServiceAlert, error) {
	if !s.Enabled() {
		return nil, ErrNoAlertsFeed
	}
	if cached, ok := s.cache.Get(alertsKey); ok {
		return cached, nil
	}

	if s.feedURL == "" {
		alerts, err := s.fallback.ActiveAlerts(ctx, AlertFilter{})
		if err != nil {
			return nil, err
		}
		s.cache.Set(alertsKey, alerts)
		return alerts, nil
	}

	feed, err := s.fetchFeed(ctx)
	metrics.ObserveCall("alerts", "feed", err)
	if err != nil {
		return nil, err
	}

	alerts := s.parseAlerts(feed)
	s.cache.Set(alertsKey, alerts)
	return alerts, nil
}

func (s *AlertService) fetchFeed(ctx context.Context) (*gtfs.FeedMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.feedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("building alerts request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, &UnavailableError{Op: "alerts", Err: fmt.Errorf("fetching alerts feed: %w", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &UnavailableError{Op: "alerts", StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &UnavailableError{Op: "alerts", Err: fmt.Errorf("reading alerts response: %w", err)}
	}

	feed := &gtfs.FeedMessage{}
	if err := proto.Unmarshal(body, feed); err != nil {
		return nil, &UnavailableError{Op: "alerts", Err: fmt.Errorf("parsing alerts protobuf: %w", err)}
	}
	return feed, nil
}

func (s *AlertService) parseAlerts(feed *gtfs.FeedMessage) []ServiceAlert {
	alerts := []ServiceAlert{}
	now := s.now().Unix()

	for _, entity := range feed.GetEntity() {
		alert := entity.GetAlert()
		if alert == nil || entity.GetIsDeleted() {
			continue
		}

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

		var routes []string
		seen := make(map[string]bool)
		for _, ie := range alert.GetInformedEntity() {
			if routeID := ie.GetRouteId(); routeID != "" && !seen[routeID] {
				seen[routeID] = true
				routes = append(routes, routeID)
			}
		}

		header := translatedText(alert.GetHeaderText())
		if header == "" {
			continue
		}

		alerts = append(alerts, ServiceAlert{
			ID:          entity.GetId(),
			Routes:      routes,
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
