// Package geocode turns postal addresses into coordinates using a
// maps.co-compatible search endpoint.
package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/randytsao24/stopfinder/internal/cache"
	"github.com/randytsao24/stopfinder/internal/metrics"
	"github.com/randytsao24/stopfinder/internal/models"
)

// Service resolves addresses against the geocoding API. Failures never
// surface as errors: the caller gets models.Unresolved instead.
type Service struct {
	baseURL string
	apiKey  string
	client  *http.Client
	memo    *cache.Cache[string, models.Coordinates]
	logger  *slog.Logger
}

// NewService creates a geocoder. Successful lookups are memoized for cacheTTL.
func NewService(baseURL, apiKey string, timeout, cacheTTL time.Duration, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: timeout},
		memo:    cache.New[string, models.Coordinates](cacheTTL),
		logger:  logger,
	}
}

// Close releases the memo cache
func (s *Service) Close() {
	s.memo.Close()
}

// Resolve returns the coordinates of addr, or models.Unresolved
func (s *Service) Resolve(ctx context.Context, addr models.Address) models.Coordinates {
	query := addr.String()
	return s.memo.GetOrLoad(query, func() models.Coordinates {
		c, err := s.lookup(ctx, query)
		metrics.ObserveCall("geocode", "search", err)
		if err != nil {
			s.logger.Warn("geocoding failed", "address", query, "error", err)
			return models.Unresolved
		}
		return c
	}, func(c models.Coordinates) bool { return !c.IsZero() })
}

// Attach returns addr with its coordinates filled in
func (s *Service) Attach(ctx context.Context, addr models.Address) models.Address {
	return addr.WithCoordinates(s.Resolve(ctx, addr))
}

type candidate struct {
	Lat string `json:"lat"`
	Lon string `json:"lon"`
}

func (s *Service) lookup(ctx context.Context, query string) (models.Coordinates, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("api_key", s.apiKey)
	params.Set("format", "json")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return models.Unresolved, fmt.Errorf("building request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return models.Unresolved, fmt.Errorf("fetching geocode: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return models.Unresolved, fmt.Errorf("geocoder returned status %d", resp.StatusCode)
	}

	var candidates []candidate
	if err := json.NewDecoder(resp.Body).Decode(&candidates); err != nil {
		return models.Unresolved, fmt.Errorf("parsing response: %w", err)
	}
	if len(candidates) == 0 {
		return models.Unresolved, fmt.Errorf("no results")
	}

	lat, err := strconv.ParseFloat(candidates[0].Lat, 64)
	if err != nil {
		return models.Unresolved, fmt.Errorf("parsing lat: %w", err)
	}
	lon, err := strconv.ParseFloat(candidates[0].Lon, 64)
	if err != nil {
		return models.Unresolved, fmt.Errorf("parsing lon: %w", err)
	}
	return models.Coordinates{Lat: lat, Lon: lon}, nil
}
