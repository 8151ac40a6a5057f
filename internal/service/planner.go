// Package service holds the start location between requests and runs the
// schedule-to-route pipeline for the API and CLI.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/randytsao24/stopfinder/internal/geocode"
	"github.com/randytsao24/stopfinder/internal/models"
	"github.com/randytsao24/stopfinder/internal/route"
	"github.com/randytsao24/stopfinder/internal/schedule"
)

// ErrUnresolved means the start address could not be geocoded
var ErrUnresolved = errors.New("address could not be geocoded")

// InputError reports a start location the caller must correct
type InputError struct {
	Err error
}

func (e *InputError) Error() string {
	return "invalid start location: " + e.Err.Error()
}

func (e *InputError) Unwrap() error {
	return e.Err
}

// Geocoder attaches coordinates to an address
type Geocoder interface {
	Attach(ctx context.Context, addr models.Address) models.Address
}

// RouteFinder resolves a schedule into nearest stops
type RouteFinder interface {
	FindRoute(ctx context.Context, schedule *models.Schedule) (*models.RouteResult, error)
}

// Upload is a calendar as received from a client
type Upload struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Planner keeps the current start location and answers route requests
type Planner struct {
	geocoder Geocoder
	parser   *schedule.Parser
	routes   RouteFinder
	logger   *slog.Logger

	mu    sync.RWMutex
	start *models.Address
}

// NewPlanner creates a planner with no start location
func NewPlanner(geocoder Geocoder, parser *schedule.Parser, routes RouteFinder, logger *slog.Logger) *Planner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Planner{
		geocoder: geocoder,
		parser:   parser,
		routes:   routes,
		logger:   logger,
	}
}

// SetStartLocation parses "Street, City, State, ZIP, Country", geocodes it and
// makes it the start location. The previous start is kept on failure.
func (p *Planner) SetStartLocation(ctx context.Context, freeText string) (models.Address, error) {
	addr, err := geocode.ParseFreeText(freeText)
	if err != nil {
		return models.Address{}, &InputError{Err: err}
	}

	addr = p.geocoder.Attach(ctx, addr)
	if !addr.Resolved() {
		return models.Address{}, &InputError{Err: fmt.Errorf("%w: %q", ErrUnresolved, addr.String())}
	}

	p.setStart(addr)
	return addr, nil
}

// SetStartCoordinates makes an already-resolved position the start location.
// label becomes the start entry's key in route results.
func (p *Planner) SetStartCoordinates(label string, lat, lon float64) (models.Address, error) {
	label = strings.TrimSpace(label)
	if label == "" {
		return models.Address{}, &InputError{Err: errors.New("label is required")}
	}
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return models.Address{}, &InputError{Err: fmt.Errorf("coordinates %f, %f out of range", lat, lon)}
	}

	addr := models.Address{Street: label}.WithCoordinates(models.Coordinates{Lat: lat, Lon: lon})
	if !addr.Resolved() {
		return models.Address{}, &InputError{Err: ErrUnresolved}
	}

	p.setStart(addr)
	return addr, nil
}

// Start returns the current start location
func (p *Planner) Start() (models.Address, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.start == nil {
		return models.Address{}, false
	}
	return *p.start, true
}

func (p *Planner) setStart(addr models.Address) {
	p.mu.Lock()
	p.start = &addr
	p.mu.Unlock()
	p.logger.Info("start location set", "street", addr.Street, "lat", addr.Latitude, "lon", addr.Longitude)
}

// GetRoute parses an uploaded calendar and resolves it from the current start
// location.
func (p *Planner) GetRoute(ctx context.Context, upload Upload) (*models.RouteResult, error) {
	start, ok := p.Start()
	if !ok {
		return nil, &route.PreconditionError{Reason: "start location not set"}
	}

	courses, err := p.parser.ParseUpload(upload.Filename, upload.ContentType, upload.Data)
	if err != nil {
		return nil, err
	}

	return p.routes.FindRoute(ctx, &models.Schedule{Start: &start, Courses: courses})
}
