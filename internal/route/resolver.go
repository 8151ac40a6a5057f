// Package route resolves a schedule into the nearest transit stop for the
// start location and for each class building.
package route

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/randytsao24/stopfinder/internal/metrics"
	"github.com/randytsao24/stopfinder/internal/models"
)

// Reasons a course is left out of a result
const (
	SkipNoBuilding      = "no_building"
	SkipUnknownBuilding = "unknown_building"
	SkipTransitError    = "transit_error"
)

// PreconditionError means FindRoute was called before its inputs were ready
type PreconditionError struct {
	Reason string
}

func (e *PreconditionError) Error() string {
	return "precondition failed: " + e.Reason
}

// StopFinder looks up the transit stops nearest a point
type StopFinder interface {
	NearestStops(ctx context.Context, lat, lon float64, count int) ([]models.StopDistance, error)
}

// DirectorySource supplies the building directory, refreshing it as needed
type DirectorySource interface {
	GetOrRefresh(ctx context.Context) (models.BuildingDirectory, error)
}

// Resolver builds RouteResults
type Resolver struct {
	stops  StopFinder
	dir    DirectorySource
	logger *slog.Logger
}

// NewResolver creates a resolver
func NewResolver(stops StopFinder, dir DirectorySource) *Resolver {
	return &Resolver{stops: stops, dir: dir, logger: slog.Default()}
}

// WithLogger sets the logger used for skipped courses
func (r *Resolver) WithLogger(logger *slog.Logger) *Resolver {
	if logger != nil {
		r.logger = logger
	}
	return r
}

// FindRoute returns the nearest stop for the schedule's start location,
// keyed by its street, followed by one entry per distinct known building in
// course order.
//
// A transit failure for the start location fails the whole call. A transit
// failure for a course only drops that course.
func (r *Resolver) FindRoute(ctx context.Context, schedule *models.Schedule) (*models.RouteResult, error) {
	if schedule == nil || schedule.Start == nil {
		return nil, &PreconditionError{Reason: "start location not set"}
	}
	start := *schedule.Start
	if !start.Resolved() {
		return nil, &PreconditionError{Reason: fmt.Sprintf("start location %q has no coordinates", start.String())}
	}

	began := time.Now()
	defer func() { metrics.ObserveRoute(time.Since(began).Seconds()) }()

	result := models.NewRouteResult()

	stops, err := r.stops.NearestStops(ctx, start.Latitude, start.Longitude, 1)
	if err != nil {
		return nil, fmt.Errorf("finding stop near start location: %w", err)
	}
	result.Set(start.Street, stops)

	dir, err := r.dir.GetOrRefresh(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading building directory: %w", err)
	}

	for _, course := range schedule.Courses {
		if course.Building == "" {
			r.skip(course, SkipNoBuilding, nil)
			continue
		}
		addr, ok := dir[course.Building]
		if !ok {
			r.skip(course, SkipUnknownBuilding, nil)
			continue
		}

		stops, err := r.stops.NearestStops(ctx, addr.Latitude, addr.Longitude, 1)
		if err != nil {
			r.skip(course, SkipTransitError, err)
			continue
		}
		result.Set(course.Building, stops)
	}

	return result, nil
}

func (r *Resolver) skip(course models.Course, reason string, err error) {
	metrics.CourseSkipped(reason)
	attrs := []any{"course", course.CourseCode, "building", course.Building, "reason", reason}
	if err != nil {
		attrs = append(attrs, "error", err)
	}
	r.logger.Warn("skipping course", attrs...)
}
