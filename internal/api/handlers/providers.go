package handlers

import (
	"context"

	"github.com/randytsao24/stopfinder/internal/models"
	"github.com/randytsao24/stopfinder/internal/service"
	"github.com/randytsao24/stopfinder/internal/transit"
)

// Planner abstracts the start-location and route pipeline for testability.
type Planner interface {
	SetStartLocation(ctx context.Context, freeText string) (models.Address, error)
	SetStartCoordinates(label string, lat, lon float64) (models.Address, error)
	Start() (models.Address, bool)
	GetRoute(ctx context.Context, upload service.Upload) (*models.RouteResult, error)
}

// TransitProvider abstracts the BT4U client for testability.
type TransitProvider interface {
	NearestStops(ctx context.Context, lat, lon float64, count int) ([]models.StopDistance, error)
	CurrentRoutes(ctx context.Context) transit.Result[[]transit.Route]
	DeparturesForStop(ctx context.Context, stopCode string) transit.Result[[]transit.RouteDepartures]
}

// AlertProvider abstracts the service alerts data source.
type AlertProvider interface {
	GetAlerts(ctx context.Context, routes []string) ([]transit.ServiceAlert, error)
}
