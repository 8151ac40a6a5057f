package api

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/randytsao24/stopfinder/internal/api/handlers"
	"github.com/randytsao24/stopfinder/internal/config"
)

// NewRouter creates and configures the HTTP router with all routes and middleware
func NewRouter(
	cfg *config.Config,
	planner handlers.Planner,
	transitSvc handlers.TransitProvider,
	alertSvc handlers.AlertProvider,
	dir handlers.DirectoryStatus,
) http.Handler {
	mux := http.NewServeMux()

	// Initialize handlers
	healthHandler := handlers.NewHealthHandler(dir)
	rootHandler := handlers.NewRootHandler()
	locationHandler := handlers.NewLocationHandler(planner)
	routeHandler := handlers.NewRouteHandler(planner)
	transitHandler := handlers.NewTransitHandler(transitSvc, alertSvc)

	// Core routes
	mux.HandleFunc("GET /{$}", rootHandler.Index)
	mux.HandleFunc("GET /api", rootHandler.Index)
	mux.HandleFunc("GET /health", healthHandler.Health)
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("/", rootHandler.NotFound)

	// Start location and route resolution
	mux.HandleFunc("GET /api/start", locationHandler.GetStart)
	mux.HandleFunc("POST /api/start", locationHandler.SetStart)
	mux.HandleFunc("POST /api/route", routeHandler.GetRoute)

	// Transit passthrough
	mux.HandleFunc("GET /api/transit/routes", transitHandler.GetRoutes)
	mux.HandleFunc("GET /api/transit/stops/{stopCode}/departures", transitHandler.GetDepartures)
	mux.HandleFunc("GET /api/transit/nearest", transitHandler.GetNearest)
	mux.HandleFunc("GET /api/alerts", transitHandler.GetAlerts)

	// Apply middleware stack
	handler := Chain(mux,
		RequestID,
		Recovery,
		Logging,
		CORS,
		Timeout(cfg.RequestTimeout),
	)

	return handler
}
