package service

import (
	"log/slog"

	"github.com/randytsao24/stopfinder/internal/config"
	"github.com/randytsao24/stopfinder/internal/directory"
	"github.com/randytsao24/stopfinder/internal/geocode"
	"github.com/randytsao24/stopfinder/internal/models"
	"github.com/randytsao24/stopfinder/internal/route"
	"github.com/randytsao24/stopfinder/internal/schedule"
	"github.com/randytsao24/stopfinder/internal/transit"
)

// Components is the dependency graph shared by the server and the CLI
type Components struct {
	Geocoder  *geocode.Service
	Scraper   *directory.Scraper
	Directory *directory.Store
	Transit   *transit.Client
	Alerts    *transit.AlertService
	Resolver  *route.Resolver
	Planner   *Planner
}

// NewComponents wires every service from cfg
func NewComponents(cfg *config.Config, logger *slog.Logger) *Components {
	geocoder := geocode.NewService(cfg.GeocodeURL, cfg.GeocodeAPIKey, cfg.HTTPTimeout, cfg.GeocodeCacheTTL, logger)

	registrar := models.Address{
		City:    cfg.Registrar.City,
		State:   cfg.Registrar.State,
		ZipCode: cfg.Registrar.ZipCode,
		Country: cfg.Registrar.Country,
	}
	scraper := directory.NewScraper(cfg.DirectoryURL, registrar, geocoder, cfg.HTTPTimeout, logger)
	scraper.Campus = models.Coordinates{Lat: cfg.Campus.Lat, Lon: cfg.Campus.Lon}
	scraper.RadiusMeters = cfg.Campus.RadiusMeters

	store := directory.NewStore(cfg.CacheFile, cfg.CacheMaxAge, scraper.Refresh, logger)
	transitClient := transit.NewClient(cfg.TransitBaseURL, cfg.HTTPTimeout, logger)
	alerts := transit.NewAlertService(cfg.AlertsFeedURL, cfg.HTTPTimeout, cfg.AlertsCacheTTL).WithFallback(transitClient)

	resolver := route.NewResolver(transitClient, store).WithLogger(logger)
	planner := NewPlanner(geocoder, schedule.NewParser(cfg.Location()), resolver, logger)

	return &Components{
		Geocoder:  geocoder,
		Scraper:   scraper,
		Directory: store,
		Transit:   transitClient,
		Alerts:    alerts,
		Resolver:  resolver,
		Planner:   planner,
	}
}

// Close stops background cache sweepers
func (c *Components) Close() {
	c.Geocoder.Close()
	c.Alerts.Close()
}
