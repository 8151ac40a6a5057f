// Package config handles application configuration from the environment,
// an optional .env file and an optional YAML overlay.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	Port     string `yaml:"port" validate:"required,numeric"`
	Env      string `yaml:"env" validate:"oneof=development production test"`
	LogLevel string `yaml:"log_level" validate:"oneof=debug info warn error"`

	GeocodeURL    string `yaml:"geocode_url" validate:"required,url"`
	GeocodeAPIKey string `yaml:"geocode_api_key"`

	TransitBaseURL string `yaml:"transit_base_url" validate:"required,url"`
	AlertsFeedURL  string `yaml:"alerts_feed_url" validate:"omitempty,url"`

	DirectoryURL     string        `yaml:"directory_url" validate:"required,url"`
	CacheFile        string        `yaml:"cache_file" validate:"required"`
	CacheMaxAge      time.Duration `yaml:"-" validate:"gt=0"`
	CacheMaxAgeHours int           `yaml:"cache_max_age_hours"`

	GeocodeCacheTTL        time.Duration `yaml:"-" validate:"gte=0"`
	GeocodeCacheTTLSeconds int           `yaml:"geocode_cache_ttl_seconds"`
	AlertsCacheTTL         time.Duration `yaml:"-" validate:"gte=0"`
	AlertsCacheTTLSeconds  int           `yaml:"alerts_cache_ttl_seconds"`
	HTTPTimeout            time.Duration `yaml:"-" validate:"gt=0"`
	HTTPTimeoutSeconds     int           `yaml:"http_timeout_seconds"`
	RequestTimeout         time.Duration `yaml:"-" validate:"gt=0"`
	RequestTimeoutSeconds  int           `yaml:"request_timeout_seconds"`

	Campus    CampusConfig    `yaml:"campus"`
	Registrar RegistrarConfig `yaml:"registrar"`

	Timezone string `yaml:"timezone" validate:"required"`
}

// CampusConfig locates the campus for sanity-checking geocoded buildings.
// RadiusMeters of zero disables the check.
type CampusConfig struct {
	Lat          float64 `yaml:"lat" validate:"gte=-90,lte=90"`
	Lon          float64 `yaml:"lon" validate:"gte=-180,lte=180"`
	RadiusMeters float64 `yaml:"radius_meters" validate:"gte=0"`
}

// RegistrarConfig is the fixed city/state/zip/country attached to every
// scraped building street line.
type RegistrarConfig struct {
	City    string `yaml:"city" validate:"required"`
	State   string `yaml:"state" validate:"required"`
	ZipCode string `yaml:"zip_code" validate:"required"`
	Country string `yaml:"country" validate:"required"`
}

// Load reads configuration with sensible defaults. A .env file in the working
// directory is applied first; CONFIG_FILE, when set, names a YAML file whose
// values override the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	cfg := &Config{
		Port:     getEnv("PORT", "3000"),
		Env:      getEnv("ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		GeocodeURL:    getEnv("GEOCODE_URL", "https://geocode.maps.co/search"),
		GeocodeAPIKey: getEnv("GEOCODE_API_KEY", ""),

		TransitBaseURL: getEnv("TRANSIT_BASE_URL", "http://216.252.195.248/webservices/bt4u_webservice.asmx/"),
		AlertsFeedURL:  getEnv("ALERTS_FEED_URL", ""),

		DirectoryURL:     getEnv("DIRECTORY_URL", "https://www.vt.edu/about/locations/buildings.html"),
		CacheFile:        getEnv("CACHE_FILE", "data/addresses.json"),
		CacheMaxAgeHours: getIntEnv("CACHE_MAX_AGE_HOURS", 24),

		GeocodeCacheTTLSeconds: getIntEnv("GEOCODE_CACHE_TTL_SECONDS", 3600),
		AlertsCacheTTLSeconds:  getIntEnv("ALERTS_CACHE_TTL_SECONDS", 120),
		HTTPTimeoutSeconds:     getIntEnv("HTTP_TIMEOUT_SECONDS", 10),
		RequestTimeoutSeconds:  getIntEnv("REQUEST_TIMEOUT_SECONDS", 120),

		Campus: CampusConfig{
			Lat:          getFloatEnv("CAMPUS_LAT", 37.2296),
			Lon:          getFloatEnv("CAMPUS_LON", -80.4139),
			RadiusMeters: getFloatEnv("CAMPUS_RADIUS_METERS", 0),
		},
		Registrar: RegistrarConfig{
			City:    getEnv("REGISTRAR_CITY", "Blacksburg"),
			State:   getEnv("REGISTRAR_STATE", "Virginia"),
			ZipCode: getEnv("REGISTRAR_ZIP", "24061"),
			Country: getEnv("REGISTRAR_COUNTRY", "United States"),
		},

		Timezone: getEnv("TIMEZONE", "America/New_York"),
	}

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.overlay(path); err != nil {
			return nil, err
		}
	}

	cfg.CacheMaxAge = time.Duration(cfg.CacheMaxAgeHours) * time.Hour
	cfg.GeocodeCacheTTL = time.Duration(cfg.GeocodeCacheTTLSeconds) * time.Second
	cfg.AlertsCacheTTL = time.Duration(cfg.AlertsCacheTTLSeconds) * time.Second
	cfg.HTTPTimeout = time.Duration(cfg.HTTPTimeoutSeconds) * time.Second
	cfg.RequestTimeout = time.Duration(cfg.RequestTimeoutSeconds) * time.Second
	return cfg, nil
}

func (c *Config) overlay(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parsing config file %s: %w", path, err)
	}
	return nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// Validate checks that required configuration is present and well formed.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("invalid configuration: timezone %q: %w", c.Timezone, err)
	}
	return nil
}

// Location returns the wall-clock zone course times are normalized into.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// NewLogger builds the process logger: text in development, JSON otherwise.
func (c *Config) NewLogger() *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(c.LogLevel)}
	if c.IsDevelopment() {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}
