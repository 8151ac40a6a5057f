package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/randytsao24/stopfinder/internal/api"
	"github.com/randytsao24/stopfinder/internal/config"
	"github.com/randytsao24/stopfinder/internal/directory"
	"github.com/randytsao24/stopfinder/internal/models"
	"github.com/randytsao24/stopfinder/internal/route"
	"github.com/randytsao24/stopfinder/internal/schedule"
	"github.com/randytsao24/stopfinder/internal/service"
	"github.com/randytsao24/stopfinder/internal/transit"
)

// ---------------------------------------------------------------------------
// Mock providers
// ---------------------------------------------------------------------------

type mockGeocoder struct{}

func (mockGeocoder) Attach(ctx context.Context, addr models.Address) models.Address {
	if addr.Street == "300 Progress St" {
		return addr.WithCoordinates(models.Coordinates{Lat: 37.241, Lon: -80.425})
	}
	return addr
}

type mockDirectory struct {
	dir models.BuildingDirectory
}

func (m *mockDirectory) GetOrRefresh(ctx context.Context) (models.BuildingDirectory, error) {
	return m.dir, nil
}

func (m *mockDirectory) State() (directory.State, error) {
	return directory.Fresh, nil
}

type mockTransit struct {
	mu         sync.Mutex
	stops      []models.StopDistance
	err        error
	routes     transit.Result[[]transit.Route]
	departures transit.Result[[]transit.RouteDepartures]
	lastStop   string
}

func (m *mockTransit) NearestStops(ctx context.Context, lat, lon float64, count int) ([]models.StopDistance, error) {
	if m.err != nil {
		return nil, m.err
	}
	if count < len(m.stops) {
		return m.stops[:count], nil
	}
	return m.stops, nil
}

func (m *mockTransit) CurrentRoutes(ctx context.Context) transit.Result[[]transit.Route] {
	return m.routes
}

func (m *mockTransit) DeparturesForStop(ctx context.Context, stopCode string) transit.Result[[]transit.RouteDepartures] {
	m.mu.Lock()
	m.lastStop = stopCode
	m.mu.Unlock()
	return m.departures
}

func (m *mockTransit) stopCode() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastStop
}

type mockAlerts struct {
	mu     sync.Mutex
	alerts []transit.ServiceAlert
	err    error
	routes []string
}

func (m *mockAlerts) GetAlerts(ctx context.Context, routes []string) ([]transit.ServiceAlert, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.routes = routes
	return m.alerts, m.err
}

func (m *mockAlerts) lastRoutes() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.routes
}

// ---------------------------------------------------------------------------
// Test helpers
// ---------------------------------------------------------------------------

const calendarDoc = "BEGIN:VCALENDAR\r\nVERSION:2.0\r\nPRODID:-//Test//EN\r\n" +
	"BEGIN:VEVENT\r\nUID:1\r\nDTSTAMP:20250101T000000Z\r\nSUMMARY:CS 1060 Lecture\r\n" +
	"LOCATION:Campus: Main Building: Torgersen Room: 1100\r\n" +
	"DTSTART:20250113T140500Z\r\nDTEND:20250113T145500Z\r\nEND:VEVENT\r\n" +
	"END:VCALENDAR\r\n"

type testEnv struct {
	server  *httptest.Server
	transit *mockTransit
	alerts  *mockAlerts
}

func defaultTransit() *mockTransit {
	return &mockTransit{
		stops: []models.StopDistance{
			{Name: "Torgersen Hall", Code: "1101", DistanceFeet: 150, DistanceMiles: 0.03, Latitude: 37.2299, Longitude: -80.4201},
			{Name: "Squires Student Center", Code: "1114", DistanceFeet: 420, DistanceMiles: 0.08},
		},
		routes: transit.Result[[]transit.Route]{
			Success: true, Status: http.StatusOK,
			Payload: []transit.Route{{ShortName: "HWD", Name: "Harding Avenue"}},
		},
		departures: transit.Result[[]transit.RouteDepartures]{
			Success: true, Status: http.StatusOK,
			Payload: []transit.RouteDepartures{{Route: "HWD", RouteName: "Harding Avenue", Times: []string{"1/22/2025 9:45:00 AM"}}},
		},
	}
}

func newTestServer(t *testing.T, ts *mockTransit) *testEnv {
	t.Helper()

	dir := &mockDirectory{dir: models.BuildingDirectory{
		"Torgersen": models.Address{Street: "620 Drillfield Dr"}.WithCoordinates(models.Coordinates{Lat: 37.23, Lon: -80.42}),
	}}
	alerts := &mockAlerts{alerts: []transit.ServiceAlert{{ID: "1", Routes: []string{"HWD"}, Header: "Detour"}}}

	resolver := route.NewResolver(ts, dir)
	planner := service.NewPlanner(mockGeocoder{}, schedule.NewParser(time.UTC), resolver, nil)

	cfg := &config.Config{HTTPTimeout: 5 * time.Second, RequestTimeout: 5 * time.Second}
	router := api.NewRouter(cfg, planner, ts, alerts, dir)

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return &testEnv{server: srv, transit: ts, alerts: alerts}
}

func get(t *testing.T, server *httptest.Server, path string) *http.Response {
	t.Helper()
	resp, err := http.Get(server.URL + path)
	if err != nil {
		t.Fatalf("GET %s: %v", path, err)
	}
	return resp
}

func post(t *testing.T, server *httptest.Server, path, contentType, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(server.URL+path, contentType, strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST %s: %v", path, err)
	}
	return resp
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()
	var m map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&m); err != nil {
		t.Fatalf("decode response body: %v", err)
	}
	return m
}

func assertStatus(t *testing.T, resp *http.Response, want int) {
	t.Helper()
	if resp.StatusCode != want {
		t.Errorf("status = %d, want %d", resp.StatusCode, want)
	}
}

func assertSuccess(t *testing.T, body map[string]any) {
	t.Helper()
	if body["success"] != true {
		t.Errorf("expected success=true, body: %v", body)
	}
}

func assertField(t *testing.T, body map[string]any, field string) {
	t.Helper()
	if _, ok := body[field]; !ok {
		t.Errorf("missing field %q in response: %v", field, body)
	}
}

func setStart(t *testing.T, env *testEnv) {
	t.Helper()
	resp := post(t, env.server, "/api/start", "application/json",
		`{"address": "300 Progress St, Blacksburg, Virginia, 24060, United States"}`)
	assertStatus(t, resp, http.StatusOK)
	resp.Body.Close()
}

// ---------------------------------------------------------------------------
// Health & root
// ---------------------------------------------------------------------------

func TestHealth(t *testing.T) {
	env := newTestServer(t, defaultTransit())

	resp := get(t, env.server, "/health")
	assertStatus(t, resp, http.StatusOK)

	body := decodeBody(t, resp)
	assertField(t, body, "status")
	assertField(t, body, "uptime")

	if body["status"] != "OK" {
		t.Errorf("status = %v, want OK", body["status"])
	}
	if body["directory"] != "fresh" {
		t.Errorf("directory = %v, want fresh", body["directory"])
	}
}

func TestAPIRoot(t *testing.T) {
	env := newTestServer(t, defaultTransit())

	for _, path := range []string{"/", "/api"} {
		resp := get(t, env.server, path)
		assertStatus(t, resp, http.StatusOK)

		body := decodeBody(t, resp)
		assertField(t, body, "endpoints")
	}
}

func TestNotFound(t *testing.T) {
	env := newTestServer(t, defaultTransit())

	resp := get(t, env.server, "/transit/subway/near/10001")
	assertStatus(t, resp, http.StatusNotFound)
	resp.Body.Close()
}

func TestRequestID(t *testing.T) {
	env := newTestServer(t, defaultTransit())

	resp := get(t, env.server, "/health")
	resp.Body.Close()
	if resp.Header.Get(api.RequestIDHeader) == "" {
		t.Error("response should carry a generated request ID")
	}

	req, _ := http.NewRequest(http.MethodGet, env.server.URL+"/health", nil)
	req.Header.Set(api.RequestIDHeader, "abc-123")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if got := resp.Header.Get(api.RequestIDHeader); got != "abc-123" {
		t.Errorf("request ID = %q, want the caller's", got)
	}
}

func TestMetrics(t *testing.T) {
	env := newTestServer(t, defaultTransit())

	resp := get(t, env.server, "/metrics")
	assertStatus(t, resp, http.StatusOK)
	data, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if !bytes.Contains(data, []byte("go_goroutines")) {
		t.Error("expected Prometheus exposition output")
	}
}

// ---------------------------------------------------------------------------
// Start location
// ---------------------------------------------------------------------------

func TestStartLocation(t *testing.T) {
	env := newTestServer(t, defaultTransit())

	resp := get(t, env.server, "/api/start")
	assertStatus(t, resp, http.StatusNotFound)
	resp.Body.Close()

	resp = post(t, env.server, "/api/start", "application/json",
		`{"address": "300 Progress St, Blacksburg, Virginia, 24060, United States"}`)
	assertStatus(t, resp, http.StatusOK)
	body := decodeBody(t, resp)
	assertSuccess(t, body)

	start, ok := body["start"].(map[string]any)
	if !ok || start["street"] != "300 Progress St" || start["latitude"] != 37.241 {
		t.Errorf("start = %v", body["start"])
	}

	resp = get(t, env.server, "/api/start")
	assertStatus(t, resp, http.StatusOK)
	resp.Body.Close()
}

func TestStartLocationErrors(t *testing.T) {
	env := newTestServer(t, defaultTransit())

	tests := []struct {
		name   string
		body   string
		status int
	}{
		{"not json", `address=here`, http.StatusBadRequest},
		{"empty", `{}`, http.StatusBadRequest},
		{"too few parts", `{"address": "300 Progress St, Blacksburg"}`, http.StatusBadRequest},
		{"not geocodable", `{"address": "1 Nowhere Ln, Blacksburg, Virginia, 24060, United States"}`, http.StatusBadRequest},
		{"coordinates out of range", `{"latitude": 123, "longitude": 0}`, http.StatusBadRequest},
		{"coordinates", `{"label": "Dorm", "latitude": 37.225, "longitude": -80.42}`, http.StatusOK},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			resp := post(t, env.server, "/api/start", "application/json", tc.body)
			assertStatus(t, resp, tc.status)
			resp.Body.Close()
		})
	}
}

// ---------------------------------------------------------------------------
// Route resolution
// ---------------------------------------------------------------------------

func TestRouteWithoutStart(t *testing.T) {
	env := newTestServer(t, defaultTransit())

	resp := post(t, env.server, "/api/route", "text/calendar", calendarDoc)
	assertStatus(t, resp, http.StatusConflict)

	body := decodeBody(t, resp)
	assertField(t, body, "error")
}

func TestRoute(t *testing.T) {
	env := newTestServer(t, defaultTransit())
	setStart(t, env)

	resp := post(t, env.server, "/api/route?filename=fall.ics", "text/calendar", calendarDoc)
	assertStatus(t, resp, http.StatusOK)

	body := decodeBody(t, resp)
	assertSuccess(t, body)

	result, ok := body["route"].(map[string]any)
	if !ok {
		t.Fatalf("route should be an object: %v", body["route"])
	}
	if len(result) != 2 {
		t.Errorf("route has %d keys, want 2: %v", len(result), result)
	}
	for _, key := range []string{"300 Progress St", "Torgersen"} {
		stops, ok := result[key].([]any)
		if !ok || len(stops) != 1 {
			t.Errorf("route[%q] = %v", key, result[key])
		}
	}
}

func TestRouteCSV(t *testing.T) {
	env := newTestServer(t, defaultTransit())
	setStart(t, env)

	resp := post(t, env.server, "/api/route?format=csv", "text/calendar", calendarDoc)
	assertStatus(t, resp, http.StatusOK)
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/csv") {
		t.Errorf("Content-Type = %q", ct)
	}
	data, _ := io.ReadAll(resp.Body)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 3 || !strings.HasPrefix(lines[0], "location,stop_name") {
		t.Errorf("csv = %q", data)
	}
}

func TestRouteBadCalendar(t *testing.T) {
	env := newTestServer(t, defaultTransit())
	setStart(t, env)

	tests := []struct {
		name        string
		path        string
		contentType string
		body        string
	}{
		{"not a calendar", "/api/route", "text/calendar", "hello"},
		{"wrong extension", "/api/route?filename=fall.pdf", "text/calendar", calendarDoc},
		{"wrong content type", "/api/route", "application/json", calendarDoc},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			resp := post(t, env.server, tc.path, tc.contentType, tc.body)
			assertStatus(t, resp, http.StatusBadRequest)
			resp.Body.Close()
		})
	}
}

func TestRouteTransitDown(t *testing.T) {
	ts := defaultTransit()
	ts.err = &transit.UnavailableError{Op: "GetNearestStops", StatusCode: http.StatusInternalServerError}
	env := newTestServer(t, ts)
	setStart(t, env)

	resp := post(t, env.server, "/api/route", "text/calendar", calendarDoc)
	assertStatus(t, resp, http.StatusBadGateway)
	resp.Body.Close()
}

// ---------------------------------------------------------------------------
// Transit endpoints
// ---------------------------------------------------------------------------

func TestTransitRoutes(t *testing.T) {
	env := newTestServer(t, defaultTransit())

	resp := get(t, env.server, "/api/transit/routes")
	assertStatus(t, resp, http.StatusOK)

	body := decodeBody(t, resp)
	assertSuccess(t, body)
	routes, ok := body["routes"].([]any)
	if !ok || len(routes) != 1 {
		t.Errorf("routes = %v", body["routes"])
	}
}

func TestTransitRoutesUpstreamFailure(t *testing.T) {
	ts := defaultTransit()
	ts.routes = transit.Result[[]transit.Route]{Status: http.StatusInternalServerError, Error: "transit GetCurrentRoutes: status 500"}
	env := newTestServer(t, ts)

	resp := get(t, env.server, "/api/transit/routes")
	assertStatus(t, resp, http.StatusBadGateway)
	body := decodeBody(t, resp)
	if body["success"] != false {
		t.Errorf("body = %v", body)
	}
}

func TestTransitDepartures(t *testing.T) {
	ts := defaultTransit()
	env := newTestServer(t, ts)

	resp := get(t, env.server, "/api/transit/stops/1101/departures")
	assertStatus(t, resp, http.StatusOK)
	body := decodeBody(t, resp)
	assertSuccess(t, body)
	assertField(t, body, "departures")
	if got := ts.stopCode(); got != "1101" {
		t.Errorf("stop code = %q", got)
	}

	resp = get(t, env.server, "/api/transit/stops/abc/departures")
	assertStatus(t, resp, http.StatusBadRequest)
	resp.Body.Close()
}

func TestTransitDeparturesUnknownStop(t *testing.T) {
	ts := defaultTransit()
	ts.departures = transit.Result[[]transit.RouteDepartures]{Status: http.StatusOK, Error: "no routes scheduled at stop 9999"}
	env := newTestServer(t, ts)

	resp := get(t, env.server, "/api/transit/stops/9999/departures")
	assertStatus(t, resp, http.StatusNotFound)
	resp.Body.Close()
}

func TestTransitNearest(t *testing.T) {
	env := newTestServer(t, defaultTransit())

	tests := []struct {
		name   string
		path   string
		status int
		count  int
	}{
		{"default count", "/api/transit/nearest?lat=37.23&lon=-80.42", http.StatusOK, 2},
		{"count 1", "/api/transit/nearest?lat=37.23&lon=-80.42&count=1", http.StatusOK, 1},
		{"missing lon", "/api/transit/nearest?lat=37.23", http.StatusBadRequest, 0},
		{"bad lat", "/api/transit/nearest?lat=north&lon=-80.42", http.StatusBadRequest, 0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			resp := get(t, env.server, tc.path)
			assertStatus(t, resp, tc.status)
			body := decodeBody(t, resp)
			if tc.status != http.StatusOK {
				return
			}
			if stops, _ := body["stops"].([]any); len(stops) != tc.count {
				t.Errorf("got %d stops, want %d", len(stops), tc.count)
			}
		})
	}
}

func TestTransitNearestUnavailable(t *testing.T) {
	ts := defaultTransit()
	ts.err = &transit.UnavailableError{Op: "GetNearestStops", Err: errors.New("connection refused")}
	env := newTestServer(t, ts)

	resp := get(t, env.server, "/api/transit/nearest?lat=37.23&lon=-80.42")
	assertStatus(t, resp, http.StatusBadGateway)
	body := decodeBody(t, resp)
	assertField(t, body, "error")
}

func TestAlerts(t *testing.T) {
	env := newTestServer(t, defaultTransit())

	resp := get(t, env.server, "/api/alerts?routes=HWD,%20UMS,")
	assertStatus(t, resp, http.StatusOK)
	body := decodeBody(t, resp)
	assertSuccess(t, body)

	if got := strings.Join(env.alerts.lastRoutes(), "|"); got != "HWD|UMS" {
		t.Errorf("routes passed = %q", got)
	}
}

func TestAlertsNotConfigured(t *testing.T) {
	env := newTestServer(t, defaultTransit())
	env.alerts.err = transit.ErrNoAlertsFeed
	env.alerts.alerts = nil

	resp := get(t, env.server, "/api/alerts")
	assertStatus(t, resp, http.StatusServiceUnavailable)
	resp.Body.Close()
}
