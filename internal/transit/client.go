// Package transit talks to the BT4U web service and a GTFS-realtime alerts feed.
package transit

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/randytsao24/stopfinder/internal/metrics"
	"github.com/randytsao24/stopfinder/internal/models"
)

// DefaultBaseURL is the public BT4U ASMX endpoint
const DefaultBaseURL = "http://216.252.195.248/webservices/bt4u_webservice.asmx/"

const serviceDateLayout = "01/02/06"

// ErrUnavailable matches every UnavailableError
var ErrUnavailable = errors.New("transit service unavailable")

// UnavailableError reports a failed call to the transit service
type UnavailableError struct {
	Op         string
	StatusCode int
	Err        error
}

func (e *UnavailableError) Error() string {
	switch {
	case e.Err != nil:
		return fmt.Sprintf("transit %s: %v", e.Op, e.Err)
	case e.StatusCode != 0:
		return fmt.Sprintf("transit %s: status %d", e.Op, e.StatusCode)
	}
	return "transit " + e.Op + ": unavailable"
}

func (e *UnavailableError) Unwrap() error {
	return e.Err
}

func (e *UnavailableError) Is(target error) bool {
	return target == ErrUnavailable
}

// Result is the uniform shape of the secondary operations. They report
// failure through Success and Error rather than an error value.
type Result[T any] struct {
	Success bool   `json:"success"`
	Status  int    `json:"status_code"`
	Payload T      `json:"payload"`
	Error   string `json:"error,omitempty"`
}

// Route is a bus route
type Route struct {
	ShortName string `json:"short_name" xml:"RouteShortName"`
	Name      string `json:"name" xml:"RouteName"`
}

// Stop is a scheduled stop on a route
type Stop struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// Client calls the BT4U service. Every call is a single attempt.
type Client struct {
	baseURL string
	client  *http.Client
	logger  *slog.Logger
	now     func() time.Time
}

// NewClient creates a client for the service at baseURL
func NewClient(baseURL string, timeout time.Duration, logger *slog.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
		now:     time.Now,
	}
}

type nearestStopsResponse struct {
	Stops []struct {
		StopName  string  `xml:"StopName"`
		StopCode  string  `xml:"StopCode"`
		Feet      float64 `xml:"Feet"`
		Miles     float64 `xml:"Miles"`
		Latitude  float64 `xml:"Latitude"`
		Longitude float64 `xml:"Longitude"`
	} `xml:"StopDistances"`
}

// NearestStops returns up to count stops closest to lat/lon, in the order the
// service ranks them.
func (c *Client) NearestStops(ctx context.Context, lat, lon float64, count int) ([]models.StopDistance, error) {
	form := url.Values{}
	form.Set("latitude", strconv.FormatFloat(lat, 'f', -1, 64))
	form.Set("longitude", strconv.FormatFloat(lon, 'f', -1, 64))
	form.Set("noOfStops", strconv.Itoa(count))
	form.Set("serviceDate", c.serviceDate())

	var resp nearestStopsResponse
	if _, err := c.call(ctx, "GetNearestStops", form, &resp); err != nil {
		return nil, err
	}

	stops := make([]models.StopDistance, 0, len(resp.Stops))
	for _, s := range resp.Stops {
		stops = append(stops, models.StopDistance{
			Name:          s.StopName,
			Code:          s.StopCode,
			DistanceFeet:  s.Feet,
			DistanceMiles: s.Miles,
			Latitude:      s.Latitude,
			Longitude:     s.Longitude,
		})
	}
	return stops, nil
}

type routesResponse struct {
	Routes []Route `xml:"CurrentRoutes"`
}

// CurrentRoutes lists the routes running today
func (c *Client) CurrentRoutes(ctx context.Context) Result[[]Route] {
	var resp routesResponse
	status, err := c.call(ctx, "GetCurrentRoutes", nil, &resp)
	if err != nil {
		return failed[[]Route](status, err)
	}
	return Result[[]Route]{Success: true, Status: status, Payload: resp.Routes}
}

// IsCurrentRoute reports whether route is running today. A failed lookup
// counts as not running.
func (c *Client) IsCurrentRoute(ctx context.Context, route string) bool {
	res := c.CurrentRoutes(ctx)
	if !res.Success {
		return false
	}
	for _, r := range res.Payload {
		if strings.EqualFold(strings.TrimSpace(r.ShortName), strings.TrimSpace(route)) {
			return true
		}
	}
	return false
}

// ScheduledStopCodes lists the stop codes served by route
func (c *Client) ScheduledStopCodes(ctx context.Context, route string) Result[[]string] {
	form := url.Values{}
	form.Set("routeShortName", route)

	var resp table
	status, err := c.call(ctx, "GetScheduledStopCodes", form, &resp)
	if err != nil {
		return failed[[]string](status, err)
	}
	return Result[[]string]{Success: true, Status: status, Payload: resp.values("StopCode")}
}

// ScheduledStopNames lists the stops served by route
func (c *Client) ScheduledStopNames(ctx context.Context, route string) Result[[]Stop] {
	form := url.Values{}
	form.Set("routeShortName", route)

	var resp table
	status, err := c.call(ctx, "GetScheduledStopNames", form, &resp)
	if err != nil {
		return failed[[]Stop](status, err)
	}

	var stops []Stop
	for _, row := range resp.Rows {
		name := row.field("StopName")
		if name == "" {
			continue
		}
		stops = append(stops, Stop{Code: row.field("StopCode"), Name: name})
	}
	return Result[[]Stop]{Success: true, Status: status, Payload: stops}
}

type scheduledRoutesResponse struct {
	Routes []Route   `xml:"ScheduledRoutes"`
	Errors []xmlNode `xml:"Error"`
}

// ScheduledRoutes lists the routes that serve stopCode. An unknown stop comes
// back unsuccessful with no routes.
func (c *Client) ScheduledRoutes(ctx context.Context, stopCode string) Result[[]Route] {
	form := url.Values{}
	form.Set("stopCode", stopCode)
	form.Set("serviceDate", c.serviceDate())

	var resp scheduledRoutesResponse
	status, err := c.call(ctx, "GetScheduledRoutes", form, &resp)
	if err != nil {
		return failed[[]Route](status, err)
	}
	if len(resp.Errors) > 0 {
		return Result[[]Route]{Status: status, Error: fmt.Sprintf("stop %s: %s", stopCode, resp.Errors[0].text())}
	}
	if len(resp.Routes) == 0 {
		return Result[[]Route]{Status: status, Error: fmt.Sprintf("no routes scheduled at stop %s", stopCode)}
	}
	return Result[[]Route]{Success: true, Status: status, Payload: resp.Routes}
}

func (c *Client) serviceDate() string {
	return c.now().Format(serviceDateLayout)
}

// call posts form to the named operation and decodes the XML reply into v.
// The returned status is zero when no response arrived.
func (c *Client) call(ctx context.Context, op string, form url.Values, v any) (int, error) {
	status, err := c.post(ctx, op, form, v)
	metrics.ObserveCall("transit", op, err)
	if err != nil {
		c.logger.Warn("transit call failed", "operation", op, "status", status, "error", err)
	}
	return status, err
}

func (c *Client) post(ctx context.Context, op string, form url.Values, v any) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+op, strings.NewReader(form.Encode()))
	if err != nil {
		return 0, &UnavailableError{Op: op, Err: fmt.Errorf("building request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, &UnavailableError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return resp.StatusCode, &UnavailableError{Op: op, StatusCode: resp.StatusCode}
	}

	if err := xml.NewDecoder(resp.Body).Decode(v); err != nil {
		return resp.StatusCode, &UnavailableError{Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("parsing response: %w", err)}
	}
	return resp.StatusCode, nil
}

func failed[T any](status int, err error) Result[T] {
	return Result[T]{Status: status, Error: err.Error()}
}
