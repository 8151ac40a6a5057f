package transit

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"time"
)

// NoDeparturesMessage is the Result error when a route has nothing left to run at a stop
const NoDeparturesMessage = "It looks like there are no buses currently running for that route and stop. " +
	"You could try just sending the stop number to see all current routes at this location."

const defaultDepartureLimit = 5

var departureLayouts = []string{
	"1/2/2006 3:04:05 PM",
	"2006-01-02T15:04:05",
	time.RFC3339,
}

// RouteDepartures is the next few departures of one route from a stop
type RouteDepartures struct {
	Route     string   `json:"route"`
	RouteName string   `json:"route_name"`
	Times     []string `json:"times"`
}

// NextDepartures returns the earliest limit departure times of route from
// stopCode. limit <= 0 uses the default of 5.
func (c *Client) NextDepartures(ctx context.Context, route, stopCode string, limit int) Result[[]string] {
	if limit <= 0 {
		limit = defaultDepartureLimit
	}

	form := url.Values{}
	form.Set("routeShortName", route)
	form.Set("stopCode", stopCode)
	form.Set("serviceDate", c.serviceDate())

	var resp table
	status, err := c.call(ctx, "GetNextDepartures", form, &resp)
	if err != nil {
		return failed[[]string](status, err)
	}

	times := resp.values("AdjustedDepartureTime")
	if len(times) == 0 {
		return Result[[]string]{Status: status, Payload: []string{}, Error: NoDeparturesMessage}
	}
	sortDepartures(times)
	if len(times) > limit {
		times = times[:limit]
	}
	return Result[[]string]{Success: true, Status: status, Payload: times}
}

// DeparturesForStop lists upcoming departures for every route serving
// stopCode: three per route when at most two routes stop there, otherwise one.
func (c *Client) DeparturesForStop(ctx context.Context, stopCode string) Result[[]RouteDepartures] {
	routes := c.ScheduledRoutes(ctx, stopCode)
	if !routes.Success {
		return Result[[]RouteDepartures]{Status: routes.Status, Error: routes.Error}
	}

	limit := 1
	if len(routes.Payload) <= 2 {
		limit = 3
	}

	out := make([]RouteDepartures, 0, len(routes.Payload))
	for _, r := range routes.Payload {
		next := c.NextDepartures(ctx, r.ShortName, stopCode, limit)
		if next.Status != http.StatusOK {
			return Result[[]RouteDepartures]{
				Status:  next.Status,
				Payload: out,
				Error:   fmt.Sprintf("departures for route %s: %s", r.ShortName, next.Error),
			}
		}
		out = append(out, RouteDepartures{Route: r.ShortName, RouteName: r.Name, Times: next.Payload})
	}
	return Result[[]RouteDepartures]{Success: true, Status: routes.Status, Payload: out}
}

// sortDepartures orders times chronologically when they parse, lexically otherwise
func sortDepartures(times []string) {
	parsed := make(map[string]time.Time, len(times))
	for _, t := range times {
		for _, layout := range departureLayouts {
			if ts, err := time.Parse(layout, t); err == nil {
				parsed[t] = ts
				break
			}
		}
	}
	sort.SliceStable(times, func(i, j int) bool {
		a, aok := parsed[times[i]]
		b, bok := parsed[times[j]]
		if aok != bok {
			// unparsed times sort last
			return aok
		}
		if aok {
			return a.Before(b)
		}
		return times[i] < times[j]
	})
}
