package transit

import (
	"context"
	"net/url"
	"strings"
)

// AlertFilter narrows GetActiveAlerts. Empty fields match everything.
type AlertFilter struct {
	Types   string
	Causes  string
	Effects string
}

// BT4U does not publish the GetActiveAlerts schema; these are the column
// names tried for each alert field, in order.
var (
	alertIDColumns     = []string{"AlertID", "AlertId", "ID"}
	alertTitleColumns  = []string{"AlertTitle", "Title", "AlertHeader"}
	alertTextColumns   = []string{"AlertMessage", "Message", "AlertText", "Description"}
	alertRoutesColumns = []string{"AffectedRoutes", "RouteShortNames", "RouteShortName", "Routes"}
)

// ActiveAlerts returns the alerts BT4U currently reports as active.
func (c *Client) ActiveAlerts(ctx context.Context, filter AlertFilter) ([]ServiceAlert, error) {
	form := url.Values{
		"alertTypes":   {filter.Types},
		"alertCauses":  {filter.Causes},
		"alertEffects": {filter.Effects},
	}

	var resp table
	if _, err := c.call(ctx, "GetActiveAlerts", form, &resp); err != nil {
		return nil, err
	}

	alerts := []ServiceAlert{}
	for _, r := range resp.Rows {
		header := r.first(alertTitleColumns)
		description := r.first(alertTextColumns)
		if header == "" {
			header = description
		}
		if header == "" {
			continue
		}
		alerts = append(alerts, ServiceAlert{
			ID:          r.first(alertIDColumns),
			Routes:      splitRoutes(r.first(alertRoutesColumns)),
			Header:      header,
			Description: description,
		})
	}
	return alerts, nil
}

func (r row) first(names []string) string {
	for _, name := range names {
		if v := r.field(name); v != "" {
			return v
		}
	}
	return ""
}

func splitRoutes(s string) []string {
	var routes []string
	for _, part := range strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ';' }) {
		if p := strings.TrimSpace(part); p != "" {
			routes = append(routes, p)
		}
	}
	return routes
}
