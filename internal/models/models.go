// Package models defines shared data types
package models

import (
	"strings"
	"time"
)

// Coordinates is a latitude/longitude pair
type Coordinates struct {
	Lat float64 `json:"latitude"`
	Lon float64 `json:"longitude"`
}

// Unresolved is the sentinel returned when an address could not be geocoded
var Unresolved = Coordinates{}

// IsZero reports whether c is the Unresolved sentinel
func (c Coordinates) IsZero() bool {
	return c == Unresolved
}

// Address is a postal address with its resolved coordinates.
// Latitude and Longitude stay zero until the address is geocoded.
type Address struct {
	Street    string  `json:"street"`
	City      string  `json:"city"`
	County    string  `json:"county,omitempty"`
	State     string  `json:"state"`
	ZipCode   string  `json:"zip_code"`
	Country   string  `json:"country"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Coordinates returns the address position
func (a Address) Coordinates() Coordinates {
	return Coordinates{Lat: a.Latitude, Lon: a.Longitude}
}

// WithCoordinates returns a copy of a positioned at c
func (a Address) WithCoordinates(c Coordinates) Address {
	a.Latitude = c.Lat
	a.Longitude = c.Lon
	return a
}

// Resolved reports whether the address has real coordinates
func (a Address) Resolved() bool {
	return !a.Coordinates().IsZero()
}

// String joins the non-empty address fields with ", ". This is the free-text
// query sent to the geocoder.
func (a Address) String() string {
	parts := make([]string, 0, 6)
	for _, p := range []string{a.Street, a.City, a.County, a.State, a.ZipCode, a.Country} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}

// Course is one calendar event interpreted as a class meeting
type Course struct {
	CourseCode string    `json:"course_code"`
	Campus     string    `json:"campus"`
	Building   string    `json:"building"`
	Room       string    `json:"room"`
	Start      time.Time `json:"start"`
	End        time.Time `json:"end"`
}

// Schedule is a start location plus the courses to reach, in calendar order
type Schedule struct {
	Start   *Address `json:"start"`
	Courses []Course `json:"courses"`
}

// BuildingDirectory maps a campus building name to its resolved address
type BuildingDirectory map[string]Address

// StopDistance is a transit stop and its distance from a query point
type StopDistance struct {
	Name          string  `json:"stop_name"`
	Code          string  `json:"stop_code"`
	DistanceFeet  float64 `json:"feet"`
	DistanceMiles float64 `json:"miles"`
	Latitude      float64 `json:"latitude"`
	Longitude     float64 `json:"longitude"`
}
