package route

import (
	"fmt"
	"io"

	"github.com/gocarina/gocsv"

	"github.com/randytsao24/stopfinder/internal/models"
)

// Row is one line of a CSV route export
type Row struct {
	Location  string  `csv:"location"`
	StopName  string  `csv:"stop_name"`
	StopCode  string  `csv:"stop_code"`
	Feet      float64 `csv:"feet"`
	Miles     float64 `csv:"miles"`
	Latitude  float64 `csv:"latitude"`
	Longitude float64 `csv:"longitude"`
}

// Rows flattens a result into one row per stop. A location with no stops
// still gets a row with only its label.
func Rows(result *models.RouteResult) []*Row {
	var rows []*Row
	for _, e := range result.Entries() {
		if len(e.Stops) == 0 {
			rows = append(rows, &Row{Location: e.Label})
			continue
		}
		for _, s := range e.Stops {
			rows = append(rows, &Row{
				Location:  e.Label,
				StopName:  s.Name,
				StopCode:  s.Code,
				Feet:      s.DistanceFeet,
				Miles:     s.DistanceMiles,
				Latitude:  s.Latitude,
				Longitude: s.Longitude,
			})
		}
	}
	return rows
}

// WriteCSV writes result to w with a header line
func WriteCSV(w io.Writer, result *models.RouteResult) error {
	rows := Rows(result)
	if rows == nil {
		rows = []*Row{}
	}
	if err := gocsv.Marshal(rows, w); err != nil {
		return fmt.Errorf("writing route csv: %w", err)
	}
	return nil
}
