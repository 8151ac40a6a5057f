package geocode

import (
	"fmt"
	"strings"

	"github.com/randytsao24/stopfinder/internal/models"
)

// ParseFreeText splits "Street, City, State, ZIP, Country" into an Address.
// A six-part form with the county after the city is also accepted.
func ParseFreeText(s string) (models.Address, error) {
	parts := strings.Split(s, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}

	switch len(parts) {
	case 5:
		return models.Address{
			Street:  parts[0],
			City:    parts[1],
			State:   parts[2],
			ZipCode: parts[3],
			Country: parts[4],
		}, nil
	case 6:
		return models.Address{
			Street:  parts[0],
			City:    parts[1],
			County:  parts[2],
			State:   parts[3],
			ZipCode: parts[4],
			Country: parts[5],
		}, nil
	default:
		return models.Address{}, fmt.Errorf("invalid address format: want \"Street, City, State, ZIP, Country\", got %d parts", len(parts))
	}
}
