// Package geo holds the coordinate primitives shared by sensors, zones,
// cameras and reports.
package geo

import (
	"encoding/json"
	"fmt"
)

// coordinateParts is the element count of a wire-format coordinate.
const coordinateParts = 2

// Coordinate is a WGS84 point. The wire format is a two-element
// [longitude, latitude] array, matching GeoJSON ordering.
type Coordinate struct {
	Lng float64
	Lat float64
}

// MarshalJSON encodes the coordinate as [lng, lat].
func (c Coordinate) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]float64{c.Lng, c.Lat})
}

// UnmarshalJSON decodes a [lng, lat] array.
func (c *Coordinate) UnmarshalJSON(data []byte) error {
	var parts []float64
	if err := json.Unmarshal(data, &parts); err != nil {
		return fmt.Errorf("parsing coordinate: %w", err)
	}
	if len(parts) != coordinateParts {
		return fmt.Errorf("parsing coordinate: expected [lng, lat], got %d elements", len(parts))
	}
	c.Lng = parts[0]
	c.Lat = parts[1]
	return nil
}

// Valid reports whether the coordinate is within WGS84 bounds.
func (c Coordinate) Valid() bool {
	return c.Lng >= -180 && c.Lng <= 180 && c.Lat >= -90 && c.Lat <= 90
}
