package zone

import (
	"time"

	"github.com/PKA-OpenLD/FORMS-app-sub000/internal/geo"
)

// Type is the hazard category a zone represents.
type Type string

const (
	TypeFlood  Type = "flood"
	TypeOutage Type = "outage"
)

// ValidType checks whether the given string is a valid zone type.
func ValidType(s string) bool {
	return Type(s) == TypeFlood || Type(s) == TypeOutage
}

// Shape is the zone's map geometry.
type Shape string

const (
	ShapeCircle Shape = "circle"
	ShapeLine   Shape = "line"
)

// ValidShape checks whether the given string is a valid zone shape.
func ValidShape(s string) bool {
	return Shape(s) == ShapeCircle || Shape(s) == ShapeLine
}

// DefaultRadius is the circle radius in meters when a rule does not
// specify one.
const DefaultRadius = 500.0

// Zone is a persisted map overlay marking a flood or outage risk area.
//
// Circles carry Center and Radius; lines carry Coordinates (a path of
// two or more points, e.g. a stretch of riverbank or a power line run).
// Automated zones additionally carry AutomatedFrom (the rule that
// created them, used for dedup and retention) and TriggeredBy (the
// sensor whose reading fired the rule).
type Zone struct {
	ID          string           `json:"id"`
	Type        Type             `json:"type"`
	Shape       Shape            `json:"shape"`
	Center      *geo.Coordinate  `json:"center,omitempty"`
	Radius      float64          `json:"radius,omitempty"`
	Coordinates []geo.Coordinate `json:"coordinates,omitempty"`
	RiskLevel   int              `json:"riskLevel"`
	Title       string           `json:"title"`
	Description string           `json:"description,omitempty"`

	// Provenance, empty for manually created zones.
	AutomatedFrom string `json:"automatedFrom,omitempty"`
	TriggeredBy   string `json:"triggeredBy,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Automated reports whether this zone was created by a rule.
func (z *Zone) Automated() bool {
	return z.AutomatedFrom != ""
}
