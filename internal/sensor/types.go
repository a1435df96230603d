package sensor

import (
	"time"

	"github.com/PKA-OpenLD/FORMS-app-sub000/internal/geo"
)

// Type identifies what a sensor measures.
type Type string

const (
	TypeWaterLevel  Type = "water_level"
	TypeTemperature Type = "temperature"
	TypeHumidity    Type = "humidity"
)

// AllTypes returns all valid sensor types.
func AllTypes() []Type {
	return []Type{TypeWaterLevel, TypeTemperature, TypeHumidity}
}

// validTypes is a pre-computed set for O(1) type validation.
var validTypes = func() map[Type]struct{} {
	m := make(map[Type]struct{}, len(AllTypes()))
	for _, t := range AllTypes() {
		m[t] = struct{}{}
	}
	return m
}()

// ValidType checks whether the given string is a valid sensor type.
func ValidType(s string) bool {
	_, ok := validTypes[Type(s)]
	return ok
}

// ActionType is the kind of event a sensor's threshold crossing signals.
type ActionType string

const (
	ActionFlood  ActionType = "flood"
	ActionOutage ActionType = "outage"
)

// ValidActionType checks whether the given string is a valid action type.
func ValidActionType(s string) bool {
	return ActionType(s) == ActionFlood || ActionType(s) == ActionOutage
}

// Sensor is a configured measurement point on the community map.
//
// Threshold is the value a reading is compared against during rule
// evaluation; the comparison itself (above/below, combined with another
// sensor) lives on the rule, not here. Location anchors automated
// circle zones and is optional: a sensor without one still feeds rules
// but cannot anchor a circle.
type Sensor struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Type       Type            `json:"type"`
	Location   *geo.Coordinate `json:"location,omitempty"`
	Threshold  float64         `json:"threshold"`
	ActionType ActionType      `json:"actionType"`
	CreatedAt  time.Time       `json:"createdAt"`
	UpdatedAt  time.Time       `json:"updatedAt"`
}
