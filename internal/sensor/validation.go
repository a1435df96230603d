package sensor

import (
	"fmt"
	"math"
	"strings"

	"github.com/google/uuid"
)

// maxNameLength bounds sensor names for storage and UI display.
const maxNameLength = 100

// ValidateSensor checks a sensor definition before persistence.
func ValidateSensor(s *Sensor) error {
	if s == nil {
		return fmt.Errorf("%w: nil sensor", ErrInvalidSensor)
	}

	name := strings.TrimSpace(s.Name)
	if name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidName)
	}
	if len(name) > maxNameLength {
		return fmt.Errorf("%w: name exceeds %d characters", ErrInvalidName, maxNameLength)
	}

	if !ValidType(string(s.Type)) {
		return fmt.Errorf("%w: %q", ErrInvalidType, s.Type)
	}

	if !ValidActionType(string(s.ActionType)) {
		return fmt.Errorf("%w: %q", ErrInvalidActionType, s.ActionType)
	}

	if math.IsNaN(s.Threshold) || math.IsInf(s.Threshold, 0) {
		return fmt.Errorf("%w: threshold must be finite", ErrInvalidSensor)
	}

	if s.Location != nil && !s.Location.Valid() {
		return fmt.Errorf("%w: [%g, %g]", ErrInvalidLocation, s.Location.Lng, s.Location.Lat)
	}

	return nil
}

// GenerateID creates a new UUID for a sensor.
func GenerateID() string {
	return uuid.New().String()
}
