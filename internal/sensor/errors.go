package sensor

import (
	"errors"
	"fmt"
)

// Domain errors for the sensor package.
//
// These errors can be checked using errors.Is() for error handling:
//
//	if errors.Is(err, sensor.ErrNotFound) {
//	    // handle not found case
//	}
var (
	// ErrNotFound is returned when a sensor ID does not exist.
	ErrNotFound = errors.New("sensor: not found")

	// ErrExists is returned when creating a sensor with an ID that already exists.
	ErrExists = errors.New("sensor: already exists")

	// ErrInvalidSensor is the root of all sensor validation errors; the
	// specific sentinels below wrap it so callers can match either the
	// class or the exact cause.
	ErrInvalidSensor = errors.New("sensor: invalid")

	// ErrInvalidName is returned when a sensor name is empty or too long.
	ErrInvalidName = fmt.Errorf("%w name", ErrInvalidSensor)

	// ErrInvalidType is returned when a sensor type is not recognised.
	ErrInvalidType = fmt.Errorf("%w type", ErrInvalidSensor)

	// ErrInvalidActionType is returned when an action type is not recognised.
	ErrInvalidActionType = fmt.Errorf("%w action type", ErrInvalidSensor)

	// ErrInvalidLocation is returned when a location is outside WGS84 bounds.
	ErrInvalidLocation = fmt.Errorf("%w location", ErrInvalidSensor)
)
