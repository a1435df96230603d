package zone

import (
	"errors"
	"fmt"
)

// Domain errors for the zone package.
//
// These errors can be checked using errors.Is() for error handling:
//
//	if errors.Is(err, zone.ErrNotFound) {
//	    // handle not found case
//	}
var (
	// ErrNotFound is returned when a zone ID does not exist.
	ErrNotFound = errors.New("zone: not found")

	// ErrExists is returned when creating a zone with an ID that already exists.
	ErrExists = errors.New("zone: already exists")

	// ErrInvalidZone is the root of all zone validation errors; the
	// specific sentinels below wrap it so callers can match either the
	// class or the exact cause.
	ErrInvalidZone = errors.New("zone: invalid")

	// ErrInvalidGeometry is returned when a zone's geometry does not match its shape.
	ErrInvalidGeometry = fmt.Errorf("%w geometry", ErrInvalidZone)

	// ErrInvalidRiskLevel is returned when a risk level is outside 0-100.
	ErrInvalidRiskLevel = fmt.Errorf("%w risk level", ErrInvalidZone)
)
