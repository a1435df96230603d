package zone

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Validation limits.
const (
	maxTitleLength = 200
	minLinePoints  = 2
	maxRiskLevel   = 100
)

// ValidateZone checks a zone definition before persistence.
func ValidateZone(z *Zone) error {
	if z == nil {
		return fmt.Errorf("%w: nil zone", ErrInvalidZone)
	}

	title := strings.TrimSpace(z.Title)
	if title == "" {
		return fmt.Errorf("%w: title is required", ErrInvalidZone)
	}
	if len(title) > maxTitleLength {
		return fmt.Errorf("%w: title exceeds %d characters", ErrInvalidZone, maxTitleLength)
	}

	if !ValidType(string(z.Type)) {
		return fmt.Errorf("%w: type %q", ErrInvalidZone, z.Type)
	}
	if !ValidShape(string(z.Shape)) {
		return fmt.Errorf("%w: shape %q", ErrInvalidZone, z.Shape)
	}

	if z.RiskLevel < 0 || z.RiskLevel > maxRiskLevel {
		return fmt.Errorf("%w: %d", ErrInvalidRiskLevel, z.RiskLevel)
	}

	switch z.Shape {
	case ShapeCircle:
		if z.Center == nil {
			return fmt.Errorf("%w: circle requires a center", ErrInvalidGeometry)
		}
		if !z.Center.Valid() {
			return fmt.Errorf("%w: center out of bounds", ErrInvalidGeometry)
		}
		if z.Radius <= 0 {
			return fmt.Errorf("%w: circle requires a positive radius", ErrInvalidGeometry)
		}
	case ShapeLine:
		if len(z.Coordinates) < minLinePoints {
			return fmt.Errorf("%w: line requires at least %d points", ErrInvalidGeometry, minLinePoints)
		}
		for i, c := range z.Coordinates {
			if !c.Valid() {
				return fmt.Errorf("%w: point %d out of bounds", ErrInvalidGeometry, i)
			}
		}
	}

	return nil
}

// GenerateID creates a new UUID for a zone.
func GenerateID() string {
	return uuid.New().String()
}
