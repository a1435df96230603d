package rules

import (
	"fmt"
	"math"
	"strings"

	"github.com/PKA-OpenLD/FORMS-app-sub000/internal/zone"
)

// maxNameLength bounds rule names for storage and UI display.
const maxNameLength = 100

// ValidateRule checks a rule definition before persistence. Geometry
// prerequisites (sensor location for circles, metadata points for
// lines) are checked at trigger time, not here, since sensors may be
// configured after the rule.
func ValidateRule(r *SensorRule) error {
	if r == nil {
		return fmt.Errorf("%w: nil rule", ErrInvalidRule)
	}

	name := strings.TrimSpace(r.Name)
	if name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidName)
	}
	if len(name) > maxNameLength {
		return fmt.Errorf("%w: name exceeds %d characters", ErrInvalidName, maxNameLength)
	}

	if !ValidRuleType(string(r.Type)) {
		return fmt.Errorf("%w: %q", ErrInvalidType, r.Type)
	}

	switch r.Type {
	case RuleTypeSingle:
		if len(r.Sensors) != 1 {
			return fmt.Errorf("%w: 1-sensor rule needs exactly one sensor, got %d", ErrInvalidSensors, len(r.Sensors))
		}
		if r.Operator != "" {
			return fmt.Errorf("%w: operator is only valid on 2-sensor rules", ErrInvalidOperator)
		}
	case RuleTypeDual:
		if len(r.Sensors) != 2 {
			return fmt.Errorf("%w: 2-sensor rule needs exactly two sensors, got %d", ErrInvalidSensors, len(r.Sensors))
		}
		if r.Sensors[0] == r.Sensors[1] {
			return fmt.Errorf("%w: 2-sensor rule sensors must be distinct", ErrInvalidSensors)
		}
		if !ValidOperator(string(r.Operator)) {
			return fmt.Errorf("%w: %q", ErrInvalidOperator, r.Operator)
		}
	}
	for _, id := range r.Sensors {
		if strings.TrimSpace(id) == "" {
			return fmt.Errorf("%w: empty sensor id", ErrInvalidSensors)
		}
	}

	if !zone.ValidType(string(r.ActionType)) {
		return fmt.Errorf("%w: action type %q", ErrInvalidAction, r.ActionType)
	}
	if !zone.ValidShape(string(r.ActionShape)) {
		return fmt.Errorf("%w: action shape %q", ErrInvalidAction, r.ActionShape)
	}
	if r.ActionRadius < 0 || math.IsNaN(r.ActionRadius) || math.IsInf(r.ActionRadius, 0) {
		return fmt.Errorf("%w: action radius must be a non-negative number", ErrInvalidAction)
	}

	if r.Metadata != nil {
		if c := r.Metadata.Condition; c != "" && c != ConditionActive && c != ConditionInactive {
			return fmt.Errorf("%w: condition %q", ErrInvalidRule, c)
		}
		for i, p := range r.Metadata.Points {
			if !p.Valid() {
				return fmt.Errorf("%w: point %d out of bounds [%g, %g]", ErrInvalidRule, i, p.Lng, p.Lat)
			}
		}
	}

	return nil
}
