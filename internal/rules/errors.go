package rules

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a rule does not exist.
	ErrNotFound = errors.New("rules: rule not found")

	// ErrExists is returned when creating a rule with a duplicate ID.
	ErrExists = errors.New("rules: rule already exists")

	// ErrInvalidRule is the root of all rule validation errors; the
	// specific sentinels below wrap it so callers can match either
	// the class or the exact cause.
	ErrInvalidRule = errors.New("rules: invalid rule")

	ErrInvalidName     = fmt.Errorf("%w: name", ErrInvalidRule)
	ErrInvalidType     = fmt.Errorf("%w: type", ErrInvalidRule)
	ErrInvalidSensors  = fmt.Errorf("%w: sensor list", ErrInvalidRule)
	ErrInvalidOperator = fmt.Errorf("%w: operator", ErrInvalidRule)
	ErrInvalidAction   = fmt.Errorf("%w: action configuration", ErrInvalidRule)

	// ErrInvalidReading is returned for readings the engine cannot evaluate.
	ErrInvalidReading = errors.New("rules: invalid reading")
)
