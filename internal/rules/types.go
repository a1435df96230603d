package rules

import (
	"time"

	"github.com/PKA-OpenLD/FORMS-app-sub000/internal/geo"
	"github.com/PKA-OpenLD/FORMS-app-sub000/internal/zone"
	"github.com/google/uuid"
)

// RuleType distinguishes single-sensor from paired-sensor rules.
type RuleType string

const (
	// RuleTypeSingle evaluates one sensor against its threshold.
	RuleTypeSingle RuleType = "1-sensor"
	// RuleTypeDual combines two sensors' threshold states with an operator.
	RuleTypeDual RuleType = "2-sensor"
)

// ValidRuleType checks whether the given string is a valid rule type.
func ValidRuleType(s string) bool {
	return RuleType(s) == RuleTypeSingle || RuleType(s) == RuleTypeDual
}

// Operator combines the two threshold states of a paired-sensor rule.
type Operator string

const (
	OperatorAnd Operator = "AND"
	OperatorOr  Operator = "OR"
)

// ValidOperator checks whether the given string is a valid operator.
func ValidOperator(s string) bool {
	return Operator(s) == OperatorAnd || Operator(s) == OperatorOr
}

// Condition selects which side of the threshold fires a single-sensor
// rule. Active (the default) fires above threshold; inactive inverts,
// firing when the reading is at or below it.
type Condition string

const (
	ConditionActive   Condition = "active"
	ConditionInactive Condition = "inactive"
)

// Metadata carries optional per-rule configuration.
type Metadata struct {
	Condition Condition        `json:"condition,omitempty"`
	Points    []geo.Coordinate `json:"points,omitempty"`
}

// SensorRule maps one or two sensors' threshold conditions to automatic
// zone creation. Thresholds live on the sensors themselves; the rule
// decides how threshold states combine and what zone to draw.
type SensorRule struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	Type    RuleType `json:"type"`
	Sensors []string `json:"sensors"`
	// Operator is required for 2-sensor rules and must be empty otherwise.
	Operator Operator `json:"operator,omitempty"`

	ActionType  zone.Type  `json:"actionType"`
	ActionShape zone.Shape `json:"actionShape"`
	// ActionRadius in meters for circle zones; zero means the default.
	ActionRadius float64 `json:"actionRadius,omitempty"`

	Enabled  bool      `json:"enabled"`
	Metadata *Metadata `json:"metadata,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// EvalCondition returns the rule's evaluation condition, defaulting to
// active.
func (r *SensorRule) EvalCondition() Condition {
	if r.Metadata != nil && r.Metadata.Condition == ConditionInactive {
		return ConditionInactive
	}
	return ConditionActive
}

// Points returns the rule's line geometry, or nil when unset.
func (r *SensorRule) Points() []geo.Coordinate {
	if r.Metadata == nil {
		return nil
	}
	return r.Metadata.Points
}

// DeepCopy returns an independent copy of the rule.
func (r *SensorRule) DeepCopy() *SensorRule {
	clone := *r
	clone.Sensors = append([]string(nil), r.Sensors...)
	if r.Metadata != nil {
		md := *r.Metadata
		md.Points = append([]geo.Coordinate(nil), r.Metadata.Points...)
		clone.Metadata = &md
	}
	return &clone
}

// Reading is a single sensor measurement entering the engine.
// Timestamp is epoch milliseconds as reported by the sensor gateway.
type Reading struct {
	SensorID   string  `json:"sensorId"`
	Value      float64 `json:"value"`
	Timestamp  int64   `json:"timestamp"`
	SensorName string  `json:"sensorName,omitempty"`
	SensorType string  `json:"sensorType,omitempty"`
}

// Result is the outcome of processing one reading, returned to the
// ingestion caller.
type Result struct {
	RulesChecked   int      `json:"rules_checked"`
	RulesTriggered int      `json:"rules_triggered"`
	ZonesCreated   []string `json:"zones_created"`
}

// GenerateID creates a new unique rule identifier.
func GenerateID() string {
	return uuid.New().String()
}
