package rules

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/PKA-OpenLD/FORMS-app-sub000/internal/geo"
	"github.com/PKA-OpenLD/FORMS-app-sub000/internal/hub"
	"github.com/PKA-OpenLD/FORMS-app-sub000/internal/infrastructure/mqtt"
	"github.com/PKA-OpenLD/FORMS-app-sub000/internal/sensor"
	"github.com/PKA-OpenLD/FORMS-app-sub000/internal/zone"
)

// DedupWindow bounds automated-zone spam from a sensor oscillating
// around its threshold: a rule that already created a zone this
// recently reuses it instead of creating another.
const DedupWindow = 5 * time.Minute

// automatedRiskLevel is assigned to every rule-created zone.
const automatedRiskLevel = 80

// SensorStore is the interface the engine needs from the sensor package.
type SensorStore interface {
	Get(ctx context.Context, id string) (*sensor.Sensor, error)
}

// RuleSource supplies the rules to evaluate. Satisfied by Registry.
type RuleSource interface {
	ListEnabled(ctx context.Context) ([]SensorRule, error)
}

// ZoneStore is the interface the engine needs from the zone package.
type ZoneStore interface {
	Create(ctx context.Context, z *zone.Zone) error
	GetRecentAutomated(ctx context.Context, ruleID string, since time.Time) (*zone.Zone, error)
	DeleteAutomatedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// Broadcaster pushes a typed event to connected map clients. May be nil.
type Broadcaster interface {
	Broadcast(eventType string, payload any)
}

// EventPublisher publishes zone events to the message bus. May be nil.
type EventPublisher interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
}

// Engine converts sensor readings into automated zone creation.
//
// Each reading overwrites the in-memory latest-reading map, then every
// enabled rule is evaluated against the latest values. Triggered rules
// create zones through the zone store, subject to the dedup window.
//
// Thread Safety: ProcessReading is safe for concurrent use. The latest
// map is owned by the engine and guarded by its mutex; nothing else
// reads or writes it.
type Engine struct {
	sensors   SensorStore
	rules     RuleSource
	zones     ZoneStore
	broadcast Broadcaster
	events    EventPublisher
	logger    Logger

	mu     sync.RWMutex
	latest map[string]Reading
}

// NewEngine creates a rule engine. broadcast and events may be nil when
// no live clients or message bus are attached.
func NewEngine(sensors SensorStore, rules RuleSource, zones ZoneStore, broadcast Broadcaster, events EventPublisher, logger Logger) *Engine {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Engine{
		sensors:   sensors,
		rules:     rules,
		zones:     zones,
		broadcast: broadcast,
		events:    events,
		logger:    logger,
		latest:    make(map[string]Reading),
	}
}

// ProcessReading records a reading and evaluates every enabled rule
// against the latest sensor values.
//
// The latest-reading map is updated before rules load, so a rule store
// failure never loses the measurement. Rules whose zone creation is
// skipped (missing sensor location, missing line points) still count as
// triggered; they contribute no zone id.
func (e *Engine) ProcessReading(ctx context.Context, reading Reading) (Result, error) {
	if reading.SensorID == "" {
		return Result{}, fmt.Errorf("%w: sensor id is required", ErrInvalidReading)
	}
	if math.IsNaN(reading.Value) || math.IsInf(reading.Value, 0) {
		return Result{}, fmt.Errorf("%w: value must be finite", ErrInvalidReading)
	}

	e.mu.Lock()
	e.latest[reading.SensorID] = reading
	e.mu.Unlock()

	enabled, err := e.rules.ListEnabled(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("loading rules: %w", err)
	}

	result := Result{
		RulesChecked: len(enabled),
		ZonesCreated: []string{},
	}

	for i := range enabled {
		rule := &enabled[i]

		triggered := e.evaluate(ctx, rule, reading)
		if !triggered {
			continue
		}
		result.RulesTriggered++

		e.logger.Info("rule triggered",
			"rule_id", rule.ID,
			"rule_name", rule.Name,
			"sensor_id", reading.SensorID,
			"value", reading.Value,
		)

		if zoneID := e.createAutomatedZone(ctx, rule, reading); zoneID != "" {
			result.ZonesCreated = append(result.ZonesCreated, zoneID)
		}
	}

	return result, nil
}

// LatestReading returns the most recent reading recorded for a sensor.
func (e *Engine) LatestReading(sensorID string) (Reading, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	r, ok := e.latest[sensorID]
	return r, ok
}

// evaluate decides whether a rule fires given the latest readings.
// A rule referencing an unknown sensor never fires.
func (e *Engine) evaluate(ctx context.Context, rule *SensorRule, reading Reading) bool {
	switch rule.Type {
	case RuleTypeSingle:
		return e.evaluateSingle(ctx, rule, reading)
	case RuleTypeDual:
		return e.evaluateDual(ctx, rule)
	default:
		return false
	}
}

// evaluateSingle fires only for readings from the rule's own sensor.
func (e *Engine) evaluateSingle(ctx context.Context, rule *SensorRule, reading Reading) bool {
	if len(rule.Sensors) != 1 || rule.Sensors[0] != reading.SensorID {
		return false
	}

	exceeded, ok := e.thresholdExceeded(ctx, reading.SensorID)
	if !ok {
		return false
	}

	if rule.EvalCondition() == ConditionInactive {
		return !exceeded
	}
	return exceeded
}

// evaluateDual requires a recorded reading for both sensors; the
// missing sensor's last-known state is never assumed.
func (e *Engine) evaluateDual(ctx context.Context, rule *SensorRule) bool {
	if len(rule.Sensors) != 2 {
		return false
	}

	e.mu.RLock()
	_, haveFirst := e.latest[rule.Sensors[0]]
	_, haveSecond := e.latest[rule.Sensors[1]]
	e.mu.RUnlock()
	if !haveFirst || !haveSecond {
		return false
	}

	first, ok := e.thresholdExceeded(ctx, rule.Sensors[0])
	if !ok {
		return false
	}
	second, ok := e.thresholdExceeded(ctx, rule.Sensors[1])
	if !ok {
		return false
	}

	if rule.Operator == OperatorOr {
		return first || second
	}
	return first && second
}

// thresholdExceeded compares a sensor's latest value against its own
// configured threshold. Returns ok=false when the sensor has no
// recorded reading or its config cannot be loaded.
func (e *Engine) thresholdExceeded(ctx context.Context, sensorID string) (exceeded, ok bool) {
	e.mu.RLock()
	reading, have := e.latest[sensorID]
	e.mu.RUnlock()
	if !have {
		return false, false
	}

	cfg, err := e.sensors.Get(ctx, sensorID)
	if err != nil {
		e.logger.Debug("sensor config unavailable, rule not evaluated", "sensor_id", sensorID, "error", err)
		return false, false
	}

	return reading.Value > cfg.Threshold, true
}

// createAutomatedZone builds and persists the zone a triggered rule
// asks for. Returns the zone id, the deduplicated existing id, or empty
// when creation was skipped or failed.
func (e *Engine) createAutomatedZone(ctx context.Context, rule *SensorRule, reading Reading) string {
	since := time.Now().UTC().Add(-DedupWindow)
	existing, err := e.zones.GetRecentAutomated(ctx, rule.ID, since)
	if err == nil {
		e.logger.Debug("automated zone suppressed by dedup window",
			"rule_id", rule.ID, "zone_id", existing.ID)
		return existing.ID
	}
	if !errors.Is(err, zone.ErrNotFound) {
		e.logger.Warn("dedup lookup failed, creating anyway", "rule_id", rule.ID, "error", err)
	}

	z := &zone.Zone{
		Type:          rule.ActionType,
		Shape:         rule.ActionShape,
		RiskLevel:     automatedRiskLevel,
		AutomatedFrom: rule.ID,
		TriggeredBy:   reading.SensorID,
	}

	sensorName := reading.SensorName
	switch rule.ActionShape {
	case zone.ShapeCircle:
		cfg, err := e.sensors.Get(ctx, e.geometrySensorID(rule, reading))
		if err != nil {
			e.logger.Warn("circle zone skipped, sensor config unavailable",
				"rule_id", rule.ID, "error", err)
			return ""
		}
		if cfg.Location == nil {
			e.logger.Warn("circle zone skipped, sensor has no location",
				"rule_id", rule.ID, "sensor_id", cfg.ID)
			return ""
		}
		center := *cfg.Location
		z.Center = &center
		z.Radius = rule.ActionRadius
		if z.Radius == 0 {
			z.Radius = zone.DefaultRadius
		}
		if sensorName == "" {
			sensorName = cfg.Name
		}
	case zone.ShapeLine:
		points := rule.Points()
		if len(points) < 2 {
			e.logger.Warn("line zone skipped, rule has fewer than 2 points",
				"rule_id", rule.ID, "points", len(points))
			return ""
		}
		z.Coordinates = append([]geo.Coordinate(nil), points...)
	}

	if sensorName == "" {
		sensorName = reading.SensorID
	}
	z.Title = fmt.Sprintf("Automated %s zone: %s", rule.ActionType, rule.Name)
	z.Description = fmt.Sprintf("Rule %q triggered by sensor %q reporting %.2f",
		rule.Name, sensorName, reading.Value)

	if err := e.zones.Create(ctx, z); err != nil {
		e.logger.Error("automated zone creation failed", "rule_id", rule.ID, "error", err)
		return ""
	}

	e.logger.Info("automated zone created",
		"zone_id", z.ID,
		"rule_id", rule.ID,
		"type", z.Type,
		"shape", z.Shape,
	)

	if e.broadcast != nil {
		e.broadcast.Broadcast(hub.EventZoneCreated, z)
	}
	e.publishZoneEvent(z)

	return z.ID
}

// publishZoneEvent mirrors zone creation onto the message bus for
// headless consumers (dashboards, alerting).
func (e *Engine) publishZoneEvent(z *zone.Zone) {
	if e.events == nil {
		return
	}

	payload, err := json.Marshal(map[string]any{
		"id":            z.ID,
		"type":          z.Type,
		"shape":         z.Shape,
		"riskLevel":     z.RiskLevel,
		"automatedFrom": z.AutomatedFrom,
		"triggeredBy":   z.TriggeredBy,
	})
	if err != nil {
		return
	}
	topic := mqtt.Topics{}.Event(hub.EventZoneCreated)
	if err := e.events.Publish(topic, payload, 1, false); err != nil {
		e.logger.Debug("zone event publish failed", "zone_id", z.ID, "error", err)
	}
}

// geometrySensorID picks the sensor whose location anchors a circle
// zone: the triggering reading's sensor when the rule references it,
// otherwise the rule's first sensor.
func (e *Engine) geometrySensorID(rule *SensorRule, reading Reading) string {
	for _, id := range rule.Sensors {
		if id == reading.SensorID {
			return id
		}
	}
	return rule.Sensors[0]
}

// CleanupAutomatedZones deletes automated zones older than maxAge.
// Advisory: failures are logged, never propagated, and the caller
// decides cadence.
func (e *Engine) CleanupAutomatedZones(ctx context.Context, maxAge time.Duration) int64 {
	cutoff := time.Now().UTC().Add(-maxAge)
	deleted, err := e.zones.DeleteAutomatedBefore(ctx, cutoff)
	if err != nil {
		e.logger.Warn("automated zone cleanup failed", "error", err)
		return 0
	}
	if deleted > 0 {
		e.logger.Info("automated zones expired", "deleted", deleted, "max_age", maxAge)
	}
	return deleted
}
