package rules

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/PKA-OpenLD/FORMS-app-sub000/internal/zone"
)

// Repository defines persistence operations for sensor rules.
type Repository interface {
	Create(ctx context.Context, rule *SensorRule) error
	Get(ctx context.Context, id string) (*SensorRule, error)
	List(ctx context.Context) ([]SensorRule, error)
	ListEnabled(ctx context.Context) ([]SensorRule, error)
	Update(ctx context.Context, rule *SensorRule) error
	Delete(ctx context.Context, id string) error
}

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite-backed rule repository.
//
// Security: Uses parameterised SQL queries to prevent injection.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

const ruleColumns = `id, name, type, sensors, operator, action_type, action_shape,
	action_radius, enabled, metadata, created_at, updated_at`

// Create inserts a new rule. An empty ID is assigned a UUID.
func (r *SQLiteRepository) Create(ctx context.Context, rule *SensorRule) error {
	if rule == nil {
		return fmt.Errorf("rule is required")
	}
	if rule.ID == "" {
		rule.ID = GenerateID()
	}
	if err := ValidateRule(rule); err != nil {
		return err
	}

	sensorsJSON, err := json.Marshal(rule.Sensors)
	if err != nil {
		return fmt.Errorf("marshalling sensors: %w", err)
	}
	metadataJSON, err := marshalMetadata(rule.Metadata)
	if err != nil {
		return err
	}

	query := `INSERT INTO sensor_rules (
			id, name, type, sensors, operator, action_type, action_shape,
			action_radius, enabled, metadata
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = r.db.ExecContext(ctx, query,
		rule.ID,
		rule.Name,
		string(rule.Type),
		string(sensorsJSON),
		nullString(string(rule.Operator)),
		string(rule.ActionType),
		string(rule.ActionShape),
		nullFloat(rule.ActionRadius),
		boolToInt(rule.Enabled),
		metadataJSON,
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ErrExists
		}
		return fmt.Errorf("inserting rule: %w", err)
	}

	return nil
}

// Get retrieves a rule by ID.
//
// Returns ErrNotFound if no rule exists with that ID.
func (r *SQLiteRepository) Get(ctx context.Context, id string) (*SensorRule, error) {
	query := `SELECT ` + ruleColumns + ` FROM sensor_rules WHERE id = ?`

	row := r.db.QueryRowContext(ctx, query, id)
	rule, err := scanRuleRow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return rule, nil
}

// List returns all rules ordered by name.
func (r *SQLiteRepository) List(ctx context.Context) ([]SensorRule, error) {
	query := `SELECT ` + ruleColumns + ` FROM sensor_rules ORDER BY name, id`

	return r.queryRules(ctx, query)
}

// ListEnabled returns only rules the engine should evaluate.
func (r *SQLiteRepository) ListEnabled(ctx context.Context) ([]SensorRule, error) {
	query := `SELECT ` + ruleColumns + ` FROM sensor_rules WHERE enabled = 1 ORDER BY name, id`

	return r.queryRules(ctx, query)
}

// Update modifies an existing rule.
//
// Returns ErrNotFound if no rule exists with that ID.
func (r *SQLiteRepository) Update(ctx context.Context, rule *SensorRule) error {
	if rule == nil {
		return fmt.Errorf("rule is required")
	}
	if err := ValidateRule(rule); err != nil {
		return err
	}

	sensorsJSON, err := json.Marshal(rule.Sensors)
	if err != nil {
		return fmt.Errorf("marshalling sensors: %w", err)
	}
	metadataJSON, err := marshalMetadata(rule.Metadata)
	if err != nil {
		return err
	}

	query := `UPDATE sensor_rules SET
		name = ?, type = ?, sensors = ?, operator = ?, action_type = ?,
		action_shape = ?, action_radius = ?, enabled = ?, metadata = ?,
		updated_at = strftime('%Y-%m-%dT%H:%M:%SZ', 'now')
		WHERE id = ?`

	result, err := r.db.ExecContext(ctx, query,
		rule.Name,
		string(rule.Type),
		string(sensorsJSON),
		nullString(string(rule.Operator)),
		string(rule.ActionType),
		string(rule.ActionShape),
		nullFloat(rule.ActionRadius),
		boolToInt(rule.Enabled),
		metadataJSON,
		rule.ID,
	)
	if err != nil {
		return fmt.Errorf("updating rule: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

// Delete removes a rule by ID.
//
// Returns ErrNotFound if no rule exists with that ID.
func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM sensor_rules WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting rule: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

// queryRules runs a rule query and returns rule models.
func (r *SQLiteRepository) queryRules(ctx context.Context, query string, args ...any) ([]SensorRule, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying rules: %w", err)
	}
	defer rows.Close()

	var out []SensorRule
	for rows.Next() {
		rule, err := scanRuleRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *rule)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating rules: %w", err)
	}

	return out, nil
}

// ruleRowScanner is implemented by sql.Row and sql.Rows.
type ruleRowScanner interface {
	Scan(dest ...any) error
}

// scanRuleRow scans a single rule row into a SensorRule.
func scanRuleRow(scanner ruleRowScanner) (*SensorRule, error) {
	var rule SensorRule
	var ruleType, actionType, actionShape, sensorsJSON string
	var operator, metadataJSON sql.NullString
	var actionRadius sql.NullFloat64
	var enabled int
	var createdAt, updatedAt string

	err := scanner.Scan(
		&rule.ID,
		&rule.Name,
		&ruleType,
		&sensorsJSON,
		&operator,
		&actionType,
		&actionShape,
		&actionRadius,
		&enabled,
		&metadataJSON,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning rule: %w", err)
	}

	rule.Type = RuleType(ruleType)
	rule.Operator = Operator(operator.String)
	rule.ActionType = zone.Type(actionType)
	rule.ActionShape = zone.Shape(actionShape)
	if actionRadius.Valid {
		rule.ActionRadius = actionRadius.Float64
	}
	rule.Enabled = enabled != 0
	if err := json.Unmarshal([]byte(sensorsJSON), &rule.Sensors); err != nil {
		return nil, fmt.Errorf("rule %s sensors: %w", rule.ID, err)
	}
	if metadataJSON.Valid && metadataJSON.String != "" {
		rule.Metadata = &Metadata{}
		if err := json.Unmarshal([]byte(metadataJSON.String), rule.Metadata); err != nil {
			return nil, fmt.Errorf("rule %s metadata: %w", rule.ID, err)
		}
	}
	rule.CreatedAt = parseTime(createdAt)
	rule.UpdatedAt = parseTime(updatedAt)

	return &rule, nil
}

// marshalMetadata serialises rule metadata, storing NULL when absent.
func marshalMetadata(md *Metadata) (sql.NullString, error) {
	if md == nil {
		return sql.NullString{}, nil
	}
	b, err := json.Marshal(md)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("marshalling metadata: %w", err)
	}
	return sql.NullString{String: string(b), Valid: true}, nil
}

// nullFloat stores zero as NULL (radius only applies to circle actions).
func nullFloat(f float64) sql.NullFloat64 {
	if f == 0 {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: f, Valid: true}
}

// nullString stores the empty string as NULL.
func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// parseTime parses an ISO 8601 timestamp from SQLite.
func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

// isUniqueConstraintError detects SQLite unique constraint violations.
func isUniqueConstraintError(err error) bool {
	return err != nil && !errors.Is(err, sql.ErrNoRows) &&
		strings.Contains(err.Error(), "UNIQUE constraint failed")
}
