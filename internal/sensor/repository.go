package sensor

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/PKA-OpenLD/FORMS-app-sub000/internal/geo"
)

// Repository defines persistence operations for sensors.
//
// The rule engine only reads through this interface; creation and
// deletion happen via the admin API.
type Repository interface {
	Create(ctx context.Context, s *Sensor) error
	Get(ctx context.Context, id string) (*Sensor, error)
	List(ctx context.Context) ([]Sensor, error)
	Delete(ctx context.Context, id string) error
}

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite-backed sensor repository.
//
// Security: Uses parameterised SQL queries to prevent injection.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Create inserts a new sensor. An empty ID is assigned a UUID.
func (r *SQLiteRepository) Create(ctx context.Context, s *Sensor) error {
	if s == nil {
		return fmt.Errorf("sensor is required")
	}
	if s.ID == "" {
		s.ID = GenerateID()
	}
	if err := ValidateSensor(s); err != nil {
		return err
	}

	query := `INSERT INTO sensors (id, name, type, lng, lat, threshold, action_type)
		VALUES (?, ?, ?, ?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, query,
		s.ID,
		s.Name,
		string(s.Type),
		nullLng(s.Location),
		nullLat(s.Location),
		s.Threshold,
		string(s.ActionType),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ErrExists
		}
		return fmt.Errorf("inserting sensor: %w", err)
	}

	return nil
}

// Get retrieves a sensor by ID.
//
// Returns ErrNotFound if no sensor exists with that ID.
func (r *SQLiteRepository) Get(ctx context.Context, id string) (*Sensor, error) {
	query := `SELECT id, name, type, lng, lat, threshold, action_type, created_at, updated_at
		FROM sensors WHERE id = ?`

	row := r.db.QueryRowContext(ctx, query, id)
	s, err := scanSensorRow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return s, nil
}

// List returns all sensors ordered by name.
func (r *SQLiteRepository) List(ctx context.Context) ([]Sensor, error) {
	query := `SELECT id, name, type, lng, lat, threshold, action_type, created_at, updated_at
		FROM sensors ORDER BY name`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying sensors: %w", err)
	}
	defer rows.Close()

	var sensors []Sensor
	for rows.Next() {
		s, err := scanSensorRow(rows)
		if err != nil {
			return nil, err
		}
		sensors = append(sensors, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating sensors: %w", err)
	}

	return sensors, nil
}

// Delete removes a sensor by ID.
//
// Returns ErrNotFound if no sensor exists with that ID.
func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM sensors WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting sensor: %w", err)
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

// sensorRowScanner is implemented by sql.Row and sql.Rows.
type sensorRowScanner interface {
	Scan(dest ...any) error
}

// scanSensorRow scans a single sensor row into a Sensor.
func scanSensorRow(scanner sensorRowScanner) (*Sensor, error) {
	var s Sensor
	var sensorType string
	var actionType string
	var lng, lat sql.NullFloat64
	var createdAt, updatedAt string

	err := scanner.Scan(
		&s.ID,
		&s.Name,
		&sensorType,
		&lng,
		&lat,
		&s.Threshold,
		&actionType,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning sensor: %w", err)
	}

	s.Type = Type(sensorType)
	s.ActionType = ActionType(actionType)
	if lng.Valid && lat.Valid {
		s.Location = &geo.Coordinate{Lng: lng.Float64, Lat: lat.Float64}
	}
	s.CreatedAt = parseTime(createdAt)
	s.UpdatedAt = parseTime(updatedAt)

	return &s, nil
}

// nullLng converts an optional location into a nullable longitude column value.
func nullLng(c *geo.Coordinate) sql.NullFloat64 {
	if c == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: c.Lng, Valid: true}
}

// nullLat converts an optional location into a nullable latitude column value.
func nullLat(c *geo.Coordinate) sql.NullFloat64 {
	if c == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: c.Lat, Valid: true}
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
