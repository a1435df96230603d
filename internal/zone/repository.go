package zone

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/PKA-OpenLD/FORMS-app-sub000/internal/geo"
)

// sqliteTimeFormat matches the strftime default used by the schema.
// Stored timestamps sort lexically, so range queries compare strings.
const sqliteTimeFormat = "2006-01-02T15:04:05Z"

// Repository defines persistence operations for zones.
//
// Manual creation (admin API) and automated creation (rule engine) go
// through the same store; the provenance queries only ever match
// automated zones because manual ones have no automated_from.
type Repository interface {
	Create(ctx context.Context, z *Zone) error
	Get(ctx context.Context, id string) (*Zone, error)
	List(ctx context.Context) ([]Zone, error)
	Update(ctx context.Context, z *Zone) error
	Delete(ctx context.Context, id string) error
	DeleteAll(ctx context.Context) (int64, error)

	// GetRecentAutomated returns the newest zone created by the given
	// rule at or after since, or ErrNotFound. This is the dedup guard.
	GetRecentAutomated(ctx context.Context, ruleID string, since time.Time) (*Zone, error)

	// DeleteAutomatedBefore removes automated zones created before the
	// cutoff and returns how many were deleted. Manual zones are never
	// touched.
	DeleteAutomatedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite-backed zone repository.
//
// Security: Uses parameterised SQL queries to prevent injection.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

const zoneColumns = `id, type, shape, center_lng, center_lat, radius, coordinates,
	risk_level, title, description, automated_from, triggered_by, created_at, updated_at`

// Create inserts a new zone. An empty ID is assigned a UUID.
func (r *SQLiteRepository) Create(ctx context.Context, z *Zone) error {
	if z == nil {
		return fmt.Errorf("zone is required")
	}
	if z.ID == "" {
		z.ID = GenerateID()
	}
	if err := ValidateZone(z); err != nil {
		return err
	}

	coordsJSON, err := marshalCoordinates(z.Coordinates)
	if err != nil {
		return err
	}

	query := `INSERT INTO zones (
			id, type, shape, center_lng, center_lat, radius, coordinates,
			risk_level, title, description, automated_from, triggered_by
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = r.db.ExecContext(ctx, query,
		z.ID,
		string(z.Type),
		string(z.Shape),
		nullCoord(z.Center, true),
		nullCoord(z.Center, false),
		nullFloat(z.Radius),
		coordsJSON,
		z.RiskLevel,
		z.Title,
		nullString(z.Description),
		nullString(z.AutomatedFrom),
		nullString(z.TriggeredBy),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ErrExists
		}
		return fmt.Errorf("inserting zone: %w", err)
	}

	return nil
}

// Get retrieves a zone by ID.
//
// Returns ErrNotFound if no zone exists with that ID.
func (r *SQLiteRepository) Get(ctx context.Context, id string) (*Zone, error) {
	query := `SELECT ` + zoneColumns + ` FROM zones WHERE id = ?`

	row := r.db.QueryRowContext(ctx, query, id)
	z, err := scanZoneRow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return z, nil
}

// List returns all zones, newest first.
func (r *SQLiteRepository) List(ctx context.Context) ([]Zone, error) {
	query := `SELECT ` + zoneColumns + ` FROM zones ORDER BY created_at DESC, id`

	return r.queryZones(ctx, query)
}

// Update modifies an existing zone.
//
// Returns ErrNotFound if no zone exists with that ID.
func (r *SQLiteRepository) Update(ctx context.Context, z *Zone) error {
	if z == nil {
		return fmt.Errorf("zone is required")
	}
	if err := ValidateZone(z); err != nil {
		return err
	}

	coordsJSON, err := marshalCoordinates(z.Coordinates)
	if err != nil {
		return err
	}

	query := `UPDATE zones SET
		type = ?, shape = ?, center_lng = ?, center_lat = ?, radius = ?,
		coordinates = ?, risk_level = ?, title = ?, description = ?,
		updated_at = strftime('%Y-%m-%dT%H:%M:%SZ', 'now')
		WHERE id = ?`

	result, err := r.db.ExecContext(ctx, query,
		string(z.Type),
		string(z.Shape),
		nullCoord(z.Center, true),
		nullCoord(z.Center, false),
		nullFloat(z.Radius),
		coordsJSON,
		z.RiskLevel,
		z.Title,
		nullString(z.Description),
		z.ID,
	)
	if err != nil {
		return fmt.Errorf("updating zone: %w", err)
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

// Delete removes a zone by ID.
//
// Returns ErrNotFound if no zone exists with that ID.
func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM zones WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting zone: %w", err)
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

// DeleteAll removes every zone and returns how many were deleted.
func (r *SQLiteRepository) DeleteAll(ctx context.Context) (int64, error) {
	result, err := r.db.ExecContext(ctx, "DELETE FROM zones")
	if err != nil {
		return 0, fmt.Errorf("clearing zones: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("checking rows affected: %w", err)
	}

	return rowsAffected, nil
}

// GetRecentAutomated returns the newest zone created by the given rule
// at or after since.
//
// Returns ErrNotFound if the rule has not created a zone in the window.
func (r *SQLiteRepository) GetRecentAutomated(ctx context.Context, ruleID string, since time.Time) (*Zone, error) {
	query := `SELECT ` + zoneColumns + ` FROM zones
		WHERE automated_from = ? AND created_at >= ?
		ORDER BY created_at DESC LIMIT 1`

	row := r.db.QueryRowContext(ctx, query, ruleID, since.UTC().Format(sqliteTimeFormat))
	z, err := scanZoneRow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return z, nil
}

// DeleteAutomatedBefore removes automated zones created before the cutoff.
func (r *SQLiteRepository) DeleteAutomatedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		"DELETE FROM zones WHERE automated_from IS NOT NULL AND created_at < ?",
		cutoff.UTC().Format(sqliteTimeFormat),
	)
	if err != nil {
		return 0, fmt.Errorf("deleting automated zones: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("checking rows affected: %w", err)
	}

	return rowsAffected, nil
}

// queryZones runs a zone query and returns zone models.
func (r *SQLiteRepository) queryZones(ctx context.Context, query string, args ...any) ([]Zone, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying zones: %w", err)
	}
	defer rows.Close()

	var zones []Zone
	for rows.Next() {
		z, err := scanZoneRow(rows)
		if err != nil {
			return nil, err
		}
		zones = append(zones, *z)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating zones: %w", err)
	}

	return zones, nil
}

// zoneRowScanner is implemented by sql.Row and sql.Rows.
type zoneRowScanner interface {
	Scan(dest ...any) error
}

// scanZoneRow scans a single zone row into a Zone.
func scanZoneRow(scanner zoneRowScanner) (*Zone, error) {
	var z Zone
	var zoneType, shape string
	var centerLng, centerLat, radius sql.NullFloat64
	var coordsJSON, description, automatedFrom, triggeredBy sql.NullString
	var createdAt, updatedAt string

	err := scanner.Scan(
		&z.ID,
		&zoneType,
		&shape,
		&centerLng,
		&centerLat,
		&radius,
		&coordsJSON,
		&z.RiskLevel,
		&z.Title,
		&description,
		&automatedFrom,
		&triggeredBy,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning zone: %w", err)
	}

	z.Type = Type(zoneType)
	z.Shape = Shape(shape)
	if centerLng.Valid && centerLat.Valid {
		z.Center = &geo.Coordinate{Lng: centerLng.Float64, Lat: centerLat.Float64}
	}
	if radius.Valid {
		z.Radius = radius.Float64
	}
	if coordsJSON.Valid && coordsJSON.String != "" {
		if err := json.Unmarshal([]byte(coordsJSON.String), &z.Coordinates); err != nil {
			return nil, fmt.Errorf("zone %s coordinates: %w", z.ID, err)
		}
	}
	z.Description = description.String
	z.AutomatedFrom = automatedFrom.String
	z.TriggeredBy = triggeredBy.String
	z.CreatedAt = parseTime(createdAt)
	z.UpdatedAt = parseTime(updatedAt)

	return &z, nil
}

// marshalCoordinates serialises line coordinates for storage.
// Empty coordinates store NULL so circle rows stay compact.
func marshalCoordinates(coords []geo.Coordinate) (sql.NullString, error) {
	if len(coords) == 0 {
		return sql.NullString{}, nil
	}
	b, err := json.Marshal(coords)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("marshalling coordinates: %w", err)
	}
	return sql.NullString{String: string(b), Valid: true}, nil
}

// nullCoord extracts a nullable lng or lat column value from an optional center.
func nullCoord(c *geo.Coordinate, lng bool) sql.NullFloat64 {
	if c == nil {
		return sql.NullFloat64{}
	}
	if lng {
		return sql.NullFloat64{Float64: c.Lng, Valid: true}
	}
	return sql.NullFloat64{Float64: c.Lat, Valid: true}
}

// nullFloat stores zero as NULL (radius only applies to circles).
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
