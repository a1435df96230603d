package camera

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/PKA-OpenLD/FORMS-app-sub000/internal/geo"
)

// Repository defines persistence operations for cameras.
type Repository interface {
	Create(ctx context.Context, c *Camera) error
	GetByID(ctx context.Context, id string) (*Camera, error)
	List(ctx context.Context) ([]Camera, error)
	Delete(ctx context.Context, id string) error

	// UpdateCounts overwrites the camera's detection counts and stamps
	// last_detection_at.
	UpdateCounts(ctx context.Context, id string, counts, uniqueCounts Counts) error

	// UpdateWebRTC records the camera's signaling session state.
	UpdateWebRTC(ctx context.Context, id string, state string) error
}

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite-backed camera repository.
//
// Security: Uses parameterised SQL queries to prevent injection.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

const cameraColumns = `id, name, lng, lat, counts, unique_counts, webrtc_state,
	last_detection_at, created_at, updated_at`

// Create inserts a new camera. An empty ID is assigned a UUID.
func (r *SQLiteRepository) Create(ctx context.Context, c *Camera) error {
	if c == nil {
		return fmt.Errorf("camera is required")
	}
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	if strings.TrimSpace(c.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidCamera)
	}
	if c.WebRTCState == "" {
		c.WebRTCState = WebRTCIdle
	}

	countsJSON, err := marshalCounts(c.Counts)
	if err != nil {
		return err
	}
	uniqueJSON, err := marshalCounts(c.UniqueCounts)
	if err != nil {
		return err
	}

	query := `INSERT INTO cameras (id, name, lng, lat, counts, unique_counts, webrtc_state)
		VALUES (?, ?, ?, ?, ?, ?, ?)`

	_, err = r.db.ExecContext(ctx, query,
		c.ID,
		c.Name,
		nullLng(c.Location),
		nullLat(c.Location),
		countsJSON,
		uniqueJSON,
		c.WebRTCState,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return ErrExists
		}
		return fmt.Errorf("inserting camera: %w", err)
	}

	return nil
}

// GetByID retrieves a camera by ID.
//
// Returns ErrNotFound if no camera exists with that ID.
func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*Camera, error) {
	query := `SELECT ` + cameraColumns + ` FROM cameras WHERE id = ?`

	row := r.db.QueryRowContext(ctx, query, id)
	c, err := scanCameraRow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return c, nil
}

// List returns all cameras ordered by name.
func (r *SQLiteRepository) List(ctx context.Context) ([]Camera, error) {
	query := `SELECT ` + cameraColumns + ` FROM cameras ORDER BY name`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying cameras: %w", err)
	}
	defer rows.Close()

	var cameras []Camera
	for rows.Next() {
		c, err := scanCameraRow(rows)
		if err != nil {
			return nil, err
		}
		cameras = append(cameras, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating cameras: %w", err)
	}

	return cameras, nil
}

// Delete removes a camera by ID.
func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM cameras WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting camera: %w", err)
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

// UpdateCounts overwrites the camera's detection counts.
//
// Returns ErrNotFound if no camera exists with that ID.
func (r *SQLiteRepository) UpdateCounts(ctx context.Context, id string, counts, uniqueCounts Counts) error {
	countsJSON, err := marshalCounts(counts)
	if err != nil {
		return err
	}
	uniqueJSON, err := marshalCounts(uniqueCounts)
	if err != nil {
		return err
	}

	query := `UPDATE cameras SET
		counts = ?, unique_counts = ?,
		last_detection_at = strftime('%Y-%m-%dT%H:%M:%SZ', 'now'),
		updated_at = strftime('%Y-%m-%dT%H:%M:%SZ', 'now')
		WHERE id = ?`

	result, err := r.db.ExecContext(ctx, query, countsJSON, uniqueJSON, id)
	if err != nil {
		return fmt.Errorf("updating camera counts: %w", err)
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

// UpdateWebRTC records the camera's signaling session state.
//
// Returns ErrNotFound if no camera exists with that ID.
func (r *SQLiteRepository) UpdateWebRTC(ctx context.Context, id string, state string) error {
	query := `UPDATE cameras SET
		webrtc_state = ?,
		updated_at = strftime('%Y-%m-%dT%H:%M:%SZ', 'now')
		WHERE id = ?`

	result, err := r.db.ExecContext(ctx, query, state, id)
	if err != nil {
		return fmt.Errorf("updating camera webrtc state: %w", err)
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

// cameraRowScanner is implemented by sql.Row and sql.Rows.
type cameraRowScanner interface {
	Scan(dest ...any) error
}

// scanCameraRow scans a single camera row into a Camera.
func scanCameraRow(scanner cameraRowScanner) (*Camera, error) {
	var c Camera
	var lng, lat sql.NullFloat64
	var countsJSON, uniqueJSON string
	var lastDetection sql.NullString
	var createdAt, updatedAt string

	err := scanner.Scan(
		&c.ID,
		&c.Name,
		&lng,
		&lat,
		&countsJSON,
		&uniqueJSON,
		&c.WebRTCState,
		&lastDetection,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning camera: %w", err)
	}

	if lng.Valid && lat.Valid {
		c.Location = &geo.Coordinate{Lng: lng.Float64, Lat: lat.Float64}
	}
	c.Counts = parseCounts(countsJSON)
	c.UniqueCounts = parseCounts(uniqueJSON)
	if lastDetection.Valid {
		t := parseTime(lastDetection.String)
		c.LastDetectionAt = &t
	}
	c.CreatedAt = parseTime(createdAt)
	c.UpdatedAt = parseTime(updatedAt)

	return &c, nil
}

// marshalCounts serialises counts to JSON for storage.
func marshalCounts(counts Counts) (string, error) {
	if counts == nil {
		return "{}", nil
	}
	b, err := json.Marshal(counts)
	if err != nil {
		return "", fmt.Errorf("marshalling counts: %w", err)
	}
	return string(b), nil
}

// parseCounts deserialises stored counts, returning an empty map on
// malformed data rather than failing the whole row.
func parseCounts(s string) Counts {
	counts := make(Counts)
	if s == "" {
		return counts
	}
	if err := json.Unmarshal([]byte(s), &counts); err != nil {
		return make(Counts)
	}
	return counts
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
