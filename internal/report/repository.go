package report

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/PKA-OpenLD/FORMS-app-sub000/internal/geo"
)

// Domain errors for the report package.
var (
	// ErrNotFound is returned when a report ID does not exist.
	ErrNotFound = errors.New("report: not found")

	// ErrInvalidReport is returned when report validation fails.
	ErrInvalidReport = errors.New("report: invalid")
)

// Repository defines persistence operations for community reports.
type Repository interface {
	Create(ctx context.Context, r *Report) error
	Get(ctx context.Context, id string) (*Report, error)
	List(ctx context.Context, limit int) ([]Report, error)
	Delete(ctx context.Context, id string) error
}

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite-backed report repository.
//
// Security: Uses parameterised SQL queries to prevent injection.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Create inserts a new report. An empty ID is assigned a UUID.
func (r *SQLiteRepository) Create(ctx context.Context, rep *Report) error {
	if rep == nil {
		return fmt.Errorf("report is required")
	}
	if strings.TrimSpace(rep.Type) == "" {
		return fmt.Errorf("%w: type is required", ErrInvalidReport)
	}
	if rep.Location != nil && !rep.Location.Valid() {
		return fmt.Errorf("%w: location out of bounds", ErrInvalidReport)
	}
	if rep.ID == "" {
		rep.ID = uuid.New().String()
	}

	query := `INSERT INTO reports (id, user_id, type, description, lng, lat)
		VALUES (?, ?, ?, ?, ?, ?)`

	var lng, lat sql.NullFloat64
	if rep.Location != nil {
		lng = sql.NullFloat64{Float64: rep.Location.Lng, Valid: true}
		lat = sql.NullFloat64{Float64: rep.Location.Lat, Valid: true}
	}

	var userID sql.NullString
	if rep.UserID != "" {
		userID = sql.NullString{String: rep.UserID, Valid: true}
	}

	var description sql.NullString
	if rep.Description != "" {
		description = sql.NullString{String: rep.Description, Valid: true}
	}

	if _, err := r.db.ExecContext(ctx, query, rep.ID, userID, rep.Type, description, lng, lat); err != nil {
		return fmt.Errorf("inserting report: %w", err)
	}

	return nil
}

// Get retrieves a report by ID.
//
// Returns ErrNotFound if no report exists with that ID.
func (r *SQLiteRepository) Get(ctx context.Context, id string) (*Report, error) {
	query := `SELECT id, user_id, type, description, lng, lat, created_at
		FROM reports WHERE id = ?`

	row := r.db.QueryRowContext(ctx, query, id)
	rep, err := scanReportRow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return rep, nil
}

// List returns the most recent reports, newest first.
// A limit of 0 or less returns all reports.
func (r *SQLiteRepository) List(ctx context.Context, limit int) ([]Report, error) {
	query := `SELECT id, user_id, type, description, lng, lat, created_at
		FROM reports ORDER BY created_at DESC, id`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying reports: %w", err)
	}
	defer rows.Close()

	var reports []Report
	for rows.Next() {
		rep, err := scanReportRow(rows)
		if err != nil {
			return nil, err
		}
		reports = append(reports, *rep)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating reports: %w", err)
	}

	return reports, nil
}

// Delete removes a report by ID.
func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM reports WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting report: %w", err)
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

// reportRowScanner is implemented by sql.Row and sql.Rows.
type reportRowScanner interface {
	Scan(dest ...any) error
}

// scanReportRow scans a single report row into a Report.
func scanReportRow(scanner reportRowScanner) (*Report, error) {
	var rep Report
	var userID, description sql.NullString
	var lng, lat sql.NullFloat64
	var createdAt string

	err := scanner.Scan(&rep.ID, &userID, &rep.Type, &description, &lng, &lat, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning report: %w", err)
	}

	rep.UserID = userID.String
	rep.Description = description.String
	if lng.Valid && lat.Valid {
		rep.Location = &geo.Coordinate{Lng: lng.Float64, Lat: lat.Float64}
	}
	if t, err := time.Parse(time.RFC3339, createdAt); err == nil {
		rep.CreatedAt = t
	}

	return &rep, nil
}
