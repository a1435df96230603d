package report

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	_ "github.com/mattn/go-sqlite3"

	"github.com/PKA-OpenLD/FORMS-app-sub000/internal/geo"
)

// setupTestDB creates an in-memory database with the reports schema.
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("opening test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	schema := `
		CREATE TABLE reports (
			id TEXT PRIMARY KEY,
			user_id TEXT,
			type TEXT NOT NULL,
			description TEXT,
			lng REAL,
			lat REAL,
			created_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now'))
		) STRICT;
		CREATE INDEX idx_reports_created_at ON reports(created_at);`

	if _, err := db.Exec(schema); err != nil {
		t.Fatalf("creating schema: %v", err)
	}

	return db
}

func TestCreateAndGet(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))
	ctx := context.Background()

	rep := &Report{
		UserID:      "user-42",
		Type:        "flooded_road",
		Description: "Water across both lanes at the underpass",
		Location:    &geo.Coordinate{Lng: -2.59, Lat: 51.45},
	}
	if err := repo.Create(ctx, rep); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if rep.ID == "" {
		t.Fatal("Create() should assign an ID")
	}

	got, err := repo.Get(ctx, rep.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Type != "flooded_road" || got.UserID != "user-42" {
		t.Errorf("got type=%q userID=%q", got.Type, got.UserID)
	}
	if got.Location == nil || got.Location.Lat != 51.45 {
		t.Errorf("Location = %+v", got.Location)
	}
	if got.CreatedAt.IsZero() {
		t.Error("CreatedAt should be set by the schema default")
	}
}

func TestCreateRequiresType(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))

	err := repo.Create(context.Background(), &Report{Description: "no type"})
	if !errors.Is(err, ErrInvalidReport) {
		t.Errorf("Create() error = %v, want ErrInvalidReport", err)
	}
}

func TestAnonymousReport(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))
	ctx := context.Background()

	rep := &Report{Type: "outage"}
	if err := repo.Create(ctx, rep); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	got, err := repo.Get(ctx, rep.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.UserID != "" || got.Location != nil {
		t.Errorf("got userID=%q location=%+v, want empty", got.UserID, got.Location)
	}
}

func TestListLimit(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if err := repo.Create(ctx, &Report{Type: "flooded_road"}); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
	}

	reports, err := repo.List(ctx, 3)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(reports) != 3 {
		t.Errorf("List(3) returned %d reports", len(reports))
	}

	all, err := repo.List(ctx, 0)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(all) != 5 {
		t.Errorf("List(0) returned %d reports, want 5", len(all))
	}
}

func TestDelete(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))
	ctx := context.Background()

	rep := &Report{Type: "outage"}
	if err := repo.Create(ctx, rep); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if err := repo.Delete(ctx, rep.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if err := repo.Delete(ctx, rep.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Delete() missing error = %v, want ErrNotFound", err)
	}
}
