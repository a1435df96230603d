package camera

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	_ "github.com/mattn/go-sqlite3"

	"github.com/PKA-OpenLD/FORMS-app-sub000/internal/geo"
)

// setupTestDB creates an in-memory database with the cameras schema.
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("opening test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	schema := `
		CREATE TABLE cameras (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			lng REAL,
			lat REAL,
			counts TEXT NOT NULL DEFAULT '{}',
			unique_counts TEXT NOT NULL DEFAULT '{}',
			webrtc_state TEXT NOT NULL DEFAULT 'idle',
			last_detection_at TEXT,
			created_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now')),
			updated_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now'))
		) STRICT;`

	if _, err := db.Exec(schema); err != nil {
		t.Fatalf("creating schema: %v", err)
	}

	return db
}

func testCamera() *Camera {
	return &Camera{
		ID:       "cam-bridge-east",
		Name:     "Bridge East",
		Location: &geo.Coordinate{Lng: -2.59, Lat: 51.45},
	}
}

func TestCreateAndGet(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))
	ctx := context.Background()

	c := testCamera()
	if err := repo.Create(ctx, c); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	got, err := repo.GetByID(ctx, c.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}

	if got.Name != "Bridge East" {
		t.Errorf("Name = %q, want %q", got.Name, "Bridge East")
	}
	if got.WebRTCState != WebRTCIdle {
		t.Errorf("WebRTCState = %q, want idle", got.WebRTCState)
	}
	if len(got.Counts) != 0 {
		t.Errorf("Counts = %v, want empty", got.Counts)
	}
	if got.LastDetectionAt != nil {
		t.Errorf("LastDetectionAt = %v, want nil before first detection", got.LastDetectionAt)
	}
}

func TestGetNotFound(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))

	_, err := repo.GetByID(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("GetByID() error = %v, want ErrNotFound", err)
	}
}

func TestUpdateCounts(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))
	ctx := context.Background()

	c := testCamera()
	if err := repo.Create(ctx, c); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	counts := Counts{"people": 4, "vehicles": 2}
	unique := Counts{"people": 17, "vehicles": 9}
	if err := repo.UpdateCounts(ctx, c.ID, counts, unique); err != nil {
		t.Fatalf("UpdateCounts() error = %v", err)
	}

	got, err := repo.GetByID(ctx, c.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.Counts["people"] != 4 || got.Counts["vehicles"] != 2 {
		t.Errorf("Counts = %v", got.Counts)
	}
	if got.UniqueCounts["people"] != 17 {
		t.Errorf("UniqueCounts = %v", got.UniqueCounts)
	}
	if got.LastDetectionAt == nil {
		t.Error("LastDetectionAt should be stamped by UpdateCounts")
	}
}

func TestUpdateCountsNotFound(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))

	err := repo.UpdateCounts(context.Background(), "missing", Counts{"people": 1}, nil)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("UpdateCounts() error = %v, want ErrNotFound", err)
	}
}

func TestUpdateWebRTC(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))
	ctx := context.Background()

	c := testCamera()
	if err := repo.Create(ctx, c); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if err := repo.UpdateWebRTC(ctx, c.ID, WebRTCConnected); err != nil {
		t.Fatalf("UpdateWebRTC() error = %v", err)
	}

	got, err := repo.GetByID(ctx, c.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.WebRTCState != WebRTCConnected {
		t.Errorf("WebRTCState = %q, want connected", got.WebRTCState)
	}
}

func TestList(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))
	ctx := context.Background()

	a := testCamera()
	a.ID = "cam-a"
	a.Name = "Alpha"
	b := testCamera()
	b.ID = "cam-b"
	b.Name = "Beta"

	for _, c := range []*Camera{b, a} {
		if err := repo.Create(ctx, c); err != nil {
			t.Fatalf("Create(%s) error = %v", c.ID, err)
		}
	}

	cameras, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(cameras) != 2 || cameras[0].Name != "Alpha" {
		t.Errorf("List() = %d cameras, first %q", len(cameras), cameras[0].Name)
	}
}
