package sensor

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	_ "github.com/mattn/go-sqlite3"

	"github.com/PKA-OpenLD/FORMS-app-sub000/internal/geo"
)

// setupTestDB creates an in-memory database with the sensors schema.
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("opening test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	schema := `
		CREATE TABLE sensors (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			type TEXT NOT NULL CHECK (type IN ('water_level', 'temperature', 'humidity')),
			lng REAL,
			lat REAL,
			threshold REAL NOT NULL,
			action_type TEXT NOT NULL CHECK (action_type IN ('flood', 'outage')),
			created_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now')),
			updated_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now'))
		) STRICT;`

	if _, err := db.Exec(schema); err != nil {
		t.Fatalf("creating schema: %v", err)
	}

	return db
}

func testSensor() *Sensor {
	return &Sensor{
		ID:         "sensor-river-north",
		Name:       "River Gauge North",
		Type:       TypeWaterLevel,
		Location:   &geo.Coordinate{Lng: -2.5879, Lat: 51.4545},
		Threshold:  5,
		ActionType: ActionFlood,
	}
}

func TestCreateAndGet(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))
	ctx := context.Background()

	s := testSensor()
	if err := repo.Create(ctx, s); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	got, err := repo.Get(ctx, s.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}

	if got.Name != s.Name {
		t.Errorf("Name = %q, want %q", got.Name, s.Name)
	}
	if got.Type != TypeWaterLevel {
		t.Errorf("Type = %q, want %q", got.Type, TypeWaterLevel)
	}
	if got.Threshold != 5 {
		t.Errorf("Threshold = %v, want 5", got.Threshold)
	}
	if got.Location == nil || got.Location.Lng != -2.5879 || got.Location.Lat != 51.4545 {
		t.Errorf("Location = %+v, want [-2.5879, 51.4545]", got.Location)
	}
	if got.CreatedAt.IsZero() {
		t.Error("CreatedAt should be set by the schema default")
	}
}

func TestCreateAssignsID(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))

	s := testSensor()
	s.ID = ""
	if err := repo.Create(context.Background(), s); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if s.ID == "" {
		t.Error("Create() should assign an ID")
	}
}

func TestCreateDuplicate(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))
	ctx := context.Background()

	if err := repo.Create(ctx, testSensor()); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	err := repo.Create(ctx, testSensor())
	if !errors.Is(err, ErrExists) {
		t.Errorf("Create() duplicate error = %v, want ErrExists", err)
	}
}

func TestCreateInvalid(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))
	ctx := context.Background()

	tests := []struct {
		name    string
		mutate  func(*Sensor)
		wantErr error
	}{
		{"empty name", func(s *Sensor) { s.Name = "" }, ErrInvalidName},
		{"bad type", func(s *Sensor) { s.Type = "seismic" }, ErrInvalidType},
		{"bad action type", func(s *Sensor) { s.ActionType = "earthquake" }, ErrInvalidActionType},
		{"bad location", func(s *Sensor) { s.Location = &geo.Coordinate{Lng: 200} }, ErrInvalidLocation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := testSensor()
			tt.mutate(s)
			err := repo.Create(ctx, s)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Create() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestGetNotFound(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))

	_, err := repo.Get(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() error = %v, want ErrNotFound", err)
	}
}

func TestNoLocation(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))
	ctx := context.Background()

	s := testSensor()
	s.Location = nil
	if err := repo.Create(ctx, s); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	got, err := repo.Get(ctx, s.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Location != nil {
		t.Errorf("Location = %+v, want nil", got.Location)
	}
}

func TestList(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))
	ctx := context.Background()

	a := testSensor()
	a.ID = "sensor-a"
	a.Name = "Alpha"
	b := testSensor()
	b.ID = "sensor-b"
	b.Name = "Beta"

	for _, s := range []*Sensor{b, a} {
		if err := repo.Create(ctx, s); err != nil {
			t.Fatalf("Create(%s) error = %v", s.ID, err)
		}
	}

	sensors, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(sensors) != 2 {
		t.Fatalf("List() returned %d sensors, want 2", len(sensors))
	}
	if sensors[0].Name != "Alpha" || sensors[1].Name != "Beta" {
		t.Errorf("List() order = [%s, %s], want [Alpha, Beta]", sensors[0].Name, sensors[1].Name)
	}
}

func TestDelete(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))
	ctx := context.Background()

	s := testSensor()
	if err := repo.Create(ctx, s); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if err := repo.Delete(ctx, s.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	if _, err := repo.Get(ctx, s.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() after delete error = %v, want ErrNotFound", err)
	}

	if err := repo.Delete(ctx, s.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Delete() missing error = %v, want ErrNotFound", err)
	}
}
