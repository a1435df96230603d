package rules

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	_ "github.com/mattn/go-sqlite3"

	"github.com/PKA-OpenLD/FORMS-app-sub000/internal/geo"
	"github.com/PKA-OpenLD/FORMS-app-sub000/internal/zone"
)

// setupTestDB creates an in-memory database with the sensor_rules schema.
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("opening test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	schema := `
		CREATE TABLE sensor_rules (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			type TEXT NOT NULL CHECK (type IN ('1-sensor', '2-sensor')),
			sensors TEXT NOT NULL DEFAULT '[]',
			operator TEXT CHECK (operator IN ('AND', 'OR')),
			action_type TEXT NOT NULL CHECK (action_type IN ('flood', 'outage')),
			action_shape TEXT NOT NULL CHECK (action_shape IN ('circle', 'line')),
			action_radius REAL,
			enabled INTEGER NOT NULL DEFAULT 1,
			metadata TEXT,
			created_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now')),
			updated_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now'))
		) STRICT;`

	if _, err := db.Exec(schema); err != nil {
		t.Fatalf("creating schema: %v", err)
	}

	return db
}

func testRule() *SensorRule {
	return &SensorRule{
		ID:           "rule-river-north",
		Name:         "River North Flood Watch",
		Type:         RuleTypeSingle,
		Sensors:      []string{"sensor-river-north"},
		ActionType:   zone.TypeFlood,
		ActionShape:  zone.ShapeCircle,
		ActionRadius: 750,
		Enabled:      true,
	}
}

func TestCreateAndGet(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))
	ctx := context.Background()

	rule := testRule()
	if err := repo.Create(ctx, rule); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	got, err := repo.Get(ctx, rule.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Name != rule.Name || got.Type != rule.Type {
		t.Errorf("Get() = %+v, want name and type preserved", got)
	}
	if len(got.Sensors) != 1 || got.Sensors[0] != "sensor-river-north" {
		t.Errorf("sensors = %v, want [sensor-river-north]", got.Sensors)
	}
	if got.ActionRadius != 750 {
		t.Errorf("action radius = %g, want 750", got.ActionRadius)
	}
	if !got.Enabled {
		t.Error("rule should be enabled")
	}
	if got.CreatedAt.IsZero() {
		t.Error("created_at not populated")
	}
}

func TestCreateAssignsID(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))

	rule := testRule()
	rule.ID = ""
	if err := repo.Create(context.Background(), rule); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if rule.ID == "" {
		t.Error("Create() did not assign an ID")
	}
}

func TestCreateDuplicate(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))
	ctx := context.Background()

	if err := repo.Create(ctx, testRule()); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if err := repo.Create(ctx, testRule()); !errors.Is(err, ErrExists) {
		t.Errorf("duplicate Create() error = %v, want ErrExists", err)
	}
}

func TestDualRuleRoundTrip(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))
	ctx := context.Background()

	rule := &SensorRule{
		Name:        "Paired Outage Watch",
		Type:        RuleTypeDual,
		Sensors:     []string{"sensor-a", "sensor-b"},
		Operator:    OperatorAnd,
		ActionType:  zone.TypeOutage,
		ActionShape: zone.ShapeLine,
		Enabled:     true,
		Metadata: &Metadata{
			Condition: ConditionActive,
			Points: []geo.Coordinate{
				{Lng: -2.60, Lat: 51.45},
				{Lng: -2.58, Lat: 51.46},
			},
		},
	}
	if err := repo.Create(ctx, rule); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	got, err := repo.Get(ctx, rule.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Operator != OperatorAnd {
		t.Errorf("operator = %q, want AND", got.Operator)
	}
	if got.Metadata == nil || len(got.Metadata.Points) != 2 {
		t.Fatalf("metadata = %+v, want 2 points", got.Metadata)
	}
	if got.Metadata.Points[0] != (geo.Coordinate{Lng: -2.60, Lat: 51.45}) {
		t.Errorf("first point = %v", got.Metadata.Points[0])
	}
}

func TestGetNotFound(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))

	if _, err := repo.Get(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() error = %v, want ErrNotFound", err)
	}
}

func TestListEnabledFilters(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))
	ctx := context.Background()

	active := testRule()
	active.ID = "rule-active"
	active.Name = "Active"
	disabled := testRule()
	disabled.ID = "rule-disabled"
	disabled.Name = "Disabled"
	disabled.Enabled = false

	for _, r := range []*SensorRule{active, disabled} {
		if err := repo.Create(ctx, r); err != nil {
			t.Fatalf("Create(%s) error = %v", r.ID, err)
		}
	}

	all, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(all) != 2 {
		t.Errorf("List() returned %d rules, want 2", len(all))
	}

	enabled, err := repo.ListEnabled(ctx)
	if err != nil {
		t.Fatalf("ListEnabled() error = %v", err)
	}
	if len(enabled) != 1 || enabled[0].ID != "rule-active" {
		t.Errorf("ListEnabled() = %+v, want only rule-active", enabled)
	}
}

func TestUpdate(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))
	ctx := context.Background()

	rule := testRule()
	if err := repo.Create(ctx, rule); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	rule.Name = "Renamed Watch"
	rule.Enabled = false
	if err := repo.Update(ctx, rule); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	got, err := repo.Get(ctx, rule.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Name != "Renamed Watch" || got.Enabled {
		t.Errorf("Update() not persisted: %+v", got)
	}
}

func TestUpdateNotFound(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))

	rule := testRule()
	rule.ID = "missing"
	if err := repo.Update(context.Background(), rule); !errors.Is(err, ErrNotFound) {
		t.Errorf("Update() error = %v, want ErrNotFound", err)
	}
}

func TestDelete(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))
	ctx := context.Background()

	rule := testRule()
	if err := repo.Create(ctx, rule); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if err := repo.Delete(ctx, rule.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := repo.Get(ctx, rule.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() after delete error = %v, want ErrNotFound", err)
	}
	if err := repo.Delete(ctx, rule.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("second Delete() error = %v, want ErrNotFound", err)
	}
}
