package rules

import (
	"context"
	"errors"
	"testing"
)

func setupRegistry(t *testing.T) *Registry {
	t.Helper()
	reg := NewRegistry(NewSQLiteRepository(setupTestDB(t)))
	if err := reg.RefreshCache(context.Background()); err != nil {
		t.Fatalf("RefreshCache() error = %v", err)
	}
	return reg
}

func TestRegistryCreateAndGet(t *testing.T) {
	reg := setupRegistry(t)
	ctx := context.Background()

	rule := testRule()
	if err := reg.Create(ctx, rule); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	got, err := reg.Get(ctx, rule.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Name != rule.Name {
		t.Errorf("Get() name = %q, want %q", got.Name, rule.Name)
	}

	// Cached copies must be isolated from caller mutation.
	got.Name = "mutated"
	again, err := reg.Get(ctx, rule.ID)
	if err != nil {
		t.Fatalf("second Get() error = %v", err)
	}
	if again.Name != rule.Name {
		t.Error("cache entry mutated through returned copy")
	}
}

func TestRegistryGetNotFound(t *testing.T) {
	reg := setupRegistry(t)

	if _, err := reg.Get(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() error = %v, want ErrNotFound", err)
	}
}

func TestRegistryRefreshLoadsPersisted(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSQLiteRepository(db)
	ctx := context.Background()

	if err := repo.Create(ctx, testRule()); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	reg := NewRegistry(repo)
	if reg.Count() != 0 {
		t.Error("cache populated before refresh")
	}
	if err := reg.RefreshCache(ctx); err != nil {
		t.Fatalf("RefreshCache() error = %v", err)
	}
	if reg.Count() != 1 {
		t.Errorf("Count() = %d after refresh, want 1", reg.Count())
	}
}

func TestRegistryListEnabled(t *testing.T) {
	reg := setupRegistry(t)
	ctx := context.Background()

	active := testRule()
	active.ID = "rule-a"
	active.Name = "Alpha"
	disabled := testRule()
	disabled.ID = "rule-b"
	disabled.Name = "Beta"
	disabled.Enabled = false

	for _, r := range []*SensorRule{active, disabled} {
		if err := reg.Create(ctx, r); err != nil {
			t.Fatalf("Create(%s) error = %v", r.ID, err)
		}
	}

	enabled, err := reg.ListEnabled(ctx)
	if err != nil {
		t.Fatalf("ListEnabled() error = %v", err)
	}
	if len(enabled) != 1 || enabled[0].ID != "rule-a" {
		t.Errorf("ListEnabled() = %+v, want only rule-a", enabled)
	}

	all, err := reg.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(all) != 2 || all[0].Name != "Alpha" || all[1].Name != "Beta" {
		t.Errorf("List() = %+v, want [Alpha, Beta] by name", all)
	}
}

func TestRegistryUpdateRefreshesCache(t *testing.T) {
	reg := setupRegistry(t)
	ctx := context.Background()

	rule := testRule()
	if err := reg.Create(ctx, rule); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	rule.Enabled = false
	if err := reg.Update(ctx, rule); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	enabled, err := reg.ListEnabled(ctx)
	if err != nil {
		t.Fatalf("ListEnabled() error = %v", err)
	}
	if len(enabled) != 0 {
		t.Error("disabled rule still listed as enabled")
	}
}

func TestRegistryDeleteEvictsCache(t *testing.T) {
	reg := setupRegistry(t)
	ctx := context.Background()

	rule := testRule()
	if err := reg.Create(ctx, rule); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if err := reg.Delete(ctx, rule.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	if _, err := reg.Get(ctx, rule.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() after delete error = %v, want ErrNotFound", err)
	}
	if reg.Count() != 0 {
		t.Errorf("Count() = %d after delete, want 0", reg.Count())
	}
}

func TestRegistryCreateInvalidRejected(t *testing.T) {
	reg := setupRegistry(t)

	bad := testRule()
	bad.Sensors = nil
	if err := reg.Create(context.Background(), bad); !errors.Is(err, ErrInvalidSensors) {
		t.Errorf("Create() error = %v, want ErrInvalidSensors", err)
	}
	if reg.Count() != 0 {
		t.Error("invalid rule cached")
	}
}
