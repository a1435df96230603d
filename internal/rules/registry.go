package rules

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Logger defines the logging interface used by the Registry and Engine.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Registry provides rule management with caching and thread safety.
// It wraps a Repository and adds an in-memory cache so the engine can
// evaluate every reading without a database round trip.
//
// The cache is populated on startup via RefreshCache and kept in sync
// by cache-invalidating CRUD operations.
//
// All public methods are thread-safe.
type Registry struct {
	repo    Repository
	cache   map[string]*SensorRule
	cacheMu sync.RWMutex
	logger  Logger
}

// NewRegistry creates a new rule registry.
func NewRegistry(repo Repository) *Registry {
	return &Registry{
		repo:   repo,
		cache:  make(map[string]*SensorRule),
		logger: noopLogger{},
	}
}

// SetLogger sets the logger for the registry.
func (r *Registry) SetLogger(logger Logger) {
	r.logger = logger
}

// RefreshCache reloads all rules from the repository into the cache.
// This should be called on application startup.
func (r *Registry) RefreshCache(ctx context.Context) error {
	all, err := r.repo.List(ctx)
	if err != nil {
		return fmt.Errorf("loading rules: %w", err)
	}

	r.cacheMu.Lock()
	defer r.cacheMu.Unlock()

	r.cache = make(map[string]*SensorRule, len(all))
	for i := range all {
		rule := all[i]
		r.cache[rule.ID] = rule.DeepCopy()
	}

	r.logger.Info("rule cache refreshed", "count", len(all))
	return nil
}

// Get retrieves a rule by ID.
// The returned rule is a deep copy; callers can safely modify it.
func (r *Registry) Get(_ context.Context, id string) (*SensorRule, error) {
	r.cacheMu.RLock()
	cached, ok := r.cache[id]
	r.cacheMu.RUnlock()

	if ok {
		return cached.DeepCopy(), nil
	}
	return nil, ErrNotFound
}

// List retrieves all rules from the cache, sorted by name for
// deterministic ordering.
func (r *Registry) List(_ context.Context) ([]SensorRule, error) {
	r.cacheMu.RLock()
	defer r.cacheMu.RUnlock()

	out := make([]SensorRule, 0, len(r.cache))
	for _, rule := range r.cache {
		out = append(out, *rule.DeepCopy())
	}
	sortRules(out)
	return out, nil
}

// ListEnabled retrieves the rules the engine should evaluate.
func (r *Registry) ListEnabled(_ context.Context) ([]SensorRule, error) {
	r.cacheMu.RLock()
	defer r.cacheMu.RUnlock()

	var out []SensorRule
	for _, rule := range r.cache {
		if rule.Enabled {
			out = append(out, *rule.DeepCopy())
		}
	}
	sortRules(out)
	return out, nil
}

// sortRules sorts rules by name then ID, matching the DB query ordering.
func sortRules(out []SensorRule) {
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
}

// Create validates, persists, and caches a new rule.
func (r *Registry) Create(ctx context.Context, rule *SensorRule) error {
	if rule.ID == "" {
		rule.ID = GenerateID()
	}
	if err := ValidateRule(rule); err != nil {
		return err
	}

	if err := r.repo.Create(ctx, rule); err != nil {
		return err
	}

	r.cacheMu.Lock()
	r.cache[rule.ID] = rule.DeepCopy()
	r.cacheMu.Unlock()

	r.logger.Info("rule created", "id", rule.ID, "name", rule.Name)
	return nil
}

// Update validates, persists, and updates the cached rule.
func (r *Registry) Update(ctx context.Context, rule *SensorRule) error {
	if err := ValidateRule(rule); err != nil {
		return err
	}

	if err := r.repo.Update(ctx, rule); err != nil {
		return err
	}

	r.cacheMu.Lock()
	r.cache[rule.ID] = rule.DeepCopy()
	r.cacheMu.Unlock()

	r.logger.Info("rule updated", "id", rule.ID, "name", rule.Name, "enabled", rule.Enabled)
	return nil
}

// Delete removes a rule from persistence and cache.
func (r *Registry) Delete(ctx context.Context, id string) error {
	if err := r.repo.Delete(ctx, id); err != nil {
		return err
	}

	r.cacheMu.Lock()
	delete(r.cache, id)
	r.cacheMu.Unlock()

	r.logger.Info("rule deleted", "id", id)
	return nil
}

// Count returns the number of cached rules.
func (r *Registry) Count() int {
	r.cacheMu.RLock()
	defer r.cacheMu.RUnlock()
	return len(r.cache)
}
