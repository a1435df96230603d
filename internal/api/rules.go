package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/PKA-OpenLD/FORMS-app-sub000/internal/rules"
)

// handleListRules returns all automation rules.
//
// GET /rules
// Response: {"rules": [...], "count": N}
func (s *Server) handleListRules(w http.ResponseWriter, r *http.Request) {
	list, err := s.ruleRegistry.List(r.Context())
	if err != nil {
		s.logger.Error("failed to list rules", "error", err)
		writeInternalError(w, "failed to list rules")
		return
	}
	if list == nil {
		list = []rules.SensorRule{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"rules": list, "count": len(list)})
}

// handleGetRule returns a single rule by ID.
//
// GET /rules/{id}
func (s *Server) handleGetRule(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	rule, err := s.ruleRegistry.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, rules.ErrNotFound) {
			writeNotFound(w, "rule not found")
			return
		}
		s.logger.Error("failed to get rule", "error", err, "id", id)
		writeInternalError(w, "failed to get rule")
		return
	}
	writeJSON(w, http.StatusOK, rule)
}

// handleCreateRule creates a new automation rule.
//
// POST /rules
// Body: SensorRule JSON (id optional, generated when absent)
// Response: 201 Created with the created rule
func (s *Server) handleCreateRule(w http.ResponseWriter, r *http.Request) {
	var rule rules.SensorRule
	if err := json.NewDecoder(r.Body).Decode(&rule); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	if err := s.ruleRegistry.Create(r.Context(), &rule); err != nil {
		if errors.Is(err, rules.ErrExists) {
			writeConflict(w, "a rule with this ID already exists")
			return
		}
		if errors.Is(err, rules.ErrInvalidRule) {
			writeBadRequest(w, err.Error())
			return
		}
		s.logger.Error("failed to create rule", "error", err)
		writeInternalError(w, "failed to create rule")
		return
	}

	writeJSON(w, http.StatusCreated, rule)
}

// handleUpdateRule partially updates a rule via PATCH semantics.
//
// PATCH /rules/{id}
// Body: partial rule fields (name, enabled, sensors, operator,
// actionType, actionShape, actionRadius, metadata)
// Response: updated rule JSON
func (s *Server) handleUpdateRule(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	rule, err := s.ruleRegistry.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, rules.ErrNotFound) {
			writeNotFound(w, "rule not found")
			return
		}
		s.logger.Error("failed to get rule", "error", err, "id", id)
		writeInternalError(w, "failed to get rule")
		return
	}

	var raw map[string]json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil { //nolint:govet // shadow: err re-declared in nested scope, checked immediately
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if len(raw) == 0 {
		writeBadRequest(w, "no fields to update")
		return
	}

	if v, ok := raw["name"]; ok {
		var name string
		if json.Unmarshal(v, &name) == nil && name != "" {
			rule.Name = name
		}
	}
	if v, ok := raw["enabled"]; ok {
		var enabled bool
		if json.Unmarshal(v, &enabled) == nil {
			rule.Enabled = enabled
		}
	}
	if v, ok := raw["sensors"]; ok {
		var sensors []string
		if json.Unmarshal(v, &sensors) == nil {
			rule.Sensors = sensors
		}
	}
	if v, ok := raw["operator"]; ok {
		var op rules.Operator
		if json.Unmarshal(v, &op) == nil {
			rule.Operator = op
		}
	}
	if v, ok := raw["actionType"]; ok {
		json.Unmarshal(v, &rule.ActionType) //nolint:errcheck // invalid values caught by validation below
	}
	if v, ok := raw["actionShape"]; ok {
		json.Unmarshal(v, &rule.ActionShape) //nolint:errcheck // invalid values caught by validation below
	}
	if v, ok := raw["actionRadius"]; ok {
		var radius float64
		if json.Unmarshal(v, &radius) == nil {
			rule.ActionRadius = radius
		}
	}
	if v, ok := raw["metadata"]; ok {
		var meta rules.Metadata
		if json.Unmarshal(v, &meta) == nil {
			rule.Metadata = &meta
		}
	}

	if err := s.ruleRegistry.Update(r.Context(), rule); err != nil { //nolint:govet // shadow: err re-declared in nested scope, checked immediately
		if errors.Is(err, rules.ErrInvalidRule) {
			writeBadRequest(w, err.Error())
			return
		}
		s.logger.Error("failed to update rule", "error", err, "id", id)
		writeInternalError(w, "failed to update rule")
		return
	}

	// Re-read to get updated timestamp
	updated, err := s.ruleRegistry.Get(r.Context(), id)
	if err != nil {
		writeJSON(w, http.StatusOK, rule)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// handleDeleteRule removes a rule by ID.
//
// DELETE /rules/{id}
// Response: 204 No Content
//
// Zones the rule already created are untouched; retention ages them out.
func (s *Server) handleDeleteRule(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := s.ruleRegistry.Delete(r.Context(), id); err != nil {
		if errors.Is(err, rules.ErrNotFound) {
			writeNotFound(w, "rule not found")
			return
		}
		s.logger.Error("failed to delete rule", "error", err, "id", id)
		writeInternalError(w, "failed to delete rule")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
