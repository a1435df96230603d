package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/PKA-OpenLD/FORMS-app-sub000/internal/hub"
	"github.com/PKA-OpenLD/FORMS-app-sub000/internal/zone"
)

// handleListZones returns all active map zones.
//
// GET /zones
// Response: {"zones": [...], "count": N}
func (s *Server) handleListZones(w http.ResponseWriter, r *http.Request) {
	zones, err := s.zoneRepo.List(r.Context())
	if err != nil {
		s.logger.Error("failed to list zones", "error", err)
		writeInternalError(w, "failed to list zones")
		return
	}
	if zones == nil {
		zones = []zone.Zone{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"zones": zones, "count": len(zones)})
}

// handleGetZone returns a single zone by ID.
//
// GET /zones/{id}
func (s *Server) handleGetZone(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	z, err := s.zoneRepo.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, zone.ErrNotFound) {
			writeNotFound(w, "zone not found")
			return
		}
		s.logger.Error("failed to get zone", "error", err, "id", id)
		writeInternalError(w, "failed to get zone")
		return
	}
	writeJSON(w, http.StatusOK, z)
}

// handleCreateZone creates a manual map zone.
//
// POST /zones
// Body: Zone JSON (id optional, generated when absent)
// Response: 201 Created with the created zone; a zone_created event
// is broadcast to connected viewers.
//
// Provenance fields are stripped so a manual zone can never masquerade
// as rule output and soak up the dedup window.
func (s *Server) handleCreateZone(w http.ResponseWriter, r *http.Request) {
	var z zone.Zone
	if err := json.NewDecoder(r.Body).Decode(&z); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	z.AutomatedFrom = ""
	z.TriggeredBy = ""

	if err := s.zoneRepo.Create(r.Context(), &z); err != nil {
		if errors.Is(err, zone.ErrExists) {
			writeConflict(w, "a zone with this ID already exists")
			return
		}
		if errors.Is(err, zone.ErrInvalidZone) {
			writeBadRequest(w, err.Error())
			return
		}
		s.logger.Error("failed to create zone", "error", err)
		writeInternalError(w, "failed to create zone")
		return
	}

	s.broadcastToUsers(hub.EventZoneCreated, z)
	if s.influx != nil {
		s.influx.WriteZoneEvent(z.ID, string(z.Type), "manual", z.RiskLevel)
	}
	writeJSON(w, http.StatusCreated, z)
}

// handleUpdateZone partially updates a zone via PATCH semantics.
//
// PATCH /zones/{id}
// Body: partial zone fields (title, description, riskLevel)
// Response: updated zone JSON; a zone_updated event is broadcast.
//
// Geometry and provenance are immutable; delete and recreate to move
// a zone.
func (s *Server) handleUpdateZone(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	z, err := s.zoneRepo.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, zone.ErrNotFound) {
			writeNotFound(w, "zone not found")
			return
		}
		s.logger.Error("failed to get zone", "error", err, "id", id)
		writeInternalError(w, "failed to get zone")
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

	if v, ok := raw["title"]; ok {
		var title string
		if json.Unmarshal(v, &title) == nil && title != "" {
			z.Title = title
		}
	}
	if v, ok := raw["description"]; ok {
		var desc string
		if json.Unmarshal(v, &desc) == nil {
			z.Description = desc
		}
	}
	if v, ok := raw["riskLevel"]; ok {
		var risk int
		if json.Unmarshal(v, &risk) == nil {
			z.RiskLevel = risk
		}
	}

	if err := s.zoneRepo.Update(r.Context(), z); err != nil { //nolint:govet // shadow: err re-declared in nested scope, checked immediately
		if errors.Is(err, zone.ErrInvalidZone) {
			writeBadRequest(w, err.Error())
			return
		}
		s.logger.Error("failed to update zone", "error", err, "id", id)
		writeInternalError(w, "failed to update zone")
		return
	}

	// Re-read to get updated timestamp
	updated, err := s.zoneRepo.Get(r.Context(), id)
	if err != nil {
		updated = z
	}

	s.broadcastToUsers(hub.EventZoneUpdated, updated)
	writeJSON(w, http.StatusOK, updated)
}

// handleDeleteZone removes a zone by ID.
//
// DELETE /zones/{id}
// Response: 204 No Content; a zone_deleted event is broadcast.
func (s *Server) handleDeleteZone(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := s.zoneRepo.Delete(r.Context(), id); err != nil {
		if errors.Is(err, zone.ErrNotFound) {
			writeNotFound(w, "zone not found")
			return
		}
		s.logger.Error("failed to delete zone", "error", err, "id", id)
		writeInternalError(w, "failed to delete zone")
		return
	}

	s.broadcastToUsers(hub.EventZoneDeleted, map[string]any{"id": id})
	w.WriteHeader(http.StatusNoContent)
}

// handleDeleteAllZones clears the map.
//
// DELETE /zones
// Response: {"deleted": N}; a zones_cleared event is broadcast.
func (s *Server) handleDeleteAllZones(w http.ResponseWriter, r *http.Request) {
	deleted, err := s.zoneRepo.DeleteAll(r.Context())
	if err != nil {
		s.logger.Error("failed to delete all zones", "error", err)
		writeInternalError(w, "failed to delete zones")
		return
	}

	s.broadcastToUsers(hub.EventZonesCleared, map[string]any{"deleted": deleted})
	writeJSON(w, http.StatusOK, map[string]any{"deleted": deleted})
}
