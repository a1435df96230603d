package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/PKA-OpenLD/FORMS-app-sub000/internal/hub"
	"github.com/PKA-OpenLD/FORMS-app-sub000/internal/sensor"
)

// handleListSensors returns all configured sensors.
//
// GET /sensors
// Response: {"sensors": [...], "count": N}
func (s *Server) handleListSensors(w http.ResponseWriter, r *http.Request) {
	sensors, err := s.sensorRepo.List(r.Context())
	if err != nil {
		s.logger.Error("failed to list sensors", "error", err)
		writeInternalError(w, "failed to list sensors")
		return
	}
	if sensors == nil {
		sensors = []sensor.Sensor{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"sensors": sensors, "count": len(sensors)})
}

// handleGetSensor returns a single sensor by ID.
//
// GET /sensors/{id}
func (s *Server) handleGetSensor(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	sn, err := s.sensorRepo.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, sensor.ErrNotFound) {
			writeNotFound(w, "sensor not found")
			return
		}
		s.logger.Error("failed to get sensor", "error", err, "id", id)
		writeInternalError(w, "failed to get sensor")
		return
	}
	writeJSON(w, http.StatusOK, sn)
}

// handleCreateSensor registers a new sensor.
//
// POST /sensors
// Body: Sensor JSON (id optional, generated when absent)
// Response: 201 Created with the created sensor; a sensor_created
// event is broadcast to connected viewers.
func (s *Server) handleCreateSensor(w http.ResponseWriter, r *http.Request) {
	var sn sensor.Sensor
	if err := json.NewDecoder(r.Body).Decode(&sn); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	if err := s.sensorRepo.Create(r.Context(), &sn); err != nil {
		if errors.Is(err, sensor.ErrExists) {
			writeConflict(w, "a sensor with this ID already exists")
			return
		}
		if errors.Is(err, sensor.ErrInvalidSensor) {
			writeBadRequest(w, err.Error())
			return
		}
		s.logger.Error("failed to create sensor", "error", err)
		writeInternalError(w, "failed to create sensor")
		return
	}

	s.broadcastToUsers(hub.EventSensorCreated, sn)
	writeJSON(w, http.StatusCreated, sn)
}

// handleDeleteSensor removes a sensor by ID.
//
// DELETE /sensors/{id}
// Response: 204 No Content; a sensor_deleted event is broadcast.
//
// Rules referencing the sensor are left in place; they simply stop
// triggering until the sensor id is reused or the rule is edited.
func (s *Server) handleDeleteSensor(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := s.sensorRepo.Delete(r.Context(), id); err != nil {
		if errors.Is(err, sensor.ErrNotFound) {
			writeNotFound(w, "sensor not found")
			return
		}
		s.logger.Error("failed to delete sensor", "error", err, "id", id)
		writeInternalError(w, "failed to delete sensor")
		return
	}

	s.broadcastToUsers(hub.EventSensorDeleted, map[string]any{"id": id})
	w.WriteHeader(http.StatusNoContent)
}
