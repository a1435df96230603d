package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/PKA-OpenLD/FORMS-app-sub000/internal/camera"
)

// handleListCameras returns all registered camera nodes.
//
// GET /cameras
// Response: {"cameras": [...], "count": N}
func (s *Server) handleListCameras(w http.ResponseWriter, r *http.Request) {
	cameras, err := s.cameraRepo.List(r.Context())
	if err != nil {
		s.logger.Error("failed to list cameras", "error", err)
		writeInternalError(w, "failed to list cameras")
		return
	}
	if cameras == nil {
		cameras = []camera.Camera{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"cameras": cameras, "count": len(cameras)})
}

// handleGetCamera returns a single camera by ID, with its live
// connection and signaling state folded in.
//
// GET /cameras/{id}
func (s *Server) handleGetCamera(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	cam, err := s.cameraRepo.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, camera.ErrNotFound) {
			writeNotFound(w, "camera not found")
			return
		}
		s.logger.Error("failed to get camera", "error", err, "id", id)
		writeInternalError(w, "failed to get camera")
		return
	}

	resp := map[string]any{"camera": cam}
	if s.signal != nil {
		resp["signalingState"] = s.signal.SessionState(id)
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleCreateCamera registers a new camera node.
//
// POST /cameras
// Body: Camera JSON (id optional, generated when absent)
// Response: 201 Created with the created camera
func (s *Server) handleCreateCamera(w http.ResponseWriter, r *http.Request) {
	var cam camera.Camera
	if err := json.NewDecoder(r.Body).Decode(&cam); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	if err := s.cameraRepo.Create(r.Context(), &cam); err != nil {
		if errors.Is(err, camera.ErrExists) {
			writeConflict(w, "a camera with this ID already exists")
			return
		}
		if errors.Is(err, camera.ErrInvalidCamera) {
			writeBadRequest(w, err.Error())
			return
		}
		s.logger.Error("failed to create camera", "error", err)
		writeInternalError(w, "failed to create camera")
		return
	}

	writeJSON(w, http.StatusCreated, cam)
}

// handleDeleteCamera removes a camera by ID.
//
// DELETE /cameras/{id}
// Response: 204 No Content
//
// An open WebSocket from the node survives the delete; its next
// detection just has nowhere to persist.
func (s *Server) handleDeleteCamera(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := s.cameraRepo.Delete(r.Context(), id); err != nil {
		if errors.Is(err, camera.ErrNotFound) {
			writeNotFound(w, "camera not found")
			return
		}
		s.logger.Error("failed to delete camera", "error", err, "id", id)
		writeInternalError(w, "failed to delete camera")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
