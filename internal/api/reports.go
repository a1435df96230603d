package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/PKA-OpenLD/FORMS-app-sub000/internal/hub"
	"github.com/PKA-OpenLD/FORMS-app-sub000/internal/report"
)

// defaultReportLimit caps an unbounded report listing.
const defaultReportLimit = 100

// handleListReports returns recent community reports, newest first.
//
// GET /reports
// GET /reports?limit=25
// Response: {"reports": [...], "count": N}
func (s *Server) handleListReports(w http.ResponseWriter, r *http.Request) {
	limit := defaultReportLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeBadRequest(w, "limit must be a positive integer")
			return
		}
		limit = n
	}

	reports, err := s.reportRepo.List(r.Context(), limit)
	if err != nil {
		s.logger.Error("failed to list reports", "error", err)
		writeInternalError(w, "failed to list reports")
		return
	}
	if reports == nil {
		reports = []report.Report{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"reports": reports, "count": len(reports)})
}

// handleCreateReport accepts a community field observation.
//
// POST /reports
// Body: Report JSON (id generated server-side)
// Response: 201 Created with the created report; a user_report_created
// event is broadcast to connected viewers.
func (s *Server) handleCreateReport(w http.ResponseWriter, r *http.Request) {
	var rep report.Report
	if err := json.NewDecoder(r.Body).Decode(&rep); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	if err := s.reportRepo.Create(r.Context(), &rep); err != nil {
		if errors.Is(err, report.ErrInvalidReport) {
			writeBadRequest(w, err.Error())
			return
		}
		s.logger.Error("failed to create report", "error", err)
		writeInternalError(w, "failed to create report")
		return
	}

	s.broadcastToUsers(hub.EventUserReportCreated, rep)
	writeJSON(w, http.StatusCreated, rep)
}

// handleDeleteReport removes a report by ID.
//
// DELETE /reports/{id}
// Response: 204 No Content
func (s *Server) handleDeleteReport(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := s.reportRepo.Delete(r.Context(), id); err != nil {
		if errors.Is(err, report.ErrNotFound) {
			writeNotFound(w, "report not found")
			return
		}
		s.logger.Error("failed to delete report", "error", err, "id", id)
		writeInternalError(w, "failed to delete report")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
