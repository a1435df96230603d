package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/PKA-OpenLD/FORMS-app-sub000/internal/rules"
)

// handleCreateReading ingests a sensor reading over HTTP.
//
// POST /readings
// Body: {"sensorId": "...", "value": 2.41, "timestamp": 1756500000000}
// Response: {"rules_checked": N, "rules_triggered": N, "zones_created": [...]}
//
// HTTP ingestion serves gateways that cannot speak MQTT; both paths
// converge on the same engine pass.
func (s *Server) handleCreateReading(w http.ResponseWriter, r *http.Request) {
	var reading rules.Reading
	if err := json.NewDecoder(r.Body).Decode(&reading); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	result, err := s.ingestReading(r.Context(), reading)
	if err != nil {
		if errors.Is(err, rules.ErrInvalidReading) {
			writeBadRequest(w, err.Error())
			return
		}
		s.logger.Error("failed to process reading", "error", err, "sensor_id", reading.SensorID)
		writeInternalError(w, "failed to process reading")
		return
	}

	writeJSON(w, http.StatusOK, result)
}
