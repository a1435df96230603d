package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	// WebSocket endpoints. Role is decided by path; identity by query
	// parameter. No auth: viewer sockets are public by design.
	r.Get("/ws", s.handleUserSocket)
	r.Get("/camera-feed", s.handleCameraSocket)
	r.Get("/signaling", s.handleSignalingSocket)

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		// Health check (no auth required)
		r.Get("/health", s.handleHealth)

		// Sensor gateways push readings without credentials; rate and
		// size limits are the only guard at this layer.
		r.Post("/readings", s.handleCreateReading)

		// Read endpoints are public: the map is a community surface.
		r.Get("/sensors", s.handleListSensors)
		r.Get("/sensors/{id}", s.handleGetSensor)
		r.Get("/rules", s.handleListRules)
		r.Get("/rules/{id}", s.handleGetRule)
		r.Get("/zones", s.handleListZones)
		r.Get("/zones/{id}", s.handleGetZone)
		r.Get("/cameras", s.handleListCameras)
		r.Get("/cameras/{id}", s.handleGetCamera)
		r.Get("/reports", s.handleListReports)

		// Community reports need no account.
		r.Post("/reports", s.handleCreateReport)

		// Admin mutations require a token with the admin role claim.
		r.Group(func(r chi.Router) {
			r.Use(s.adminMiddleware)

			r.Post("/sensors", s.handleCreateSensor)
			r.Delete("/sensors/{id}", s.handleDeleteSensor)

			r.Post("/rules", s.handleCreateRule)
			r.Patch("/rules/{id}", s.handleUpdateRule)
			r.Delete("/rules/{id}", s.handleDeleteRule)

			r.Post("/zones", s.handleCreateZone)
			r.Patch("/zones/{id}", s.handleUpdateZone)
			r.Delete("/zones/{id}", s.handleDeleteZone)
			r.Delete("/zones", s.handleDeleteAllZones)

			r.Post("/cameras", s.handleCreateCamera)
			r.Delete("/cameras/{id}", s.handleDeleteCamera)

			r.Delete("/reports/{id}", s.handleDeleteReport)
		})
	})

	return r
}

// handleHealth returns the server health status.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	health := map[string]any{
		"status":  "ok",
		"version": s.version,
		"clients": s.hub.ClientCount(),
	}
	if s.mqtt != nil {
		health["mqtt"] = s.mqtt.IsConnected()
	}
	if s.influx != nil {
		health["influxdb"] = s.influx.HealthCheck(r.Context()) == nil
	}
	writeJSON(w, http.StatusOK, health)
}
