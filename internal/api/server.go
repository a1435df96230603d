// Package api provides the HTTP REST API and WebSocket server for FORMS Core.
//
// It exposes sensor, rule, zone, camera and report operations to the map
// frontend, relays WebRTC signaling between camera nodes and viewers,
// and broadcasts state-change events to connected clients.
//
// The server follows the same lifecycle pattern as other infrastructure
// components:
//
//	server, err := api.New(deps)
//	server.Start(ctx)
//	defer server.Close()
//
// Thread Safety: All methods are safe for concurrent use from multiple goroutines.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/PKA-OpenLD/FORMS-app-sub000/internal/camera"
	"github.com/PKA-OpenLD/FORMS-app-sub000/internal/hub"
	"github.com/PKA-OpenLD/FORMS-app-sub000/internal/infrastructure/config"
	"github.com/PKA-OpenLD/FORMS-app-sub000/internal/infrastructure/influxdb"
	"github.com/PKA-OpenLD/FORMS-app-sub000/internal/infrastructure/logging"
	"github.com/PKA-OpenLD/FORMS-app-sub000/internal/infrastructure/mqtt"
	"github.com/PKA-OpenLD/FORMS-app-sub000/internal/report"
	"github.com/PKA-OpenLD/FORMS-app-sub000/internal/rules"
	"github.com/PKA-OpenLD/FORMS-app-sub000/internal/sensor"
	"github.com/PKA-OpenLD/FORMS-app-sub000/internal/signaling"
	"github.com/PKA-OpenLD/FORMS-app-sub000/internal/zone"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight
// requests to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config       config.APIConfig
	WS           config.WebSocketConfig
	Security     config.SecurityConfig
	Logger       *logging.Logger
	Hub          *hub.Hub
	Signaling    *signaling.Router
	Engine       *rules.Engine
	RuleRegistry *rules.Registry
	SensorRepo   sensor.Repository
	ZoneRepo     zone.Repository
	CameraRepo   camera.Repository
	ReportRepo   report.Repository
	MQTT         *mqtt.Client     // optional: reading ingestion over the bus
	Influx       *influxdb.Client // optional: telemetry writes
	Version      string
}

// Server is the HTTP API server for FORMS Core.
//
// It manages the HTTP listener, routes, middleware, the WebSocket hub
// and the signaling router. The server is created with New() and
// started with Start().
type Server struct {
	cfg          config.APIConfig
	wsCfg        config.WebSocketConfig
	secCfg       config.SecurityConfig
	logger       *logging.Logger
	hub          *hub.Hub
	signal       *signaling.Router
	engine       *rules.Engine
	ruleRegistry *rules.Registry
	sensorRepo   sensor.Repository
	zoneRepo     zone.Repository
	cameraRepo   camera.Repository
	reportRepo   report.Repository
	mqtt         *mqtt.Client
	influx       *influxdb.Client
	version      string
	server       *http.Server
	cancel       context.CancelFunc
}

// New creates a new API server with the given dependencies.
//
// The server is not started until Start() is called.
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Hub == nil {
		return nil, fmt.Errorf("websocket hub is required")
	}
	if deps.Engine == nil {
		return nil, fmt.Errorf("rule engine is required")
	}
	if deps.SensorRepo == nil || deps.ZoneRepo == nil || deps.CameraRepo == nil || deps.ReportRepo == nil {
		return nil, fmt.Errorf("all repositories are required")
	}
	// MQTT and InfluxDB are optional; ingestion then happens over HTTP only.

	return &Server{
		cfg:          deps.Config,
		wsCfg:        deps.WS,
		secCfg:       deps.Security,
		logger:       deps.Logger,
		hub:          deps.Hub,
		signal:       deps.Signaling,
		engine:       deps.Engine,
		ruleRegistry: deps.RuleRegistry,
		sensorRepo:   deps.SensorRepo,
		zoneRepo:     deps.ZoneRepo,
		cameraRepo:   deps.CameraRepo,
		reportRepo:   deps.ReportRepo,
		mqtt:         deps.MQTT,
		influx:       deps.Influx,
		version:      deps.Version,
	}, nil
}

// Start begins listening for HTTP connections.
//
// It sets up the router, subscribes to MQTT reading topics for bus
// ingestion, and launches the HTTP listener in a background goroutine.
// The server can be stopped with Close().
func (s *Server) Start(ctx context.Context) error {
	var srvCtx context.Context
	srvCtx, s.cancel = context.WithCancel(ctx)

	if err := s.subscribeSensorReadings(srvCtx); err != nil {
		s.logger.Warn("failed to subscribe to sensor readings", "error", err)
	}

	router := s.buildRouter()

	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           router,
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	go func() {
		var err error
		if s.cfg.TLS.Enabled {
			s.logger.Info("API server starting with TLS",
				"address", s.server.Addr,
				"cert", s.cfg.TLS.CertFile,
			)
			err = s.server.ListenAndServeTLS(s.cfg.TLS.CertFile, s.cfg.TLS.KeyFile)
		} else {
			err = s.server.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	return nil
}

// Close gracefully shuts down the API server.
//
// It waits up to 10 seconds for in-flight requests to complete, then
// forcefully closes remaining connections.
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}

	if s.cancel != nil {
		s.cancel()
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("API server shutting down")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}

// HealthCheck verifies the API server is running and responsive.
func (s *Server) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("api health check: %w", ctx.Err())
	default:
	}

	if s.server == nil {
		return fmt.Errorf("api server not started")
	}

	return nil
}

// subscribeSensorReadings feeds bus-published readings into the rule
// engine. Sensor gateways publish to forms/reading/{sensorId}; the
// topic's sensor id wins over any id in the payload.
func (s *Server) subscribeSensorReadings(ctx context.Context) error {
	if s.mqtt == nil {
		return nil
	}

	topic := mqtt.Topics{}.AllSensorReadings()
	s.logger.Info("subscribing to sensor readings", "topic", topic)

	return s.mqtt.Subscribe(topic, 1, func(t string, payload []byte) error {
		var reading rules.Reading
		if err := json.Unmarshal(payload, &reading); err != nil {
			return fmt.Errorf("parsing reading on %q: %w", t, err)
		}
		if id := sensorIDFromTopic(t); id != "" {
			reading.SensorID = id
		}

		if _, err := s.ingestReading(ctx, reading); err != nil {
			return fmt.Errorf("processing reading from %q: %w", t, err)
		}
		return nil
	})
}

// ingestReading runs one reading through the engine and mirrors it to
// the telemetry store. Shared by the MQTT handler and the REST endpoint.
func (s *Server) ingestReading(ctx context.Context, reading rules.Reading) (rules.Result, error) {
	if reading.Timestamp == 0 {
		reading.Timestamp = time.Now().UnixMilli()
	}

	result, err := s.engine.ProcessReading(ctx, reading)
	if err != nil {
		return rules.Result{}, err
	}

	if s.influx != nil {
		s.influx.WriteSensorReading(reading.SensorID, reading.SensorType, reading.Value)
	}

	return result, nil
}

// sensorIDFromTopic extracts the sensor id from forms/reading/{id}.
func sensorIDFromTopic(topic string) string {
	parts := strings.Split(topic, "/")
	if len(parts) < 3 {
		return ""
	}
	return parts[len(parts)-1]
}

// broadcastToUsers wraps a payload in a typed envelope and fans it out
// to every connected map viewer.
func (s *Server) broadcastToUsers(eventType string, payload any) {
	s.hub.BroadcastToRole(hub.RoleUser, hub.Envelope{
		Type:    eventType,
		Payload: payload,
	})
}

// HubBroadcaster adapts the hub to the rule engine's Broadcaster
// interface so the engine can announce automated zones without
// depending on connection management.
type HubBroadcaster struct {
	Hub *hub.Hub
}

// Broadcast sends a typed event envelope to all user-role clients.
func (b HubBroadcaster) Broadcast(eventType string, payload any) {
	b.Hub.BroadcastToRole(hub.RoleUser, hub.Envelope{
		Type:    eventType,
		Payload: payload,
	})
}
