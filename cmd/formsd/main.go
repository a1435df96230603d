// FORMS Core - Community Flood and Outage Situational Awareness
//
// This is the main entry point for the FORMS Core service. It hosts:
//   - The WebSocket hub relaying map events and WebRTC signaling
//     between camera nodes and viewers
//   - The sensor rule engine turning threshold crossings into map zones
//   - The REST API for sensors, rules, zones, cameras and reports
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	_ "github.com/PKA-OpenLD/FORMS-app-sub000/migrations"

	"github.com/PKA-OpenLD/FORMS-app-sub000/internal/api"
	"github.com/PKA-OpenLD/FORMS-app-sub000/internal/camera"
	"github.com/PKA-OpenLD/FORMS-app-sub000/internal/hub"
	"github.com/PKA-OpenLD/FORMS-app-sub000/internal/infrastructure/config"
	"github.com/PKA-OpenLD/FORMS-app-sub000/internal/infrastructure/database"
	"github.com/PKA-OpenLD/FORMS-app-sub000/internal/infrastructure/influxdb"
	"github.com/PKA-OpenLD/FORMS-app-sub000/internal/infrastructure/logging"
	"github.com/PKA-OpenLD/FORMS-app-sub000/internal/infrastructure/mqtt"
	"github.com/PKA-OpenLD/FORMS-app-sub000/internal/report"
	"github.com/PKA-OpenLD/FORMS-app-sub000/internal/rules"
	"github.com/PKA-OpenLD/FORMS-app-sub000/internal/sensor"
	"github.com/PKA-OpenLD/FORMS-app-sub000/internal/signaling"
	"github.com/PKA-OpenLD/FORMS-app-sub000/internal/zone"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting FORMS Core",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)

	// Open database and run migrations
	db, err := database.Open(database.Config{
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	log.Info("database connected", "path", cfg.Database.Path)

	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database migrations complete")

	// Repositories
	sensorRepo := sensor.NewSQLiteRepository(db.DB)
	zoneRepo := zone.NewSQLiteRepository(db.DB)
	cameraRepo := camera.NewSQLiteRepository(db.DB)
	reportRepo := report.NewSQLiteRepository(db.DB)

	// Rule registry
	ruleRegistry := rules.NewRegistry(rules.NewSQLiteRepository(db.DB))
	ruleRegistry.SetLogger(log)
	if refreshErr := ruleRegistry.RefreshCache(ctx); refreshErr != nil {
		return fmt.Errorf("loading rule registry: %w", refreshErr)
	}
	log.Info("rule registry initialised", "rules", ruleRegistry.Count())

	// Connect to MQTT broker (optional: HTTP ingestion works without it)
	var mqttClient *mqtt.Client
	if cfg.MQTT.Enabled {
		mqttClient, err = mqtt.Connect(cfg.MQTT)
		if err != nil {
			return fmt.Errorf("connecting to MQTT: %w", err)
		}
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		mqttClient.SetOnConnect(func() {
			log.Info("MQTT reconnected")
		})
		mqttClient.SetOnDisconnect(func(err error) {
			log.Warn("MQTT disconnected", "error", err)
		})
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"client_id", cfg.MQTT.Broker.ClientID,
		)
	} else {
		log.Info("MQTT disabled")
	}

	// Connect to InfluxDB (optional)
	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(cfg.InfluxDB)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		log.Info("InfluxDB connected", "url", cfg.InfluxDB.URL, "bucket", cfg.InfluxDB.Bucket)
	} else {
		log.Info("InfluxDB disabled")
	}

	// WebSocket hub and WebRTC signaling router
	clientHub := hub.NewHub(cfg.WebSocket, log)
	signalRouter := signaling.NewRouter(clientHub, cameraRepo, log)

	// Rule engine, announcing zones to viewers and the bus
	var events rules.EventPublisher
	if mqttClient != nil {
		events = mqttClient
	}
	engine := rules.NewEngine(sensorRepo, ruleRegistry, zoneRepo,
		api.HubBroadcaster{Hub: clientHub}, events, log)

	// API server
	server, err := api.New(api.Deps{
		Config:       cfg.API,
		WS:           cfg.WebSocket,
		Security:     cfg.Security,
		Logger:       log,
		Hub:          clientHub,
		Signaling:    signalRouter,
		Engine:       engine,
		RuleRegistry: ruleRegistry,
		SensorRepo:   sensorRepo,
		ZoneRepo:     zoneRepo,
		CameraRepo:   cameraRepo,
		ReportRepo:   reportRepo,
		MQTT:         mqttClient,
		Influx:       influxClient,
		Version:      version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}

	if startErr := server.Start(ctx); startErr != nil {
		return fmt.Errorf("starting API server: %w", startErr)
	}
	defer func() {
		log.Info("stopping API server")
		if closeErr := server.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()
	log.Info("API server started", "host", cfg.API.Host, "port", cfg.API.Port)

	if err := healthCheck(ctx, db, mqttClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	// Background workers: the hub and the retention sweep run until
	// the shutdown signal cancels ctx.
	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		clientHub.Run(gCtx)
		return nil
	})
	g.Go(func() error {
		runRetentionSweep(gCtx, cfg.Retention, engine, log)
		return nil
	})

	log.Info("initialisation complete, waiting for shutdown signal")
	if waitErr := g.Wait(); waitErr != nil {
		return waitErr
	}

	log.Info("FORMS Core stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses FORMS_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("FORMS_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// runRetentionSweep deletes aged-out automated zones on a fixed
// interval until ctx is cancelled. Sweep failures are logged inside
// the engine and never stop the loop.
func runRetentionSweep(ctx context.Context, cfg config.RetentionConfig, engine *rules.Engine, log *logging.Logger) {
	maxAge := time.Duration(cfg.ZoneMaxAge) * time.Minute
	interval := time.Duration(cfg.SweepInterval) * time.Minute

	log.Info("retention sweep started", "max_age", maxAge, "interval", interval)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("retention sweep stopped")
			return
		case <-ticker.C:
			engine.CleanupAutomatedZones(ctx, maxAge)
		}
	}
}

// healthCheck verifies all infrastructure connections are healthy.
// mqttClient and influxClient may be nil when disabled.
func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client, influxClient *influxdb.Client) error {
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if mqttClient != nil {
		if err := mqttClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("mqtt: %w", err)
		}
	}
	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}
	return nil
}
