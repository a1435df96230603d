package influxdb

import (
	"context"
	"errors"
	"testing"

	"github.com/PKA-OpenLD/FORMS-app-sub000/internal/infrastructure/config"
)

func TestConnectDisabled(t *testing.T) {
	cfg := config.InfluxDBConfig{Enabled: false}

	_, err := Connect(cfg)
	if !errors.Is(err, ErrDisabled) {
		t.Errorf("Connect() error = %v, want ErrDisabled", err)
	}
}

func TestCloseNilClient(t *testing.T) {
	c := &Client{}
	if err := c.Close(); err != nil {
		t.Errorf("Close() on zero client error = %v, want nil", err)
	}
}

func TestHealthCheckDisconnected(t *testing.T) {
	c := &Client{connected: false}

	err := c.HealthCheck(context.Background())
	if !errors.Is(err, ErrNotConnected) {
		t.Errorf("HealthCheck() error = %v, want ErrNotConnected", err)
	}
}

func TestWriteDisconnectedIsNoop(t *testing.T) {
	// writeAPI is nil; a write on a disconnected client must not panic.
	c := &Client{connected: false}

	c.WriteSensorReading("sensor-river-north", "river_level", 3.72)
	c.WriteZoneEvent("zone-1", "circle", "manual", 80)
	c.WritePoint("custom", nil, map[string]interface{}{"v": 1.0})
	c.Flush()
}
