// Package influxdb provides time-series telemetry storage for forms-core.
//
// It wraps the official influxdb-client-go v2 library for:
//   - Historical sensor readings (river level, rainfall, grid voltage)
//   - Camera people/vehicle counts over time
//   - Zone lifecycle events for flood-trend analysis
//
// SQLite remains the source of truth for current state; InfluxDB only
// holds history for charts and analysis, so the integration is optional
// and forms-core runs without it.
//
// # Usage
//
//	client, err := influxdb.Connect(cfg.InfluxDB)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	client.WriteSensorReading("sensor-river-north", "river_level", 3.72)
//
// Writes are batched and non-blocking; errors surface via SetOnError.
package influxdb
