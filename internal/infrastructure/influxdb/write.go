package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// WriteSensorReading records a sensor measurement.
//
// The write is non-blocking; data is batched and sent asynchronously.
//
// Example:
//
//	client.WriteSensorReading("sensor-river-north", "river_level", 3.72)
func (c *Client) WriteSensorReading(sensorID string, sensorType string, value float64) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"sensor_readings",
		map[string]string{
			"sensor_id":   sensorID,
			"sensor_type": sensorType,
		},
		map[string]interface{}{
			"value": value,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WriteCameraCounts records people and vehicle counts from a camera node.
//
// Counts arrive with the camera's detection timestamp rather than ingest
// time, so delayed uploads land at the right point in the series.
func (c *Client) WriteCameraCounts(cameraID string, peopleCount, vehicleCount int, detectedAt time.Time) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"camera_counts",
		map[string]string{
			"camera_id": cameraID,
		},
		map[string]interface{}{
			"people_count":  peopleCount,
			"vehicle_count": vehicleCount,
		},
		detectedAt,
	)

	c.writeAPI.WritePoint(point)
}

// WriteZoneEvent records a zone lifecycle event for trend analysis.
//
// Tags carry the zone type and source (manual or the rule that created
// it) so flood frequency per rule can be charted.
func (c *Client) WriteZoneEvent(zoneID, zoneType, source string, riskLevel int) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"zone_events",
		map[string]string{
			"zone_id":   zoneID,
			"zone_type": zoneType,
			"source":    source,
		},
		map[string]interface{}{
			"risk_level": riskLevel,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WritePoint writes a custom point with full control over tags and fields.
//
// Use this for measurements that don't fit the helper methods.
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]interface{}) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, time.Now())
	c.writeAPI.WritePoint(point)
}
