package hub

// Event type tags carried in broadcast envelopes.
//
// camera-update keeps its hyphenated form: camera node firmware in the
// field already parses it.
const (
	EventZoneCreated       = "zone_created"
	EventZoneUpdated       = "zone_updated"
	EventZoneDeleted       = "zone_deleted"
	EventZonesCleared      = "zones_cleared"
	EventSensorCreated     = "sensor_created"
	EventSensorDeleted     = "sensor_deleted"
	EventUserReportCreated = "user_report_created"
	EventCameraUpdate      = "camera-update"
	EventPrediction        = "prediction"
)

// Envelope is the typed message unit sent to connected clients.
// Delivery is fire-and-forget: envelopes are never persisted or queued
// for offline clients.
type Envelope struct {
	Type      string `json:"type"`
	Timestamp string `json:"timestamp,omitempty"`
	Payload   any    `json:"payload,omitempty"`
}
