package mqtt

import "fmt"

// Topic prefixes for the forms-core MQTT namespace.
//
// Sensor gateways publish readings to forms/reading/{sensorId};
// forms-core publishes domain events to forms/event/{type}, camera
// counts to forms/camera/{cameraId}/counts and its own status to
// forms/system/status.
const (
	// TopicPrefix is the base for all forms-core topics.
	TopicPrefix = "forms"

	// TopicPrefixSystem is the base for system topics.
	TopicPrefixSystem = "forms/system"
)

// Topics provides builders for forms-core MQTT topics.
// Using these helpers ensures consistent topic naming across the codebase.
//
//	topics := mqtt.Topics{}
//	readingTopic := topics.SensorReading("sensor-river-north")
//	// Returns: "forms/reading/sensor-river-north"
type Topics struct{}

// SensorReading returns the topic a gateway publishes readings for one sensor to.
//
// Example: forms/reading/sensor-river-north
func (Topics) SensorReading(sensorID string) string {
	return fmt.Sprintf("%s/reading/%s", TopicPrefix, sensorID)
}

// Event returns the topic for a domain event published by forms-core.
//
// Example: forms/event/zone_created
func (Topics) Event(eventType string) string {
	return fmt.Sprintf("%s/event/%s", TopicPrefix, eventType)
}

// CameraCounts returns the topic for people/vehicle counts from a camera node.
//
// Example: forms/camera/cam-bridge-east/counts
func (Topics) CameraCounts(cameraID string) string {
	return fmt.Sprintf("%s/camera/%s/counts", TopicPrefix, cameraID)
}

// SystemStatus returns the forms-core status topic (online/offline, retained).
//
// Example: forms/system/status
func (Topics) SystemStatus() string {
	return fmt.Sprintf("%s/status", TopicPrefixSystem)
}

// AllSensorReadings returns a pattern matching readings from every sensor.
//
// Pattern: forms/reading/+
func (Topics) AllSensorReadings() string {
	return fmt.Sprintf("%s/reading/+", TopicPrefix)
}

