package camera

import (
	"time"

	"github.com/PKA-OpenLD/FORMS-app-sub000/internal/geo"
)

// WebRTC session states reported by the signaling router.
const (
	WebRTCIdle       = "idle"
	WebRTCOfferSent  = "offer-sent"
	WebRTCAnswerSent = "answer-sent"
	WebRTCConnected  = "connected"
)

// Counts holds detection counts keyed by class ("people", "vehicles").
//
// A map rather than fixed fields: camera nodes ship new detector
// classes without a schema change.
type Counts map[string]int

// Camera is a registered camera-AI node streaming detections and video.
//
// Counts is the most recent frame's detections; UniqueCounts tracks
// distinct objects since the node started. Both are overwritten on each
// detection message, history goes to InfluxDB.
type Camera struct {
	ID              string          `json:"id"`
	Name            string          `json:"name"`
	Location        *geo.Coordinate `json:"location,omitempty"`
	Counts          Counts          `json:"counts"`
	UniqueCounts    Counts          `json:"uniqueCounts"`
	WebRTCState     string          `json:"webrtcState"`
	LastDetectionAt *time.Time      `json:"lastDetectionAt,omitempty"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
}
