// Package camera manages registered camera-AI nodes.
//
// Each node streams detection counts over its WebSocket connection and
// negotiates WebRTC video sessions through the signaling router. The
// store holds current counts and session state only; count history is
// written to InfluxDB.
package camera
