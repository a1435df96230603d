package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/PKA-OpenLD/FORMS-app-sub000/internal/camera"
	"github.com/PKA-OpenLD/FORMS-app-sub000/internal/hub"
	"github.com/PKA-OpenLD/FORMS-app-sub000/internal/infrastructure/mqtt"
)

const wsBufferSize = 1024

// upgrader upgrades HTTP connections to WebSocket.
// CheckOrigin always returns true; origin restrictions are enforced by
// the CORS middleware before the upgrade.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  wsBufferSize,
	WriteBufferSize: wsBufferSize,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// handleUserSocket upgrades a map viewer connection.
//
// GET /ws?userId={id}
//
// Any frame a viewer sends is rebroadcast verbatim to every other
// connected viewer; typed event envelopes flow the other way.
func (s *Server) handleUserSocket(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		writeBadRequest(w, "userId query parameter is required")
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("websocket upgrade failed", "error", err, "endpoint", "/ws")
		return
	}

	client := hub.NewClient(s.hub, conn, userID, hub.RoleUser)
	client.SetMessageHandler(func(data []byte) {
		s.hub.RelayToRoleExcept(client, data)
	})
	client.Start()
}

// handleCameraSocket upgrades a camera node connection.
//
// GET /camera-feed?cameraId={id}
//
// Camera nodes push detection messages; each one updates the camera
// store, fans out a camera-update event to viewers, and lands in the
// telemetry series.
func (s *Server) handleCameraSocket(w http.ResponseWriter, r *http.Request) {
	cameraID := r.URL.Query().Get("cameraId")
	if cameraID == "" {
		writeBadRequest(w, "cameraId query parameter is required")
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("websocket upgrade failed", "error", err, "endpoint", "/camera-feed")
		return
	}

	client := hub.NewClient(s.hub, conn, cameraID, hub.RoleCamera)
	client.SetMessageHandler(func(data []byte) {
		switch hub.MessageType(data) {
		case "detection":
			s.handleDetection(cameraID, data)
		default:
			s.logger.Debug("unhandled camera frame dropped",
				"camera_id", cameraID, "type", hub.MessageType(data))
		}
	})
	client.Start()
}

// handleSignalingSocket upgrades a WebRTC signaling peer connection.
//
// GET /signaling?peerId={id}
//
// Frames are handed to the signaling router untouched; a departing
// peer releases any producer binding it held.
func (s *Server) handleSignalingSocket(w http.ResponseWriter, r *http.Request) {
	peerID := r.URL.Query().Get("peerId")
	if peerID == "" {
		writeBadRequest(w, "peerId query parameter is required")
		return
	}
	if s.signal == nil {
		writeInternalError(w, "signaling is not available")
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("websocket upgrade failed", "error", err, "endpoint", "/signaling")
		return
	}

	// Token taken before Start: the hub evicts any old connection with
	// this identity during registration, and its late close must not
	// release the roles this connection is about to hold.
	token := s.signal.Connect(peerID)

	client := hub.NewClient(s.hub, conn, peerID, hub.RoleSignaling)
	client.SetMessageHandler(func(data []byte) {
		s.signal.HandleMessage(context.Background(), peerID, data)
	})
	client.SetCloseHandler(func() {
		s.signal.HandleDisconnect(context.Background(), peerID, token)
	})
	client.Start()
}

// detectionMessage is the frame a camera node sends per AI inference.
type detectionMessage struct {
	Type         string        `json:"type"`
	CameraID     string        `json:"cameraId"`
	Counts       camera.Counts `json:"counts"`
	UniqueCounts camera.Counts `json:"uniqueCounts"`
	Timestamp    int64         `json:"timestamp"`
}

// handleDetection processes one camera detection: persist the counts,
// notify viewers, record telemetry, mirror the counts to the bus. Store
// failures do not stop the viewer broadcast; counts on the map matter
// more than the history row.
func (s *Server) handleDetection(connCameraID string, raw []byte) {
	var msg detectionMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		s.logger.Warn("malformed detection dropped", "camera_id", connCameraID, "error", err)
		return
	}
	if msg.CameraID == "" {
		msg.CameraID = connCameraID
	}

	ctx := context.Background()
	if err := s.cameraRepo.UpdateCounts(ctx, msg.CameraID, msg.Counts, msg.UniqueCounts); err != nil {
		s.logger.Warn("camera counts update failed", "camera_id", msg.CameraID, "error", err)
	}

	s.broadcastToUsers(hub.EventCameraUpdate, map[string]any{
		"cameraId":  msg.CameraID,
		"counts":    msg.Counts,
		"timestamp": msg.Timestamp,
	})

	if s.influx != nil {
		detectedAt := time.Now().UTC()
		if msg.Timestamp > 0 {
			detectedAt = time.UnixMilli(msg.Timestamp).UTC()
		}
		s.influx.WriteCameraCounts(msg.CameraID, msg.Counts["people"], msg.Counts["vehicles"], detectedAt)
	}

	s.publishCameraCounts(msg)
}

// publishCameraCounts mirrors the latest counts to the camera's bus
// topic, retained so a subscriber joining later still sees them.
func (s *Server) publishCameraCounts(msg detectionMessage) {
	if s.mqtt == nil {
		return
	}

	payload, err := json.Marshal(map[string]any{
		"cameraId":     msg.CameraID,
		"counts":       msg.Counts,
		"uniqueCounts": msg.UniqueCounts,
		"timestamp":    msg.Timestamp,
	})
	if err != nil {
		return
	}

	topic := mqtt.Topics{}.CameraCounts(msg.CameraID)
	if err := s.mqtt.PublishRetained(topic, payload); err != nil {
		s.logger.Warn("camera counts publish failed", "camera_id", msg.CameraID, "error", err)
	}
}
