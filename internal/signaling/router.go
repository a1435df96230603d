package signaling

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/PKA-OpenLD/FORMS-app-sub000/internal/camera"
	"github.com/PKA-OpenLD/FORMS-app-sub000/internal/infrastructure/logging"
)

// Message type tags understood by the router.
const (
	TypeRegister     = "register"
	TypeOffer        = "offer"
	TypeAnswer       = "answer"
	TypeICECandidate = "ice-candidate"
	TypeConnected    = "connected"
)

// header is the routing envelope of a signaling frame. Only these
// fields are decoded; SDP and ICE payloads pass through untouched.
type header struct {
	Type     string `json:"type"`
	CameraID string `json:"cameraId"`
	PeerID   string `json:"peerId"`
}

// Relay delivers a raw frame to a connected peer by identity.
type Relay interface {
	SendRawTo(id string, raw []byte) bool
}

// CameraStateStore records WebRTC negotiation state for observability.
type CameraStateStore interface {
	UpdateWebRTC(ctx context.Context, cameraID, state string) error
}

// session tracks one camera's negotiation. A camera has at most one
// producer; consumers are viewer peers that have sent an offer.
type session struct {
	producerID string
	consumers  map[string]struct{}
	state      string
}

// Router relays WebRTC offer/answer/ICE frames between the producer and
// consumers of each camera session. Frames are forwarded byte-for-byte;
// the router never parses SDP, so codec and ICE changes never touch it.
type Router struct {
	relay   Relay
	cameras CameraStateStore
	logger  *logging.Logger

	mu        sync.Mutex
	sessions  map[string]*session
	conns     map[string]uint64
	lastToken uint64
}

// NewRouter creates a router with no sessions. cameras may be nil when
// negotiation state is not persisted.
func NewRouter(relay Relay, cameras CameraStateStore, logger *logging.Logger) *Router {
	return &Router{
		relay:    relay,
		cameras:  cameras,
		logger:   logger,
		sessions: map[string]*session{},
		conns:    map[string]uint64{},
	}
}

// Connect records a new connection for peerID and returns a token
// identifying it. A reconnect under the same identity supersedes the
// previous token, so the replaced connection's late HandleDisconnect
// cannot release roles the replacement holds.
func (r *Router) Connect(peerID string) uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lastToken++
	r.conns[peerID] = r.lastToken
	return r.lastToken
}

// HandleMessage routes one inbound frame from the peer identified by
// senderID. Undeliverable frames are dropped with a log line; routing
// never returns an error to the transport.
func (r *Router) HandleMessage(ctx context.Context, senderID string, raw []byte) {
	var h header
	if err := json.Unmarshal(raw, &h); err != nil {
		r.logger.Warn("unparsable signaling frame dropped", "sender", senderID, "error", err)
		return
	}

	switch h.Type {
	case TypeRegister:
		r.handleRegister(h.CameraID, senderID)
	case TypeOffer:
		r.handleOffer(ctx, h.CameraID, senderID, raw)
	case TypeAnswer:
		r.handleAnswer(ctx, h.CameraID, h.PeerID, raw)
	case TypeICECandidate:
		r.handleICE(h.CameraID, h.PeerID, senderID, raw)
	case TypeConnected:
		r.handleConnected(ctx, h.CameraID)
	default:
		r.logger.Warn("unknown signaling type dropped", "type", h.Type, "sender", senderID)
	}
}

// handleRegister binds a producer identity to a camera id. Rebinding
// replaces the previous producer.
func (r *Router) handleRegister(cameraID, producerID string) {
	if cameraID == "" {
		r.logger.Warn("register without camera id dropped", "sender", producerID)
		return
	}

	r.mu.Lock()
	sess := r.ensureSession(cameraID)
	sess.producerID = producerID
	r.mu.Unlock()

	r.logger.Info("signaling producer registered", "camera_id", cameraID, "producer", producerID)
}

// handleOffer forwards a consumer's offer to the camera's producer. No
// bound producer is recoverable: the producer may connect later and the
// consumer retries.
func (r *Router) handleOffer(ctx context.Context, cameraID, consumerID string, raw []byte) {
	r.mu.Lock()
	sess := r.sessions[cameraID]
	var producerID string
	if sess != nil && sess.producerID != "" {
		producerID = sess.producerID
		sess.consumers[consumerID] = struct{}{}
		sess.state = camera.WebRTCOfferSent
	}
	r.mu.Unlock()

	if producerID == "" {
		r.logger.Warn("offer dropped, no producer bound", "camera_id", cameraID, "consumer", consumerID)
		return
	}
	if !r.relay.SendRawTo(producerID, raw) {
		r.logger.Warn("offer dropped, producer unreachable", "camera_id", cameraID, "producer", producerID)
		return
	}
	r.recordState(ctx, cameraID, camera.WebRTCOfferSent)
}

// handleAnswer forwards the producer's answer back to the offering
// consumer. A consumer that disconnected mid-handshake is dropped
// without noise.
func (r *Router) handleAnswer(ctx context.Context, cameraID, peerID string, raw []byte) {
	r.mu.Lock()
	if sess := r.sessions[cameraID]; sess != nil {
		sess.state = camera.WebRTCAnswerSent
	}
	r.mu.Unlock()

	if peerID == "" || !r.relay.SendRawTo(peerID, raw) {
		r.logger.Debug("answer dropped, consumer gone", "camera_id", cameraID, "peer", peerID)
		return
	}
	r.recordState(ctx, cameraID, camera.WebRTCAnswerSent)
}

// handleICE forwards a candidate to the opposite party. Candidates from
// the producer go to the named consumer; anything else goes to the
// producer. Forwarding one frame at a time preserves candidate order.
func (r *Router) handleICE(cameraID, peerID, senderID string, raw []byte) {
	r.mu.Lock()
	sess := r.sessions[cameraID]
	var targetID string
	if sess != nil {
		if senderID == sess.producerID {
			targetID = peerID
		} else {
			targetID = sess.producerID
		}
	}
	r.mu.Unlock()

	if targetID == "" {
		r.logger.Warn("ice candidate dropped, no counterpart", "camera_id", cameraID, "sender", senderID)
		return
	}
	if !r.relay.SendRawTo(targetID, raw) {
		r.logger.Warn("ice candidate dropped, target unreachable", "camera_id", cameraID, "target", targetID)
	}
}

// handleConnected marks the session established. Purely observational;
// media already flows peer to peer at this point.
func (r *Router) handleConnected(ctx context.Context, cameraID string) {
	r.mu.Lock()
	if sess := r.sessions[cameraID]; sess != nil {
		sess.state = camera.WebRTCConnected
	}
	r.mu.Unlock()

	r.recordState(ctx, cameraID, camera.WebRTCConnected)
	r.logger.Info("webrtc session connected", "camera_id", cameraID)
}

// HandleDisconnect releases any session roles held by a departing peer.
// A departing producer resets its camera sessions to idle; consumers
// are simply forgotten. Only the connection currently holding the
// identity releases anything: a token superseded by a reconnect is a
// no-op, so close order between the old and new socket does not matter.
func (r *Router) HandleDisconnect(ctx context.Context, peerID string, token uint64) {
	var reset []string

	r.mu.Lock()
	if r.conns[peerID] != token {
		r.mu.Unlock()
		r.logger.Debug("stale signaling disconnect ignored", "peer", peerID)
		return
	}
	delete(r.conns, peerID)
	for cameraID, sess := range r.sessions {
		if sess.producerID == peerID {
			sess.producerID = ""
			sess.state = camera.WebRTCIdle
			reset = append(reset, cameraID)
		}
		delete(sess.consumers, peerID)
	}
	r.mu.Unlock()

	for _, cameraID := range reset {
		r.recordState(ctx, cameraID, camera.WebRTCIdle)
		r.logger.Info("signaling producer departed", "camera_id", cameraID, "producer", peerID)
	}
}

// SessionState reports a camera session's negotiation state, or idle
// when no session exists.
func (r *Router) SessionState(cameraID string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if sess := r.sessions[cameraID]; sess != nil && sess.state != "" {
		return sess.state
	}
	return camera.WebRTCIdle
}

// SessionCount returns the number of camera sessions the router tracks.
func (r *Router) SessionCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// ensureSession must be called with the mutex held.
func (r *Router) ensureSession(cameraID string) *session {
	sess, ok := r.sessions[cameraID]
	if !ok {
		sess = &session{
			consumers: map[string]struct{}{},
			state:     camera.WebRTCIdle,
		}
		r.sessions[cameraID] = sess
	}
	return sess
}

func (r *Router) recordState(ctx context.Context, cameraID, state string) {
	if r.cameras == nil {
		return
	}
	if err := r.cameras.UpdateWebRTC(ctx, cameraID, state); err != nil {
		r.logger.Debug("webrtc state write failed", "camera_id", cameraID, "state", state, "error", err)
	}
}
