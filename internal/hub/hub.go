package hub

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/PKA-OpenLD/FORMS-app-sub000/internal/infrastructure/config"
	"github.com/PKA-OpenLD/FORMS-app-sub000/internal/infrastructure/logging"
)

// Role classifies a connected client by the endpoint it arrived on.
type Role string

const (
	// RoleUser is a map viewer receiving state-change events.
	RoleUser Role = "user"
	// RoleCamera is a camera node producing detections and WebRTC offers.
	RoleCamera Role = "camera"
	// RoleSignaling is a viewer peer negotiating a WebRTC stream.
	RoleSignaling Role = "signaling"
)

// Hub owns all live WebSocket connections. Clients are keyed by their
// declared identity; a second connection claiming an existing identity
// replaces the first (last writer wins).
type Hub struct {
	cfg    config.WebSocketConfig
	logger *logging.Logger

	mu   sync.RWMutex
	byID map[string]*Client
}

// NewHub creates a connection hub with no clients.
func NewHub(cfg config.WebSocketConfig, logger *logging.Logger) *Hub {
	return &Hub{
		cfg:    cfg,
		logger: logger,
		byID:   map[string]*Client{},
	}
}

// Run blocks until the context is cancelled, then closes every client.
func (h *Hub) Run(ctx context.Context) {
	<-ctx.Done()
	h.closeAll()
}

// Register adds a client to the hub. If another client already holds the
// same identity it is evicted and its connection closed.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	prev := h.byID[c.id]
	h.byID[c.id] = c
	total := len(h.byID)
	h.mu.Unlock()

	if prev != nil && prev != c {
		h.logger.Debug("websocket identity replaced", "id", c.id, "role", c.role)
		prev.closeSend()
		if prev.conn != nil {
			prev.conn.Close()
		}
	}
	h.logger.Debug("websocket client connected", "id", c.id, "role", c.role, "clients", total)
}

// Unregister removes a client. Only the client currently holding the
// identity is removed, so a stale connection evicted by Register cannot
// unregister its replacement. Safe to call more than once.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	existed := false
	if cur, ok := h.byID[c.id]; ok && cur == c {
		delete(h.byID, c.id)
		existed = true
	}
	total := len(h.byID)
	h.mu.Unlock()

	if existed {
		c.closeSend()
		h.logger.Debug("websocket client disconnected", "id", c.id, "role", c.role, "clients", total)
	}
}

// FindByID returns the client holding the given identity, or nil.
func (h *Hub) FindByID(id string) *Client {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.byID[id]
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.byID)
}

// CountByRole returns the number of connected clients with the given role.
func (h *Hub) CountByRole(role Role) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for _, c := range h.byID {
		if c.role == role {
			n++
		}
	}
	return n
}

// BroadcastToRole sends an envelope to every client with the given role.
// Slow clients are skipped rather than blocking the caller.
func (h *Hub) BroadcastToRole(role Role, env Envelope) {
	data, ok := h.marshal(env)
	if !ok {
		return
	}

	targets := h.snapshotRole(role, nil)
	sent := 0
	for _, c := range targets {
		if c.trySend(data) {
			sent++
		}
	}
	if sent > 0 {
		h.logger.Debug("broadcast sent", "type", env.Type, "role", role, "recipients", sent)
	}
}

// SendToUser delivers an envelope to a single client by identity.
// Unknown identities are a no-op.
func (h *Hub) SendToUser(id string, env Envelope) bool {
	c := h.FindByID(id)
	if c == nil {
		return false
	}
	data, ok := h.marshal(env)
	if !ok {
		return false
	}
	return c.trySend(data)
}

// SendRawTo forwards a pre-encoded frame to a single client by identity
// without touching its bytes. Returns false if the client is not
// connected or its queue is full.
func (h *Hub) SendRawTo(id string, raw []byte) bool {
	c := h.FindByID(id)
	if c == nil {
		return false
	}
	return c.trySend(raw)
}

// RelayToRoleExcept forwards a raw frame, unmodified, to every client
// sharing the sender's role except the sender itself.
func (h *Hub) RelayToRoleExcept(sender *Client, raw []byte) int {
	targets := h.snapshotRole(sender.role, sender)
	sent := 0
	for _, c := range targets {
		if c.trySend(raw) {
			sent++
		}
	}
	return sent
}

func (h *Hub) marshal(env Envelope) ([]byte, bool) {
	if env.Timestamp == "" {
		env.Timestamp = time.Now().UTC().Format(time.RFC3339)
	}
	data, err := json.Marshal(env)
	if err != nil {
		h.logger.Error("failed to marshal broadcast envelope", "type", env.Type, "error", err)
		return nil, false
	}
	return data, true
}

// snapshotRole copies matching clients out under the read lock so sends
// happen without holding it.
func (h *Hub) snapshotRole(role Role, except *Client) []*Client {
	h.mu.RLock()
	defer h.mu.RUnlock()
	targets := make([]*Client, 0, len(h.byID))
	for _, c := range h.byID {
		if c.role == role && c != except {
			targets = append(targets, c)
		}
	}
	return targets
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	clients := h.byID
	h.byID = map[string]*Client{}
	h.mu.Unlock()

	for _, c := range clients {
		c.closeSend()
		if c.conn != nil {
			c.conn.Close()
		}
	}
	h.logger.Info("websocket hub shut down", "clients_closed", len(clients))
}
