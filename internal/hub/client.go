package hub

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const sendBufferSize = 256

// Client is a single WebSocket connection tracked by the hub.
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte

	id   string
	role Role

	// onMessage is invoked from the read pump for every inbound frame.
	// Set before Start; nil means inbound frames are discarded.
	onMessage func(data []byte)
	// onClose runs once when the read pump exits, before unregistering.
	onClose func()

	sendOnce sync.Once
}

// NewClient wraps an upgraded connection. The client is not registered
// and its pumps are not running until Start is called.
func NewClient(h *Hub, conn *websocket.Conn, id string, role Role) *Client {
	return &Client{
		hub:  h,
		conn: conn,
		send: make(chan []byte, sendBufferSize),
		id:   id,
		role: role,
	}
}

// ID returns the identity the client connected with.
func (c *Client) ID() string { return c.id }

// Role returns the client's endpoint role.
func (c *Client) Role() Role { return c.role }

// SetMessageHandler installs the inbound frame handler. Must be called
// before Start.
func (c *Client) SetMessageHandler(fn func(data []byte)) { c.onMessage = fn }

// SetCloseHandler installs a callback run when the connection ends.
// Must be called before Start.
func (c *Client) SetCloseHandler(fn func()) { c.onClose = fn }

// Start registers the client and launches its read and write pumps.
func (c *Client) Start() {
	c.hub.Register(c)
	go c.writePump()
	go c.readPump()
}

// Send marshals an envelope onto the client's outbound queue. The frame
// is dropped if the queue is full or the client is gone.
func (c *Client) Send(env Envelope) bool {
	data, ok := c.hub.marshal(env)
	if !ok {
		return false
	}
	return c.trySend(data)
}

// SendRaw queues a pre-encoded frame without touching its bytes.
func (c *Client) SendRaw(raw []byte) bool {
	return c.trySend(raw)
}

// trySend enqueues without blocking. The recover absorbs the race where
// the send channel closes between the registry check and the enqueue.
func (c *Client) trySend(data []byte) (sent bool) {
	defer func() {
		if r := recover(); r != nil {
			sent = false
		}
	}()
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

// closeSend closes the outbound queue exactly once. Both Unregister and
// Register-eviction paths funnel through here.
func (c *Client) closeSend() {
	c.sendOnce.Do(func() {
		close(c.send)
	})
}

func (c *Client) readPump() {
	defer func() {
		if c.onClose != nil {
			c.onClose()
		}
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	cfg := c.hub.cfg
	deadline := time.Duration(cfg.PingInterval+cfg.PongTimeout) * time.Second

	c.conn.SetReadLimit(int64(cfg.MaxMessageSize))
	c.conn.SetReadDeadline(time.Now().Add(deadline))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(deadline))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.Warn("websocket read error", "id", c.id, "error", err)
			} else {
				c.hub.logger.Debug("websocket closed", "id", c.id, "error", err)
			}
			return
		}

		c.conn.SetReadDeadline(time.Now().Add(deadline))

		if c.onMessage != nil {
			c.onMessage(message)
		}
	}
}

func (c *Client) writePump() {
	cfg := c.hub.cfg
	pingInterval := time.Duration(cfg.PingInterval) * time.Second
	writeWait := time.Duration(cfg.PongTimeout) * time.Second

	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, nil)
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// MessageType peeks at the type field of an inbound frame without
// decoding the rest of it.
func MessageType(raw []byte) string {
	var probe struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return ""
	}
	return probe.Type
}
