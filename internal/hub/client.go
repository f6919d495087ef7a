package hub

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/roadpulse/roadpulse-backend-go/internal/models"
)

const (
	writeWait      = 10 * time.Second
	maxMessageSize = 4096
	sendBufferSize = 64
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Submissions carry no credentials; origin checks would only break the
	// mobile webviews
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Client is one connected websocket peer. Its only persistent state is the
// connection id plus the optional session/user affinity set by a join message.
type Client struct {
	ID string

	hub  *Hub
	conn *websocket.Conn
	send chan []byte

	mu        sync.RWMutex
	sessionID string
	userID    string
}

// SessionID returns the client's current session affinity, if any.
func (c *Client) SessionID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sessionID
}

func (c *Client) setSession(sessionID, userID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	// Re-declarable; last write wins
	c.sessionID = sessionID
	if userID != "" {
		c.userID = userID
	}
}

// Serve upgrades an HTTP request and runs the connection until it closes.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[Hub] Upgrade failed: %v", err)
		return
	}

	c := &Client{
		ID:   uuid.NewString(),
		hub:  h,
		conn: conn,
		send: make(chan []byte, sendBufferSize),
	}
	h.register(c)

	go c.writePump()
	go c.readPump()
}

// readPump consumes inbound messages until the connection dies. Pong handling
// feeds the heartbeat: a connection that misses one interval is removed.
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister(c)
		c.conn.Close()
	}()

	pongWait := c.hub.heartbeat
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("[Hub] Client %s read error: %v", c.ID, err)
			}
			return
		}
		c.handleMessage(data)
	}
}

// writePump flushes the send queue and drives the heartbeat.
func (c *Client) writePump() {
	pingPeriod := c.hub.heartbeat * 9 / 10
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
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

// handleMessage routes one inbound envelope. Every well-addressed message is
// acked to its sender; malformed input gets an error envelope and the
// connection stays open.
func (c *Client) handleMessage(data []byte) {
	var env models.Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		c.sendError("invalid message format")
		return
	}

	switch env.Type {
	case models.MsgTypeJoin:
		var p models.JoinPayload
		if err := json.Unmarshal(env.Payload, &p); err != nil || p.SessionID == "" {
			c.sendError("join requires a sessionId")
			return
		}
		c.setSession(p.SessionID, p.UserID)
		c.sendAck(env.Type)

	case models.MsgTypeLocation:
		var p models.LocationPayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			c.sendError("invalid location payload")
			return
		}
		c.sendAck(env.Type)
		c.hub.BroadcastSession(c.SessionID(), c, env)

	case models.MsgTypeSessionUpdate:
		var p models.SessionUpdatePayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			c.sendError("invalid session update payload")
			return
		}
		c.sendAck(env.Type)
		c.hub.BroadcastSession(c.SessionID(), c, env)

	case models.MsgTypeSpeedBump:
		var req models.ReportRequest
		if err := json.Unmarshal(env.Payload, &req); err != nil {
			c.sendError("invalid speed bump payload")
			return
		}
		if err := req.Validate(); err != nil {
			c.sendError(err.Error())
			return
		}
		c.sendAck(env.Type)

		out := env
		if c.hub.submit != nil {
			result, err := c.hub.submit(req)
			if err != nil {
				log.Printf("[Hub] Submit from %s failed: %v", c.ID, err)
				return
			}
			merged := struct {
				models.ReportRequest
				models.MergeResult
			}{req, *result}
			if payload, err := json.Marshal(merged); err == nil {
				out.Payload = payload
			}
		}
		// Confirmed bumps go to everyone, not just the session
		c.hub.BroadcastGlobal(out, c)

	case models.MsgTypePing:
		c.enqueue(models.Envelope{Type: models.MsgTypePong})

	default:
		c.sendError("unknown message type: " + env.Type)
	}
}

func (c *Client) sendAck(received string) {
	payload, _ := json.Marshal(models.AckPayload{Received: received})
	c.enqueue(models.Envelope{Type: models.MsgTypeAck, Payload: payload})
}

func (c *Client) sendError(msg string) {
	payload, _ := json.Marshal(models.ErrorPayload{Message: msg})
	c.enqueue(models.Envelope{Type: models.MsgTypeError, Payload: payload})
}

// enqueue queues an envelope to this client only, without blocking.
func (c *Client) enqueue(env models.Envelope) {
	data, err := json.Marshal(env)
	if err != nil {
		return
	}
	c.hub.mu.RLock()
	defer c.hub.mu.RUnlock()
	if _, ok := c.hub.clients[c]; !ok {
		// Already unregistered; send channel is closed
		return
	}
	c.hub.deliver(c, data)
}
