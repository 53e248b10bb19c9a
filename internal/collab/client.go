package collab

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/inamate/crosshair/internal/crosshair"
	"github.com/inamate/crosshair/internal/scene"
)

const (
	writeWait  = 10 * time.Second
	pingPeriod = 30 * time.Second
	maxMsgSize = 64 * 1024
)

// Client is one websocket connection joined to a scene. A client owns the
// input focus for at most one crosshair session at a time.
type Client struct {
	hub      *Hub
	conn     *websocket.Conn
	scene    *scene.Scene
	send     chan []byte
	SceneID  string
	ClientID string

	mu      sync.Mutex
	closed  bool
	session *crosshair.Session
}

func NewClient(hub *Hub, conn *websocket.Conn, sc *scene.Scene, clientID string) *Client {
	return &Client{
		hub:      hub,
		conn:     conn,
		scene:    sc,
		send:     make(chan []byte, 256),
		SceneID:  sc.ID(),
		ClientID: clientID,
	}
}

func (c *Client) ReadPump(ctx context.Context) {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close(websocket.StatusNormalClosure, "")
	}()

	c.conn.SetReadLimit(maxMsgSize)

	for {
		_, data, err := c.conn.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) == websocket.StatusNormalClosure ||
				websocket.CloseStatus(err) == websocket.StatusGoingAway {
				return
			}
			slog.Debug("read error", "error", err, "client", c.ClientID)
			return
		}

		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			slog.Warn("invalid message", "error", err, "client", c.ClientID)
			c.SendError("invalid message")
			continue
		}

		msg.ClientID = c.ClientID
		msg.SceneID = c.SceneID

		c.hub.handleMessage(c, &msg)
	}
}

func (c *Client) WritePump(ctx context.Context) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close(websocket.StatusNormalClosure, "")
	}()

	for {
		select {
		case message, ok := <-c.send:
			if !ok {
				return
			}

			writeCtx, cancel := context.WithTimeout(ctx, writeWait)
			err := c.conn.Write(writeCtx, websocket.MessageText, message)
			cancel()
			if err != nil {
				slog.Debug("write error", "error", err, "client", c.ClientID)
				return
			}

		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, writeWait)
			err := c.conn.Ping(pingCtx)
			cancel()
			if err != nil {
				return
			}

		case <-ctx.Done():
			return
		}
	}
}

func (c *Client) Send(msg *Message) {
	msg.SceneID = c.SceneID
	data, err := json.Marshal(msg)
	if err != nil {
		slog.Error("marshal message", "error", err)
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.send <- data:
	default:
		slog.Warn("client send buffer full, dropping message", "client", c.ClientID)
	}
}

func (c *Client) SendError(message string) {
	c.Send(newMessage(TypeError, ErrorPayload{Message: message}))
}

// activeSession returns the client's session if it is still running.
func (c *Client) activeSession() *crosshair.Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session != nil && c.session.Phase().Terminal() {
		c.session = nil
	}
	return c.session
}

func (c *Client) setSession(s *crosshair.Session) {
	c.mu.Lock()
	c.session = s
	c.mu.Unlock()
}

// close cancels the running session, which restores its target, and then
// stops the write pump.
func (c *Client) close() {
	if s := c.activeSession(); s != nil {
		s.Cancel()
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}
