package realtime

import (
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBufferSize = 256
)

// Client is the middleman between one websocket connection and the hub.
// UserID is uuid.Nil for anonymous connections; those are never registered
// and stay invisible to presence.
type Client struct {
	UserID uuid.UUID
	Conn   *websocket.Conn

	// Buffered queue of outbound frames. The write pump drains it in order,
	// which is what keeps per-recipient event ordering intact.
	Send chan []byte

	hub    *Hub
	router *Router

	done      chan struct{}
	closeOnce sync.Once
}

func NewClient(hub *Hub, router *Router, conn *websocket.Conn, userID uuid.UUID) *Client {
	return &Client{
		UserID: userID,
		Conn:   conn,
		Send:   make(chan []byte, sendBufferSize),
		hub:    hub,
		router: router,
		done:   make(chan struct{}),
	}
}

// shutdown signals both pumps to exit. Safe to call more than once; the Send
// channel itself is never closed so late enqueues cannot panic.
func (c *Client) shutdown() {
	c.closeOnce.Do(func() {
		close(c.done)
	})
}

// enqueue offers one frame to the send queue without blocking.
func (c *Client) enqueue(msg []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.Send <- msg:
		return true
	case <-c.done:
		return false
	default:
		return false
	}
}

// readPump pumps inbound frames from the websocket into the router.
func (c *Client) readPump() {
	defer func() {
		if c.UserID != uuid.Nil {
			c.hub.Unregister(c)
		} else {
			c.shutdown()
		}
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, msg, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.Warn("Client", "Unexpected close", map[string]interface{}{"user_id": c.UserID, "error": err.Error()})
			}
			break
		}
		c.router.Dispatch(c, msg)
	}
}

// writePump pumps frames from the send queue to the websocket connection.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))

			w, err := c.Conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)
			if err := w.Close(); err != nil {
				return
			}

		case <-c.done:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
			return

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// ServeWS runs one websocket session to completion. Authenticated sessions
// are registered for presence; anonymous ones only get the pumps.
func ServeWS(hub *Hub, router *Router, conn *websocket.Conn, userID uuid.UUID) {
	client := NewClient(hub, router, conn, userID)
	if userID != uuid.Nil {
		hub.Register(client)
	}

	go client.writePump()
	client.readPump()
}
