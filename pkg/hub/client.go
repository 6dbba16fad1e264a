package hub

import (
	"encoding/json"
	"time"

	"github.com/gofiber/websocket/v2"
)

const (
	writeWait  = 5 * time.Second
	pongWait   = 30 * time.Second
	pingPeriod = pongWait * 9 / 10

	// subscribe requests are tiny
	maxInbound = 4 * 1024

	sendBuffer = 128
)

// Conn is the part of a websocket connection a client needs. The *Conn
// types of both fiber websocket packages satisfy it.
type Conn interface {
	SetReadLimit(limit int64)
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
	SetPongHandler(h func(appData string) error)
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// Client is one subscriber.
type Client struct {
	hub  *Hub
	conn Conn
	send chan Message

	// topics is owned by the hub goroutine; nil means all topics.
	topics map[string]bool
}

// NewClient registers conn with h. Call Run to serve it.
func NewClient(h *Hub, conn Conn) *Client {
	c := &Client{hub: h, conn: conn, send: make(chan Message, sendBuffer)}
	select {
	case h.register <- c:
	case <-h.done:
		close(c.send)
	}
	return c
}

// Run serves the connection and returns when it closes.
func (c *Client) Run() {
	go c.writePump()
	c.readPump()
}

func (c *Client) wants(topic string) bool {
	return topic == "" || c.topics == nil || c.topics[topic]
}

// readPump handles subscribe requests and pongs until the peer goes away.
func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxInbound)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		kind, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		if kind != websocket.TextMessage {
			continue
		}
		var req Subscribe
		if json.Unmarshal(data, &req) != nil {
			c.hub.logger.Debug("ignoring client message", "bytes", len(data))
			continue
		}
		select {
		case c.hub.subscribe <- subscription{client: c, topics: req.Topics}:
		case <-c.hub.done:
			return
		}
	}
}

// writePump is the only writer on the connection.
func (c *Client) writePump() {
	ping := time.NewTicker(pingPeriod)
	defer func() {
		ping.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, nil)
				return
			}
			frame := websocket.TextMessage
			if msg.Kind == Binary {
				frame = websocket.BinaryMessage
			}
			if err := c.conn.WriteMessage(frame, msg.Data); err != nil {
				return
			}

		case <-ping.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
