package ws

import (
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 8192
)

type roomKind string

const (
	roomKindTask roomKind = "task"
	roomKindUser roomKind = "user"
)

// Client is one live connection joined to exactly one room.
type Client struct {
	conn     *websocket.Conn
	send     chan []byte
	roomKind roomKind
	roomID   uuid.UUID
	hub      *Hub
}

func newClient(hub *Hub, conn *websocket.Conn, kind roomKind, roomID uuid.UUID) *Client {
	return &Client{
		conn:     conn,
		send:     make(chan []byte, 256),
		roomKind: kind,
		roomID:   roomID,
		hub:      hub,
	}
}

// readPump drains inbound frames to keep pong handling alive. Clients
// don't send application messages; joining a room is expressed by the
// connection URL.
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			break
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
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
