package realtime

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"linkhub/internal/domain"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
)

// Client is the middleman between one websocket connection and the hub.
// Its lifecycle is connecting (upgraded, not joined) -> open (joined) ->
// closed; the server owns no reconnect logic.
type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	send   chan []byte
	userID uuid.UUID
	joined bool
}

func NewClient(hub *Hub, conn *websocket.Conn, userID uuid.UUID) *Client {
	return &Client{
		hub:    hub,
		conn:   conn,
		send:   make(chan []byte, 256),
		userID: userID,
	}
}

// Start launches the read and write pumps. It returns immediately.
func (c *Client) Start() {
	go c.writePump()
	go c.readPump()
}

type inboundEvent struct {
	Event       string    `json:"event"`
	UserID      uuid.UUID `json:"user_id,omitempty"`
	RecipientID uuid.UUID `json:"recipient_id,omitempty"`
	IsTyping    bool      `json:"is_typing,omitempty"`
}

// readPump consumes control events from the peer until the transport closes.
func (c *Client) readPump() {
	defer func() {
		if c.joined {
			c.hub.unregister <- c
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.log.Debug("Websocket closed unexpectedly", "user_id", c.userID, "error", err)
			}
			return
		}

		var event inboundEvent
		if err := json.Unmarshal(raw, &event); err != nil {
			c.hub.log.Debug("Ignoring malformed inbound event", "user_id", c.userID, "error", err)
			continue
		}

		switch event.Event {
		case "join":
			// The room is always the authenticated identity; a join for
			// someone else's ID is ignored.
			if c.joined || (event.UserID != uuid.Nil && event.UserID != c.userID) {
				continue
			}
			c.joined = true
			c.hub.register <- c

		case "typing":
			if !c.joined || event.RecipientID == uuid.Nil {
				continue
			}
			c.hub.EmitToUser(event.RecipientID, domain.Event{
				Type:    domain.EventUserTyping,
				Payload: domain.TypingPayload{SenderID: c.userID, IsTyping: event.IsTyping},
			})
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
