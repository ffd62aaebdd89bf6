package websocket

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
)

// Client is one socket connection. A freshly upgraded client is anonymous;
// it gains a user identity only after its announce event is processed.
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte

	mu        sync.RWMutex
	userID    primitive.ObjectID
	announced bool
	rooms     map[string]bool

	// authUserID is the identity the auth middleware resolved at upgrade
	// time; an announce claiming a different user is rejected.
	authUserID primitive.ObjectID
}

func NewClient(hub *Hub, conn *websocket.Conn, authUserID primitive.ObjectID) *Client {
	return &Client{
		hub:        hub,
		conn:       conn,
		send:       make(chan []byte, 256),
		rooms:      make(map[string]bool),
		authUserID: authUserID,
	}
}

func (c *Client) UserID() primitive.ObjectID {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.userID
}

func (c *Client) Announced() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.announced
}

func (c *Client) bindUser(userID primitive.ObjectID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.userID = userID
	c.announced = true
}

func (c *Client) joinRoom(roomID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rooms[roomID] = true
}

func (c *Client) leaveRoom(roomID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.rooms, roomID)
}

func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.logger.WithError(err).Debug("WebSocket read error")
			}
			break
		}

		c.handleEvent(message)
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

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			// Flush queued messages into the same frame batch.
			n := len(c.send)
			for i := 0; i < n; i++ {
				w.Write([]byte{'\n'})
				w.Write(<-c.send)
			}

			if err := w.Close(); err != nil {
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

func (c *Client) handleEvent(raw []byte) {
	var event Event
	if err := json.Unmarshal(raw, &event); err != nil {
		c.hub.logger.WithError(err).Debug("Dropping malformed socket event")
		return
	}

	switch event.Type {
	case EventAnnounce:
		userID, err := primitive.ObjectIDFromHex(event.UserID)
		if err != nil {
			return
		}
		if !c.authUserID.IsZero() && c.authUserID != userID {
			c.hub.logger.WithUserID(c.authUserID).Warn("Announce rejected: identity mismatch")
			return
		}
		c.hub.Announce(c, userID)

	case EventJoinChat:
		if chatID, err := primitive.ObjectIDFromHex(event.ChatID); err == nil {
			c.hub.JoinChat(c, chatID)
		}

	case EventLeaveChat:
		if chatID, err := primitive.ObjectIDFromHex(event.ChatID); err == nil {
			c.hub.LeaveChat(c, chatID)
		}

	case EventTyping:
		chatID, err := primitive.ObjectIDFromHex(event.ChatID)
		if err != nil {
			return
		}
		isTyping, _ := event.Data["is_typing"].(bool)
		c.hub.RelayTyping(c, chatID, isTyping)

	default:
		c.hub.logger.Debugf("Ignoring unknown socket event type %q", event.Type)
	}
}
