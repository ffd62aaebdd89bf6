package websocket

import (
	"encoding/json"
	"sync"
	"time"

	"gotrike/internal/observability"
	"gotrike/pkg/logger"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Event is the wire format for everything crossing a socket.
type Event struct {
	Type      string                 `json:"type"`
	ChatID    string                 `json:"chat_id,omitempty"`
	UserID    string                 `json:"user_id,omitempty"`
	Timestamp int64                  `json:"timestamp"`
	Data      map[string]interface{} `json:"data,omitempty"`
}

const (
	EventAnnounce         = "announce"
	EventJoinChat         = "join_chat"
	EventLeaveChat        = "leave_chat"
	EventTyping           = "typing"
	EventChatMessage      = "chat_message"
	EventUserConnected    = "user_connected"
	EventUserDisconnected = "user_disconnected"
	EventOnlineUsers      = "online_users"
)

type Hub struct {
	clients    map[*Client]bool
	rooms      map[string]map[*Client]bool
	presence   *Presence
	register   chan *Client
	unregister chan *Client
	mutex      sync.RWMutex
	logger     *logger.Logger
}

func NewHub(presence *Presence, log *logger.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		rooms:      make(map[string]map[*Client]bool),
		presence:   presence,
		register:   make(chan *Client),
		unregister: make(chan *Client),
		logger:     log,
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)
		}
	}
}

func (h *Hub) Presence() *Presence {
	return h.presence
}

// registerClient tracks the raw connection. The socket stays anonymous —
// excluded from presence and routing — until it announces its user.
func (h *Hub) registerClient(client *Client) {
	h.mutex.Lock()
	h.clients[client] = true
	h.mutex.Unlock()

	observability.SocketsConnected.Inc()
	h.logger.Debug("Socket connected")
}

func (h *Hub) unregisterClient(client *Client) {
	h.mutex.Lock()
	if _, ok := h.clients[client]; !ok {
		h.mutex.Unlock()
		return
	}
	delete(h.clients, client)
	close(client.send)

	for roomID, room := range h.rooms {
		if _, exists := room[client]; exists {
			delete(room, client)
			if len(room) == 0 {
				delete(h.rooms, roomID)
			}
		}
	}
	h.mutex.Unlock()

	observability.SocketsConnected.Dec()

	if client.Announced() {
		last := h.presence.Unbind(client.UserID(), client)
		observability.UsersOnline.Set(float64(h.presence.OnlineCount()))
		if last {
			h.broadcastToAnnounced(Event{
				Type:      EventUserDisconnected,
				UserID:    client.UserID().Hex(),
				Timestamp: time.Now().Unix(),
			}, client)
			h.logger.WithUserID(client.UserID()).Debug("User went offline")
		}
	}
}

// Announce binds the calling socket to userID, makes the user visible in the
// online set and replies with the current online roster.
func (h *Hub) Announce(client *Client, userID primitive.ObjectID) {
	client.bindUser(userID)
	first := h.presence.Bind(userID, client)
	observability.UsersOnline.Set(float64(h.presence.OnlineCount()))

	if first {
		h.broadcastToAnnounced(Event{
			Type:      EventUserConnected,
			UserID:    userID.Hex(),
			Timestamp: time.Now().Unix(),
		}, client)
	}

	h.sendToClient(client, Event{
		Type:      EventOnlineUsers,
		Timestamp: time.Now().Unix(),
		Data: map[string]interface{}{
			"users": h.presence.OnlineUsers(),
		},
	})

	h.logger.WithUserID(userID).Debug("User announced presence")
}

func (h *Hub) JoinChat(client *Client, chatID primitive.ObjectID) {
	if !client.Announced() {
		return
	}

	h.mutex.Lock()
	defer h.mutex.Unlock()

	roomID := "chat_" + chatID.Hex()
	if h.rooms[roomID] == nil {
		h.rooms[roomID] = make(map[*Client]bool)
	}
	h.rooms[roomID][client] = true
	client.joinRoom(roomID)
}

func (h *Hub) LeaveChat(client *Client, chatID primitive.ObjectID) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	roomID := "chat_" + chatID.Hex()
	if room, exists := h.rooms[roomID]; exists {
		delete(room, client)
		client.leaveRoom(roomID)

		if len(room) == 0 {
			delete(h.rooms, roomID)
		}
	}
}

// RelayTyping forwards the typing flag to everyone else in the chat room.
// The sender side debounces; the hub relays whatever boolean it is given.
func (h *Hub) RelayTyping(sender *Client, chatID primitive.ObjectID, isTyping bool) {
	if !sender.Announced() {
		return
	}

	h.presence.SetTyping(sender.UserID(), chatID, isTyping)

	h.sendToRoomExcept("chat_"+chatID.Hex(), Event{
		Type:      EventTyping,
		ChatID:    chatID.Hex(),
		UserID:    sender.UserID().Hex(),
		Timestamp: time.Now().Unix(),
		Data: map[string]interface{}{
			"is_typing": isTyping,
		},
	}, sender)
}

// SendToUser delivers an event to every bound socket of one user. Offline
// users get nothing; they catch up from the persisted history.
func (h *Hub) SendToUser(userID primitive.ObjectID, event Event) int {
	delivered := 0
	for _, client := range h.presence.Sockets(userID) {
		if h.sendToClient(client, event) {
			delivered++
		}
	}
	return delivered
}

func (h *Hub) broadcastToAnnounced(event Event, except *Client) {
	data, err := json.Marshal(event)
	if err != nil {
		return
	}

	h.mutex.RLock()
	defer h.mutex.RUnlock()

	for client := range h.clients {
		if client == except || !client.Announced() {
			continue
		}
		select {
		case client.send <- data:
		default:
			// Slow consumer; the read pump will notice the closed channel
			// and unregister the socket.
		}
	}
}

func (h *Hub) sendToRoomExcept(roomID string, event Event, except *Client) {
	data, err := json.Marshal(event)
	if err != nil {
		return
	}

	h.mutex.RLock()
	defer h.mutex.RUnlock()

	room, exists := h.rooms[roomID]
	if !exists {
		return
	}

	for client := range room {
		if client == except {
			continue
		}
		select {
		case client.send <- data:
		default:
		}
	}
}

// sendToClient is best-effort: a full send buffer drops the event rather
// than blocking the hub.
func (h *Hub) sendToClient(client *Client, event Event) bool {
	data, err := json.Marshal(event)
	if err != nil {
		return false
	}

	select {
	case client.send <- data:
		return true
	default:
		return false
	}
}
