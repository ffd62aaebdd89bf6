package websocket

import (
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Presence tracks which users currently have at least one announced socket,
// plus ephemeral per-(user, chat) typing markers. It is entirely in-memory
// and rebuilt from nothing when the process restarts: a user with zero bound
// sockets is offline, full stop. Kept behind its own type so a shared store
// could replace it without touching the hub's call sites.
type Presence struct {
	mu      sync.RWMutex
	sockets map[string]map[*Client]bool // user hex -> bound sockets
	typing  map[typingKey]time.Time
	idle    time.Duration
	now     func() time.Time
}

type typingKey struct {
	userID string
	chatID string
}

func NewPresence(typingIdle time.Duration) *Presence {
	if typingIdle <= 0 {
		typingIdle = 5 * time.Second
	}
	return &Presence{
		sockets: make(map[string]map[*Client]bool),
		typing:  make(map[typingKey]time.Time),
		idle:    typingIdle,
		now:     time.Now,
	}
}

// Bind associates a socket with a user. Returns true when this is the user's
// first bound socket, i.e. the user just came online.
func (p *Presence) Bind(userID primitive.ObjectID, client *Client) bool {
	key := userID.Hex()

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.sockets[key] == nil {
		p.sockets[key] = make(map[*Client]bool)
	}
	first := len(p.sockets[key]) == 0
	p.sockets[key][client] = true
	return first
}

// Unbind removes a socket. Returns true when it was the user's last bound
// socket, i.e. the user just went offline.
func (p *Presence) Unbind(userID primitive.ObjectID, client *Client) bool {
	key := userID.Hex()

	p.mu.Lock()
	defer p.mu.Unlock()

	bound, ok := p.sockets[key]
	if !ok {
		return false
	}
	if _, had := bound[client]; !had {
		return false
	}
	delete(bound, client)
	if len(bound) == 0 {
		delete(p.sockets, key)
		for tk := range p.typing {
			if tk.userID == key {
				delete(p.typing, tk)
			}
		}
		return true
	}
	return false
}

func (p *Presence) IsOnline(userID primitive.ObjectID) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.sockets[userID.Hex()]) > 0
}

// OnlineUsers returns the hex ids of every user with a bound socket.
func (p *Presence) OnlineUsers() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()

	users := make([]string, 0, len(p.sockets))
	for key, bound := range p.sockets {
		if len(bound) > 0 {
			users = append(users, key)
		}
	}
	return users
}

// Sockets returns the currently bound sockets for a user.
func (p *Presence) Sockets(userID primitive.ObjectID) []*Client {
	p.mu.RLock()
	defer p.mu.RUnlock()

	bound := p.sockets[userID.Hex()]
	clients := make([]*Client, 0, len(bound))
	for c := range bound {
		clients = append(clients, c)
	}
	return clients
}

func (p *Presence) OnlineCount() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.sockets)
}

// SetTyping records or clears the ephemeral typing marker for (user, chat).
func (p *Presence) SetTyping(userID, chatID primitive.ObjectID, isTyping bool) {
	key := typingKey{userID: userID.Hex(), chatID: chatID.Hex()}

	p.mu.Lock()
	defer p.mu.Unlock()

	if isTyping {
		p.typing[key] = p.now()
	} else {
		delete(p.typing, key)
	}
}

// IsTyping reports whether the marker exists and has not idled out. Expired
// markers are evicted on check rather than by a background sweeper.
func (p *Presence) IsTyping(userID, chatID primitive.ObjectID) bool {
	key := typingKey{userID: userID.Hex(), chatID: chatID.Hex()}

	p.mu.Lock()
	defer p.mu.Unlock()

	started, ok := p.typing[key]
	if !ok {
		return false
	}
	if p.now().Sub(started) > p.idle {
		delete(p.typing, key)
		return false
	}
	return true
}
