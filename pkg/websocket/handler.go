package websocket

import (
	"net/http"
	"time"

	"gotrike/internal/models"
	"gotrike/internal/observability"
	"gotrike/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Handler upgrades HTTP requests to sockets and doubles as the message
// relay the chat service pushes through.
type Handler struct {
	hub    *Hub
	logger *logger.Logger
}

func NewHandler(hub *Hub, log *logger.Logger) *Handler {
	return &Handler{
		hub:    hub,
		logger: log,
	}
}

func (h *Handler) Hub() *Hub {
	return h.hub
}

func (h *Handler) HandleWebSocket(c *gin.Context) {
	userID, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	userObjectID, ok := userID.(primitive.ObjectID)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.WithError(err).Error("WebSocket upgrade failed")
		return
	}

	client := NewClient(h.hub, conn, userObjectID)
	h.hub.register <- client

	go client.writePump()
	go client.readPump()
}

// RelayMessage fans a persisted chat message out to every recipient's
// sockets. Recipients without a live socket are skipped; they pull the
// message from history on their next sync.
func (h *Handler) RelayMessage(chatID primitive.ObjectID, message *models.Message, recipients []primitive.ObjectID) {
	event := Event{
		Type:      EventChatMessage,
		ChatID:    chatID.Hex(),
		UserID:    message.SenderID.Hex(),
		Timestamp: time.Now().Unix(),
		Data: map[string]interface{}{
			"message": message,
		},
	}

	delivered := 0
	for _, userID := range recipients {
		delivered += h.hub.SendToUser(userID, event)
	}

	if delivered > 0 {
		observability.MessagesRelayed.Add(float64(delivered))
	}
	h.logger.WithChatID(chatID).Debugf("Relayed message to %d sockets", delivered)
}
