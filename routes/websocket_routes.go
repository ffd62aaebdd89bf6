package routes

import (
	"gotrike/internal/middleware"
	"gotrike/pkg/websocket"

	"github.com/gin-gonic/gin"
)

// SetupWebSocketRoutes sets up the realtime socket endpoint
func SetupWebSocketRoutes(r *gin.RouterGroup, wsHandler *websocket.Handler, jwtSecret string) {
	r.GET("/ws", middleware.AuthRequired(jwtSecret), wsHandler.HandleWebSocket)
}
