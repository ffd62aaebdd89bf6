package routes

import (
	"gotrike/internal/handlers"
	"gotrike/internal/middleware"

	"github.com/gin-gonic/gin"
)

// SetupChatRoutes sets up routes for chat and message operations
func SetupChatRoutes(r *gin.RouterGroup, chatHandler *handlers.ChatHandler, jwtSecret string) {
	chats := r.Group("/chats")
	chats.Use(middleware.AuthRequired(jwtSecret))
	{
		chats.POST("/", chatHandler.FindOrCreateChat)
		chats.GET("/", chatHandler.ListChats)
		chats.GET("/:id", chatHandler.GetChat)
		chats.POST("/:id/messages", chatHandler.SendMessage)
		chats.GET("/:id/messages", chatHandler.ListMessages)
		chats.POST("/:id/read", chatHandler.MarkRead)
	}
}
