package handlers

import (
	"gotrike/internal/models"
	"gotrike/internal/services"
	"gotrike/internal/utils"
	"gotrike/internal/validators"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type ChatHandler struct {
	chatService services.ChatService
}

func NewChatHandler(chatService services.ChatService) *ChatHandler {
	return &ChatHandler{
		chatService: chatService,
	}
}

// FindOrCreateChat returns the chat between the caller and the given member,
// creating it on first contact. Both orderings of the pair resolve to the
// same chat.
func (h *ChatHandler) FindOrCreateChat(c *gin.Context) {
	var request validators.FindOrCreateChatRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		utils.BadRequestResponse(c, "Invalid request: "+err.Error())
		return
	}

	if errs := validators.ValidateFindOrCreateChatRequest(&request); len(errs) > 0 {
		utils.ValidationErrorResponse(c, errs.Fields())
		return
	}

	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	memberID, err := primitive.ObjectIDFromHex(request.MemberID)
	if err != nil {
		utils.BadRequestResponse(c, "Invalid member ID")
		return
	}

	chat, err := h.chatService.FindOrCreateChat(c.Request.Context(), userID, memberID)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, "Chat retrieved successfully", chat)
}

// GetChat retrieves one chat the caller is a member of
func (h *ChatHandler) GetChat(c *gin.Context) {
	chatID, ok := pathObjectID(c, "id", "Invalid chat ID")
	if !ok {
		return
	}

	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	chat, err := h.chatService.GetChat(c.Request.Context(), chatID, userID)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, "Chat retrieved successfully", chat)
}

// ListChats lists the caller's chats, most recently active first
func (h *ChatHandler) ListChats(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	params := utils.GetPaginationParams(c)
	chats, total, err := h.chatService.ListChatsForUser(c.Request.Context(), userID, params)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponseWithMeta(c, "Chats retrieved successfully", chats, &utils.Meta{
		Pagination: utils.CreatePaginationMeta(params, total),
	})
}

// SendMessage persists a message and relays it to live sockets
func (h *ChatHandler) SendMessage(c *gin.Context) {
	chatID, ok := pathObjectID(c, "id", "Invalid chat ID")
	if !ok {
		return
	}

	var request validators.SendMessageRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		utils.BadRequestResponse(c, "Invalid request: "+err.Error())
		return
	}

	if errs := validators.ValidateSendMessageRequest(&request); len(errs) > 0 {
		utils.ValidationErrorResponse(c, errs.Fields())
		return
	}

	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	messageType := models.MessageTypeText
	if request.Type != "" {
		messageType = models.MessageType(request.Type)
	}

	message, err := h.chatService.SendMessage(c.Request.Context(), chatID, userID, request.Content, messageType)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.CreatedResponse(c, "Message sent successfully", message)
}

// ListMessages lists a chat's messages in send order
func (h *ChatHandler) ListMessages(c *gin.Context) {
	chatID, ok := pathObjectID(c, "id", "Invalid chat ID")
	if !ok {
		return
	}

	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	params := utils.GetPaginationParams(c)
	messages, total, err := h.chatService.ListMessages(c.Request.Context(), chatID, userID, params)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponseWithMeta(c, "Messages retrieved successfully", messages, &utils.Meta{
		Pagination: utils.CreatePaginationMeta(params, total),
	})
}

// MarkRead marks every message from other members as read by the caller
func (h *ChatHandler) MarkRead(c *gin.Context) {
	chatID, ok := pathObjectID(c, "id", "Invalid chat ID")
	if !ok {
		return
	}

	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	updated, err := h.chatService.MarkRead(c.Request.Context(), chatID, userID)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, "Messages marked as read", gin.H{"updated": updated})
}
