package services

import (
	"context"
	"errors"
	"strings"

	"gotrike/internal/models"
	"gotrike/internal/observability"
	"gotrike/internal/repositories/interfaces"
	"gotrike/internal/utils"
	"gotrike/pkg/apperrors"
	"gotrike/pkg/logger"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MessageRelay pushes a persisted message to recipients' live sockets.
// Delivery is best-effort; durability already lives in the store by the time
// this is called. The websocket handler implements it.
type MessageRelay interface {
	RelayMessage(chatID primitive.ObjectID, message *models.Message, recipients []primitive.ObjectID)
}

type ChatService interface {
	FindOrCreateChat(ctx context.Context, a, b primitive.ObjectID) (*models.Chat, error)
	GetChat(ctx context.Context, chatID, requesterID primitive.ObjectID) (*models.Chat, error)
	ListChatsForUser(ctx context.Context, userID primitive.ObjectID, params *utils.PaginationParams) ([]*models.Chat, int64, error)
	SendMessage(ctx context.Context, chatID, senderID primitive.ObjectID, content string, messageType models.MessageType) (*models.Message, error)
	ListMessages(ctx context.Context, chatID, requesterID primitive.ObjectID, params *utils.PaginationParams) ([]*models.Message, int64, error)
	MarkRead(ctx context.Context, chatID, readerID primitive.ObjectID) (int64, error)
}

type chatService struct {
	chatRepo interfaces.ChatRepository
	userRepo interfaces.UserRepository
	relay    MessageRelay
	logger   *logger.Logger
}

func NewChatService(
	chatRepo interfaces.ChatRepository,
	userRepo interfaces.UserRepository,
	relay MessageRelay,
	log *logger.Logger,
) ChatService {
	return &chatService{
		chatRepo: chatRepo,
		userRepo: userRepo,
		relay:    relay,
		logger:   log,
	}
}

// FindOrCreateChat returns the one chat for the unordered pair, creating it
// on first contact. Concurrent callers with either argument order converge on
// the same canonical member key; a loser of the insert race gets the winner's
// document back.
func (s *chatService) FindOrCreateChat(ctx context.Context, a, b primitive.ObjectID) (*models.Chat, error) {
	if a.IsZero() || b.IsZero() {
		return nil, apperrors.Validation("both member ids are required", nil)
	}
	if a == b {
		return nil, apperrors.Validation("cannot open a chat with yourself", nil)
	}

	for _, id := range []primitive.ObjectID{a, b} {
		if _, err := s.userRepo.GetByID(ctx, id); err != nil {
			if errors.Is(err, interfaces.ErrNotFound) {
				return nil, apperrors.NotFound("user", err)
			}
			return nil, apperrors.Internal("failed to resolve chat member", err)
		}
	}

	memberKey := models.MemberKeyFor(a, b)

	chat, err := s.chatRepo.GetChatByMemberKey(ctx, memberKey)
	if err == nil {
		return chat, nil
	}
	if !errors.Is(err, interfaces.ErrNotFound) {
		return nil, apperrors.Internal("failed to look up chat", err)
	}

	chat = &models.Chat{
		Members:   models.CanonicalMembers(a, b),
		MemberKey: memberKey,
	}

	err = s.chatRepo.CreateChat(ctx, chat)
	if err == nil {
		s.logger.LogChatEvent(chat.ID, "created", map[string]interface{}{
			"member_key": memberKey,
		})
		return chat, nil
	}
	if errors.Is(err, interfaces.ErrDuplicateKey) {
		existing, getErr := s.chatRepo.GetChatByMemberKey(ctx, memberKey)
		if getErr != nil {
			return nil, apperrors.Internal("failed to fetch chat after insert race", getErr)
		}
		return existing, nil
	}

	return nil, apperrors.Internal("failed to create chat", err)
}

func (s *chatService) GetChat(ctx context.Context, chatID, requesterID primitive.ObjectID) (*models.Chat, error) {
	chat, err := s.chatRepo.GetChatByID(ctx, chatID)
	if err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			return nil, apperrors.NotFound("chat", err)
		}
		return nil, apperrors.Internal("failed to get chat", err)
	}
	if !chat.HasMember(requesterID) {
		return nil, apperrors.Forbidden("not a member of this chat", nil)
	}
	return chat, nil
}

func (s *chatService) ListChatsForUser(ctx context.Context, userID primitive.ObjectID, params *utils.PaginationParams) ([]*models.Chat, int64, error) {
	chats, total, err := s.chatRepo.GetChatsByMember(ctx, userID, params)
	if err != nil {
		return nil, 0, apperrors.Internal("failed to list chats", err)
	}
	return chats, total, nil
}

func (s *chatService) SendMessage(ctx context.Context, chatID, senderID primitive.ObjectID, content string, messageType models.MessageType) (*models.Message, error) {
	if chatID.IsZero() || senderID.IsZero() {
		return nil, apperrors.Validation("chat id and sender id are required", nil)
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, apperrors.Validation("message content is required", nil)
	}
	if len(content) > utils.MaxMessageLength {
		return nil, apperrors.Validation("message content too long", nil)
	}
	if messageType == "" {
		messageType = models.MessageTypeText
	}

	chat, err := s.chatRepo.GetChatByID(ctx, chatID)
	if err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			return nil, apperrors.NotFound("chat", err)
		}
		return nil, apperrors.Internal("failed to get chat", err)
	}
	if !chat.HasMember(senderID) {
		return nil, apperrors.Forbidden("not a member of this chat", nil)
	}

	message := &models.Message{
		ChatID:   chatID,
		SenderID: senderID,
		Type:     messageType,
		Content:  content,
	}

	// Message insert goes first so a reader can never observe a lastMessage
	// pointer at a document that failed to persist.
	if err := s.chatRepo.CreateMessage(ctx, message); err != nil {
		return nil, apperrors.Internal("failed to save message", err)
	}

	// The message is already durable; a failed chat update loses nothing but
	// the denormalized pointer, so it is logged rather than surfaced.
	if err := s.chatRepo.SetLastMessage(ctx, chatID, message); err != nil {
		s.logger.WithChatID(chatID).WithError(err).Warn("Failed to update chat last message")
	}

	observability.MessagesSent.Inc()

	if s.relay != nil {
		s.relay.RelayMessage(chatID, message, chat.Members)
	}

	return message, nil
}

func (s *chatService) ListMessages(ctx context.Context, chatID, requesterID primitive.ObjectID, params *utils.PaginationParams) ([]*models.Message, int64, error) {
	chat, err := s.chatRepo.GetChatByID(ctx, chatID)
	if err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			return nil, 0, apperrors.NotFound("chat", err)
		}
		return nil, 0, apperrors.Internal("failed to get chat", err)
	}
	if !chat.HasMember(requesterID) {
		return nil, 0, apperrors.Forbidden("not a member of this chat", nil)
	}

	// Offset pagination can show ordering skew when messages arrive while a
	// client pages; clients de-duplicate by message id.
	messages, total, err := s.chatRepo.GetMessagesByChatID(ctx, chatID, params)
	if err != nil {
		return nil, 0, apperrors.Internal("failed to list messages", err)
	}
	return messages, total, nil
}

func (s *chatService) MarkRead(ctx context.Context, chatID, readerID primitive.ObjectID) (int64, error) {
	chat, err := s.chatRepo.GetChatByID(ctx, chatID)
	if err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			return 0, apperrors.NotFound("chat", err)
		}
		return 0, apperrors.Internal("failed to get chat", err)
	}
	if !chat.HasMember(readerID) {
		return 0, apperrors.Forbidden("not a member of this chat", nil)
	}

	marked, err := s.chatRepo.MarkAllMessagesRead(ctx, chatID, readerID)
	if err != nil {
		return 0, apperrors.Internal("failed to mark messages read", err)
	}

	return marked, nil
}
