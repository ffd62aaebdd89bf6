package interfaces

import (
	"context"

	"gotrike/internal/models"
	"gotrike/internal/utils"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type ChatRepository interface {
	// Chat operations
	CreateChat(ctx context.Context, chat *models.Chat) error
	GetChatByID(ctx context.Context, id primitive.ObjectID) (*models.Chat, error)
	GetChatByMemberKey(ctx context.Context, memberKey string) (*models.Chat, error)
	GetChatsByMember(ctx context.Context, memberID primitive.ObjectID, params *utils.PaginationParams) ([]*models.Chat, int64, error)

	// Message operations. CreateMessage only inserts; SetLastMessage updates
	// the chat's denormalized pointer and unread counter afterwards, so a
	// failed chat update can never orphan a lastMessage reference.
	CreateMessage(ctx context.Context, message *models.Message) error
	SetLastMessage(ctx context.Context, chatID primitive.ObjectID, message *models.Message) error
	GetMessagesByChatID(ctx context.Context, chatID primitive.ObjectID, params *utils.PaginationParams) ([]*models.Message, int64, error)

	// MarkAllMessagesRead flags every message in the chat not sent by readerID
	// and not already read by readerID, then resets the chat's unread counter.
	// Safe to call redundantly.
	MarkAllMessagesRead(ctx context.Context, chatID, readerID primitive.ObjectID) (int64, error)
}
