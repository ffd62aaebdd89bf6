package mongodb

import (
	"context"
	"fmt"
	"time"

	"gotrike/internal/models"
	"gotrike/internal/repositories/interfaces"
	"gotrike/internal/services"
	"gotrike/internal/utils"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type chatRepository struct {
	chatsCollection    *mongo.Collection
	messagesCollection *mongo.Collection
	cache              services.CacheService
}

func NewChatRepository(db *mongo.Database, cache services.CacheService) interfaces.ChatRepository {
	return &chatRepository{
		chatsCollection:    db.Collection("chats"),
		messagesCollection: db.Collection("messages"),
		cache:              cache,
	}
}

func (r *chatRepository) CreateChat(ctx context.Context, chat *models.Chat) error {
	chat.ID = primitive.NewObjectID()
	now := time.Now()
	chat.CreatedAt = now
	chat.UpdatedAt = now

	_, err := r.chatsCollection.InsertOne(ctx, chat)
	if err != nil {
		// The unique member_key index rejects the loser of a concurrent
		// first-contact race; the caller fetches the winner's chat instead.
		if mongo.IsDuplicateKeyError(err) {
			return interfaces.ErrDuplicateKey
		}
		return fmt.Errorf("failed to create chat: %w", err)
	}

	r.cacheChat(ctx, chat)

	return nil
}

func (r *chatRepository) GetChatByID(ctx context.Context, id primitive.ObjectID) (*models.Chat, error) {
	if chat := r.getChatFromCache(ctx, id.Hex()); chat != nil {
		return chat, nil
	}

	var chat models.Chat
	err := r.chatsCollection.FindOne(ctx, bson.M{"_id": id}).Decode(&chat)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, interfaces.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get chat: %w", err)
	}

	r.cacheChat(ctx, &chat)

	return &chat, nil
}

func (r *chatRepository) GetChatByMemberKey(ctx context.Context, memberKey string) (*models.Chat, error) {
	var chat models.Chat
	err := r.chatsCollection.FindOne(ctx, bson.M{"member_key": memberKey}).Decode(&chat)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, interfaces.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get chat by member key: %w", err)
	}

	return &chat, nil
}

func (r *chatRepository) GetChatsByMember(ctx context.Context, memberID primitive.ObjectID, params *utils.PaginationParams) ([]*models.Chat, int64, error) {
	filter := bson.M{
		"members": bson.M{"$in": []primitive.ObjectID{memberID}},
	}

	total, err := r.chatsCollection.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count chats: %w", err)
	}

	cursor, err := r.chatsCollection.Find(ctx, filter, params.GetSortOptions())
	if err != nil {
		return nil, 0, fmt.Errorf("failed to find chats: %w", err)
	}
	defer cursor.Close(ctx)

	var chats []*models.Chat
	for cursor.Next(ctx) {
		var chat models.Chat
		if err := cursor.Decode(&chat); err != nil {
			return nil, 0, fmt.Errorf("failed to decode chat: %w", err)
		}
		chats = append(chats, &chat)
	}

	return chats, total, nil
}

func (r *chatRepository) CreateMessage(ctx context.Context, message *models.Message) error {
	message.ID = primitive.NewObjectID()
	now := time.Now()
	message.CreatedAt = now
	message.UpdatedAt = now

	_, err := r.messagesCollection.InsertOne(ctx, message)
	if err != nil {
		return fmt.Errorf("failed to insert message: %w", err)
	}

	return nil
}

func (r *chatRepository) SetLastMessage(ctx context.Context, chatID primitive.ObjectID, message *models.Message) error {
	_, err := r.chatsCollection.UpdateOne(
		ctx,
		bson.M{"_id": chatID},
		bson.M{
			"$set": bson.M{
				"last_message": message,
				"updated_at":   time.Now(),
			},
			"$inc": bson.M{"unread_message_count": 1},
		},
	)
	if err != nil {
		return fmt.Errorf("failed to update chat last message: %w", err)
	}

	r.invalidateChatCache(ctx, chatID.Hex())

	return nil
}

func (r *chatRepository) GetMessagesByChatID(ctx context.Context, chatID primitive.ObjectID, params *utils.PaginationParams) ([]*models.Message, int64, error) {
	filter := bson.M{"chat_id": chatID}

	total, err := r.messagesCollection.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count messages: %w", err)
	}

	cursor, err := r.messagesCollection.Find(ctx, filter, params.GetSortOptions())
	if err != nil {
		return nil, 0, fmt.Errorf("failed to find messages: %w", err)
	}
	defer cursor.Close(ctx)

	var messages []*models.Message
	for cursor.Next(ctx) {
		var message models.Message
		if err := cursor.Decode(&message); err != nil {
			return nil, 0, fmt.Errorf("failed to decode message: %w", err)
		}
		messages = append(messages, &message)
	}

	return messages, total, nil
}

func (r *chatRepository) MarkAllMessagesRead(ctx context.Context, chatID, readerID primitive.ObjectID) (int64, error) {
	receipt := models.ReadReceipt{
		UserID: readerID,
		ReadAt: time.Now(),
	}

	// $addToSet over the filtered set keeps redundant calls idempotent: a
	// message already read by readerID is excluded by the filter, and the set
	// semantics guard against racing duplicates.
	result, err := r.messagesCollection.UpdateMany(
		ctx,
		bson.M{
			"chat_id":         chatID,
			"sender_id":       bson.M{"$ne": readerID},
			"read_by.user_id": bson.M{"$ne": readerID},
		},
		bson.M{"$addToSet": bson.M{"read_by": receipt}},
	)
	if err != nil {
		return 0, fmt.Errorf("failed to mark messages read: %w", err)
	}

	_, err = r.chatsCollection.UpdateOne(
		ctx,
		bson.M{"_id": chatID},
		bson.M{"$set": bson.M{
			"unread_message_count": 0,
			"updated_at":           time.Now(),
		}},
	)
	if err != nil {
		return result.ModifiedCount, fmt.Errorf("failed to reset unread counter: %w", err)
	}

	r.invalidateChatCache(ctx, chatID.Hex())

	return result.ModifiedCount, nil
}

// Cache operations
func (r *chatRepository) cacheChat(ctx context.Context, chat *models.Chat) {
	if r.cache != nil {
		cacheKey := fmt.Sprintf("chat:%s", chat.ID.Hex())
		r.cache.Set(ctx, cacheKey, chat, 30*time.Minute)
	}
}

func (r *chatRepository) getChatFromCache(ctx context.Context, chatID string) *models.Chat {
	if r.cache == nil {
		return nil
	}

	cacheKey := fmt.Sprintf("chat:%s", chatID)
	var chat models.Chat
	err := r.cache.Get(ctx, cacheKey, &chat)
	if err != nil {
		return nil
	}

	return &chat
}

func (r *chatRepository) invalidateChatCache(ctx context.Context, chatID string) {
	if r.cache != nil {
		cacheKey := fmt.Sprintf("chat:%s", chatID)
		r.cache.Delete(ctx, cacheKey)
	}
}
