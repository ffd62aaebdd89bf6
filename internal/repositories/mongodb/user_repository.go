package mongodb

import (
	"context"
	"fmt"
	"time"

	"gotrike/internal/models"
	"gotrike/internal/repositories/interfaces"
	"gotrike/internal/services"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type userRepository struct {
	collection *mongo.Collection
	cache      services.CacheService
}

func NewUserRepository(db *mongo.Database, cache services.CacheService) interfaces.UserRepository {
	return &userRepository{
		collection: db.Collection("users"),
		cache:      cache,
	}
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	user.ID = primitive.NewObjectID()
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now

	_, err := r.collection.InsertOne(ctx, user)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return interfaces.ErrDuplicateKey
		}
		return fmt.Errorf("failed to create user: %w", err)
	}

	return nil
}

func (r *userRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	if r.cache != nil {
		cacheKey := fmt.Sprintf("user:%s", id.Hex())
		var user models.User
		if err := r.cache.Get(ctx, cacheKey, &user); err == nil {
			return &user, nil
		}
	}

	var user models.User
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&user)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, interfaces.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if r.cache != nil {
		cacheKey := fmt.Sprintf("user:%s", id.Hex())
		r.cache.Set(ctx, cacheKey, &user, 10*time.Minute)
	}

	return &user, nil
}
