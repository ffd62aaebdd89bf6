package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type MessageType string

const (
	MessageTypeText     MessageType = "text"
	MessageTypeLocation MessageType = "location"
)

// Message is immutable after creation except for its read receipts.
type Message struct {
	ID        primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	ChatID    primitive.ObjectID `json:"chat_id" bson:"chat_id" validate:"required"`
	SenderID  primitive.ObjectID `json:"sender_id" bson:"sender_id" validate:"required"`
	Type      MessageType        `json:"type" bson:"type" default:"text"`
	Content   string             `json:"content" bson:"content"`
	Location  *Location          `json:"location,omitempty" bson:"location,omitempty"`
	ReadBy    []ReadReceipt      `json:"read_by" bson:"read_by"`
	CreatedAt time.Time          `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time          `json:"updated_at" bson:"updated_at"`
}

type ReadReceipt struct {
	UserID primitive.ObjectID `json:"user_id" bson:"user_id"`
	ReadAt time.Time          `json:"read_at" bson:"read_at"`
}

// ReadByUser reports whether userID has already recorded a read receipt.
func (m *Message) ReadByUser(userID primitive.ObjectID) bool {
	for _, r := range m.ReadBy {
		if r.UserID == userID {
			return true
		}
	}
	return false
}
