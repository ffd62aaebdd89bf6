package models

import (
	"sort"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Chat is a two-party messaging thread. Members are stored sorted by hex id
// and MemberKey is the canonical lookup key, so the same unordered pair always
// resolves to the same document regardless of argument order.
type Chat struct {
	ID          primitive.ObjectID   `json:"id" bson:"_id,omitempty"`
	Members     []primitive.ObjectID `json:"members" bson:"members" validate:"required,len=2"`
	MemberKey   string               `json:"-" bson:"member_key"`
	LastMessage *Message             `json:"last_message" bson:"last_message"`
	UnreadCount int64                `json:"unread_message_count" bson:"unread_message_count"`
	CreatedAt   time.Time            `json:"created_at" bson:"created_at"`
	UpdatedAt   time.Time            `json:"updated_at" bson:"updated_at"`
}

// CanonicalMembers returns the pair sorted by hex id.
func CanonicalMembers(a, b primitive.ObjectID) []primitive.ObjectID {
	members := []primitive.ObjectID{a, b}
	sort.Slice(members, func(i, j int) bool {
		return members[i].Hex() < members[j].Hex()
	})
	return members
}

// MemberKeyFor builds the canonical pair key used by the unique chat index.
func MemberKeyFor(a, b primitive.ObjectID) string {
	members := CanonicalMembers(a, b)
	return strings.Join([]string{members[0].Hex(), members[1].Hex()}, ":")
}

// HasMember reports whether userID is one of the chat's two members.
func (c *Chat) HasMember(userID primitive.ObjectID) bool {
	for _, m := range c.Members {
		if m == userID {
			return true
		}
	}
	return false
}

// OtherMember returns the member that is not userID.
func (c *Chat) OtherMember(userID primitive.ObjectID) primitive.ObjectID {
	for _, m := range c.Members {
		if m != userID {
			return m
		}
	}
	return primitive.NilObjectID
}
