package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestMemberKeyForIsOrderIndependent(t *testing.T) {
	a := primitive.NewObjectID()
	b := primitive.NewObjectID()

	assert.Equal(t, MemberKeyFor(a, b), MemberKeyFor(b, a))
	assert.Equal(t, CanonicalMembers(a, b), CanonicalMembers(b, a))
}

func TestChatMembership(t *testing.T) {
	a := primitive.NewObjectID()
	b := primitive.NewObjectID()
	chat := &Chat{Members: CanonicalMembers(a, b)}

	assert.True(t, chat.HasMember(a))
	assert.True(t, chat.HasMember(b))
	assert.False(t, chat.HasMember(primitive.NewObjectID()))

	assert.Equal(t, b, chat.OtherMember(a))
	assert.Equal(t, a, chat.OtherMember(b))
}
