package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type UserType string
type UserStatus string

const (
	UserTypeRider  UserType = "rider"
	UserTypeDriver UserType = "driver"
	UserTypeAdmin  UserType = "admin"

	UserStatusActive    UserStatus = "active"
	UserStatusSuspended UserStatus = "suspended"
	UserStatusBanned    UserStatus = "banned"
)

// User is the directory record consulted for role and ban checks. Account
// creation, credentials and verification live outside this service.
type User struct {
	ID          primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	DisplayName string             `json:"display_name" bson:"display_name" validate:"required"`
	Phone       string             `json:"phone" bson:"phone"`
	UserType    UserType           `json:"user_type" bson:"user_type" validate:"required"`
	Status      UserStatus         `json:"status" bson:"status" default:"active"`
	TodaGroup   string             `json:"toda_group" bson:"toda_group"`
	CreatedAt   time.Time          `json:"created_at" bson:"created_at"`
	UpdatedAt   time.Time          `json:"updated_at" bson:"updated_at"`
}

func (u *User) IsDriver() bool {
	return u.UserType == UserTypeDriver
}

func (u *User) IsBanned() bool {
	return u.Status == UserStatusBanned
}
