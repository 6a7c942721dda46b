package types

import (
	"time"
)

// RoomType classifies a room by its member count. A room with more
// than two members is a group room, otherwise it is a direct message.
type RoomType string

const (
	RoomTypeDM    RoomType = "DM"
	RoomTypeGroup RoomType = "GROUP"
)

// MessageType distinguishes user-authored messages from system
// messages generated on membership changes.
type MessageType string

const (
	MessageTypeEnter MessageType = "ENTER"
	MessageTypeExit  MessageType = "EXIT"
	MessageTypeText  MessageType = "TEXT"
)

type User struct {
	Id           int       `json:"id"`
	Nickname     string    `json:"nickname"`
	EmailAddress string    `json:"email_address,omitempty"`
	ImageUrl     string    `json:"image_url,omitempty"`
	Password     string    `json:"-"`
	CreatedAt    time.Time `json:"created_at,omitempty"`
	UpdatedAt    time.Time `json:"updated_at,omitempty"`
}

type Room struct {
	Id           string    `json:"id"`
	Name         string    `json:"name,omitempty"`
	Type         RoomType  `json:"type"`
	ImageUrl     string    `json:"image_url,omitempty"`
	MemberCount  int       `json:"member_count,omitempty"`
	LastActivity time.Time `json:"last_activity,omitempty"`
	CreatedAt    time.Time `json:"created_at,omitempty"`
	UpdatedAt    time.Time `json:"updated_at,omitempty"`
}

// RoomMember is the projection returned when listing a room's members.
type RoomMember struct {
	UserId   int    `json:"user_id"`
	Nickname string `json:"nickname"`
	ImageUrl string `json:"image_url,omitempty"`
}

type Message struct {
	Id             int         `json:"id"`
	RoomId         string      `json:"room_id"`
	SenderId       int         `json:"sender_id"`
	SenderNickname string      `json:"sender_nickname"`
	Type           MessageType `json:"type"`
	Content        string      `json:"content"`
	Timestamp      time.Time   `json:"timestamp"`
}
