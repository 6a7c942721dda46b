package database

import (
	"database/sql"
	"time"

	"github.com/Haru-Log/harulog-server-ops/internal/types"
)

type Room struct {
	Id           string
	Name         string
	Type         types.RoomType
	ImageUrl     string
	LastActivity time.Time
	DeletedAt    sql.NullTime
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type User struct {
	Id           int
	Nickname     string
	EmailAddress string
	ImageUrl     string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Membership is the join row between a room and a user. A unique
// index on (room_id, user_id) guarantees at most one row per pair.
type Membership struct {
	Id        int
	RoomId    string
	UserId    int
	Nickname  string
	ImageUrl  string
	CreatedAt time.Time
}

type Message struct {
	Id        int
	RoomId    string
	UserId    int
	Nickname  string
	Type      types.MessageType
	Content   string
	CreatedAt time.Time
}

type CreateAccountParams struct {
	Nickname     string
	EmailAddress string
	PasswordHash string
	ImageUrl     string
}

type UpdateAccountParams struct {
	UserId       int
	Nickname     string
	PasswordHash string
	ImageUrl     string
}

type CreateRoomParams struct {
	Id       string
	Name     string
	Type     types.RoomType
	ImageUrl string
}

type CreateMessageParams struct {
	RoomId  string
	UserId  int
	Type    types.MessageType
	Content string
}
