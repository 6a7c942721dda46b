package database

import (
	"errors"

	"github.com/Haru-Log/harulog-server-ops/internal/types"
)

// ErrNotFound is returned by lookups that match no row. Callers are
// expected to translate it into their own error taxonomy rather than
// leak database/sql internals.
var ErrNotFound = errors.New("database: not found")

// ErrDuplicateMembership is returned when inserting a membership that
// already exists for the (room, user) pair.
var ErrDuplicateMembership = errors.New("database: duplicate membership")

type ChatRepository interface {
	Ping() error
	CreateAccount(params CreateAccountParams) (User, error)
	UpdateAccount(params UpdateAccountParams) (User, error)
	GetAccountById(userId int) (User, error)
	GetAccountByEmail(email string) (User, error)
	GetAccountByNickname(nickname string) (User, error)
	CreateRoom(params CreateRoomParams) (Room, error)
	GetRoom(roomId string) (Room, error)
	SoftDeleteRoom(roomId string) error
	CountMembers(roomId string) (int, error)
	MembershipExists(roomId string, userId int) (bool, error)
	// CreateMemberships inserts one membership row per user and
	// persists the given room type in the same transaction.
	CreateMemberships(roomId string, userIds []int, roomType types.RoomType) error
	DeleteMembership(roomId string, userId int, roomType types.RoomType) error
	ListMembers(roomId string) ([]Membership, error)
	ListRoomsForUser(userId int) ([]Room, error)
	CreateMessage(params CreateMessageParams) (Message, error)
	ListMessages(roomId string, before, limit int) ([]Message, error)
}
