package database

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Haru-Log/harulog-server-ops/internal/types"
	"github.com/lib/pq"
)

const uniqueViolation = "23505"

const createMembershipQuery = "INSERT INTO memberships (room_id, user_id, created_at) VALUES ($1, $2, $3)"

func translateErr(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return ErrDuplicateMembership
	}

	return err
}

func (db *PgChatRepository) CreateAccount(params CreateAccountParams) (User, error) {
	res := db.conn.QueryRow(
		"INSERT INTO accounts (nickname, email, image_url, password_hash, created_at, updated_at) "+
			"VALUES ($1, $2, $3, $4, $5, $5) RETURNING id, nickname, email, image_url",
		params.Nickname,
		params.EmailAddress,
		params.ImageUrl,
		params.PasswordHash,
		time.Now().UTC(),
	)

	var u User
	err := res.Scan(
		&u.Id,
		&u.Nickname,
		&u.EmailAddress,
		&u.ImageUrl,
	)

	return u, err
}

func (db *PgChatRepository) UpdateAccount(params UpdateAccountParams) (User, error) {
	res := db.conn.QueryRow(
		"UPDATE accounts SET nickname = $2, password_hash = $3, image_url = $4, updated_at = $5 "+
			"WHERE id = $1 RETURNING id, nickname, email, image_url",
		params.UserId,
		params.Nickname,
		params.PasswordHash,
		params.ImageUrl,
		time.Now().UTC(),
	)

	var u User
	err := res.Scan(
		&u.Id,
		&u.Nickname,
		&u.EmailAddress,
		&u.ImageUrl,
	)

	return u, translateErr(err)
}

func (db *PgChatRepository) GetAccountById(userId int) (User, error) {
	row := db.conn.QueryRow(
		"SELECT id, nickname, email, image_url, created_at, updated_at FROM accounts "+
			"WHERE id = $1 LIMIT 1",
		userId,
	)

	var user User
	err := row.Scan(
		&user.Id,
		&user.Nickname,
		&user.EmailAddress,
		&user.ImageUrl,
		&user.CreatedAt,
		&user.UpdatedAt,
	)

	return user, translateErr(err)
}

func (db *PgChatRepository) GetAccountByEmail(email string) (User, error) {
	row := db.conn.QueryRow(
		"SELECT id, nickname, email, image_url, password_hash FROM accounts "+
			"WHERE email = $1 LIMIT 1",
		email,
	)

	var user User
	err := row.Scan(
		&user.Id,
		&user.Nickname,
		&user.EmailAddress,
		&user.ImageUrl,
		&user.PasswordHash,
	)

	return user, translateErr(err)
}

func (db *PgChatRepository) GetAccountByNickname(nickname string) (User, error) {
	row := db.conn.QueryRow(
		"SELECT id, nickname, email, image_url FROM accounts "+
			"WHERE nickname = $1 LIMIT 1",
		nickname,
	)

	var user User
	err := row.Scan(
		&user.Id,
		&user.Nickname,
		&user.EmailAddress,
		&user.ImageUrl,
	)

	return user, translateErr(err)
}

func (db *PgChatRepository) CreateRoom(params CreateRoomParams) (Room, error) {
	res := db.conn.QueryRow(
		"INSERT INTO rooms (id, name, room_type, image_url, last_activity, created_at, updated_at) "+
			"VALUES ($1, $2, $3, $4, $5, $5, $5) RETURNING id, name, room_type, image_url, last_activity, created_at, updated_at",
		params.Id,
		params.Name,
		string(params.Type),
		params.ImageUrl,
		time.Now().UTC(),
	)

	var room Room
	err := res.Scan(
		&room.Id,
		&room.Name,
		&room.Type,
		&room.ImageUrl,
		&room.LastActivity,
		&room.CreatedAt,
		&room.UpdatedAt,
	)

	return room, err
}

// GetRoom looks up a room by id. Soft-deleted rooms are treated as
// absent.
func (db *PgChatRepository) GetRoom(roomId string) (Room, error) {
	row := db.conn.QueryRow(
		"SELECT id, name, room_type, image_url, last_activity, created_at, updated_at FROM rooms "+
			"WHERE id = $1 AND deleted_at IS NULL LIMIT 1",
		roomId,
	)

	var room Room
	err := row.Scan(
		&room.Id,
		&room.Name,
		&room.Type,
		&room.ImageUrl,
		&room.LastActivity,
		&room.CreatedAt,
		&room.UpdatedAt,
	)

	return room, translateErr(err)
}

func (db *PgChatRepository) SoftDeleteRoom(roomId string) error {
	res, err := db.conn.Exec(
		"UPDATE rooms SET deleted_at = $2, updated_at = $2 WHERE id = $1 AND deleted_at IS NULL",
		roomId,
		time.Now().UTC(),
	)
	if err != nil {
		return err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}

	return nil
}

func (db *PgChatRepository) CountMembers(roomId string) (int, error) {
	row := db.conn.QueryRow(
		"SELECT COUNT(*) FROM memberships WHERE room_id = $1",
		roomId,
	)

	var count int
	err := row.Scan(&count)

	return count, err
}

func (db *PgChatRepository) MembershipExists(roomId string, userId int) (bool, error) {
	row := db.conn.QueryRow(
		"SELECT id FROM memberships WHERE room_id = $1 AND user_id = $2 LIMIT 1",
		roomId,
		userId,
	)

	var id int
	err := row.Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}

	return err == nil, err
}

// CreateMemberships inserts a membership row per user and persists the
// room's type in the same transaction, so the pair is all-or-nothing.
func (db *PgChatRepository) CreateMemberships(roomId string, userIds []int, roomType types.RoomType) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	now := time.Now().UTC()
	for _, userId := range userIds {
		if _, err = tx.Exec(createMembershipQuery, roomId, userId, now); err != nil {
			return translateErr(err)
		}
	}

	_, err = tx.Exec(
		"UPDATE rooms SET room_type = $2, last_activity = $3, updated_at = $3 WHERE id = $1",
		roomId,
		string(roomType),
		now,
	)
	if err != nil {
		return err
	}

	return tx.Commit()
}

func (db *PgChatRepository) DeleteMembership(roomId string, userId int, roomType types.RoomType) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	var res sql.Result
	res, err = tx.Exec(
		"DELETE FROM memberships WHERE room_id = $1 AND user_id = $2",
		roomId,
		userId,
	)
	if err != nil {
		return err
	}

	var n int64
	if n, err = res.RowsAffected(); err != nil {
		return err
	}
	if n == 0 {
		err = ErrNotFound
		return err
	}

	_, err = tx.Exec(
		"UPDATE rooms SET room_type = $2, updated_at = $3 WHERE id = $1",
		roomId,
		string(roomType),
		time.Now().UTC(),
	)
	if err != nil {
		return err
	}

	return tx.Commit()
}

func (db *PgChatRepository) ListMembers(roomId string) ([]Membership, error) {
	rows, err := db.conn.Query(
		"SELECT m.id, m.room_id, m.user_id, a.nickname, a.image_url, m.created_at FROM memberships AS m "+
			"JOIN accounts AS a ON m.user_id = a.id WHERE m.room_id = $1 ORDER BY m.id",
		roomId,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var members = make([]Membership, 0)
	for rows.Next() {
		var m Membership
		if err = rows.Scan(&m.Id, &m.RoomId, &m.UserId, &m.Nickname, &m.ImageUrl, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}

		members = append(members, m)
	}

	return members, rows.Err()
}

func (db *PgChatRepository) ListRoomsForUser(userId int) ([]Room, error) {
	rows, err := db.conn.Query(
		"SELECT r.id, r.name, r.room_type, r.image_url, r.last_activity, r.created_at, r.updated_at "+
			"FROM memberships AS m JOIN rooms AS r ON r.id = m.room_id "+
			"WHERE m.user_id = $1 AND r.deleted_at IS NULL",
		userId,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rooms []Room
	for rows.Next() {
		var room Room
		err = rows.Scan(
			&room.Id,
			&room.Name,
			&room.Type,
			&room.ImageUrl,
			&room.LastActivity,
			&room.CreatedAt,
			&room.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}

		rooms = append(rooms, room)
	}

	return rooms, rows.Err()
}

func (db *PgChatRepository) CreateMessage(params CreateMessageParams) (Message, error) {
	res := db.conn.QueryRow(
		"INSERT INTO messages (room_id, user_id, message_type, content, created_at) "+
			"VALUES ($1, $2, $3, $4, $5) RETURNING id, room_id, user_id, message_type, content, created_at",
		params.RoomId,
		params.UserId,
		string(params.Type),
		params.Content,
		time.Now().UTC(),
	)

	var msg Message
	err := res.Scan(
		&msg.Id,
		&msg.RoomId,
		&msg.UserId,
		&msg.Type,
		&msg.Content,
		&msg.CreatedAt,
	)

	return msg, err
}

func (db *PgChatRepository) ListMessages(roomId string, before, limit int) ([]Message, error) {
	var upper int = 1<<31 - 1
	if before > 0 {
		upper = before - 1
	}

	if limit <= 0 {
		limit = 20
	}

	rows, err := db.conn.Query(
		"SELECT m.id, m.room_id, m.user_id, a.nickname, m.message_type, m.content, m.created_at "+
			"FROM messages AS m JOIN accounts AS a ON m.user_id = a.id "+
			"WHERE m.room_id = $1 AND m.id <= $2 ORDER BY m.id DESC LIMIT $3",
		roomId,
		upper,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages = make([]Message, 0, limit)
	for rows.Next() {
		var msg Message
		if err = rows.Scan(&msg.Id, &msg.RoomId, &msg.UserId, &msg.Nickname, &msg.Type, &msg.Content, &msg.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}

		messages = append(messages, msg)
	}

	return messages, rows.Err()
}
