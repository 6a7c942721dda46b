package chat

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"slices"
	"sync"

	"github.com/Haru-Log/harulog-server-ops/internal/database"
	"github.com/Haru-Log/harulog-server-ops/internal/fabric"
	"github.com/Haru-Log/harulog-server-ops/internal/stats"
	"github.com/Haru-Log/harulog-server-ops/internal/types"
)

const (
	metricMembersAdded   = "MembersAdded"
	metricMembersRemoved = "MembersRemoved"
	metricSystemMessages = "SystemMessagesPublished"
)

// RoomComparator defines the order of a user's room listing. It must
// be a strict total order for a fixed snapshot.
type RoomComparator func(a, b types.Room) int

// byLastActivity sorts most recently active rooms first, falling back
// to the room id so the order is deterministic.
func byLastActivity(a, b types.Room) int {
	if !a.LastActivity.Equal(b.LastActivity) {
		if a.LastActivity.After(b.LastActivity) {
			return -1
		}
		return 1
	}

	switch {
	case a.Id < b.Id:
		return -1
	case a.Id > b.Id:
		return 1
	default:
		return 0
	}
}

// Coordinator is the single authority over room membership. It keeps
// the room's persisted type and the fabric's binding topology in step
// with the member set, and emits one system message per membership
// change. All mutation runs under a per-room lock.
type Coordinator struct {
	log      *log.Logger
	db       database.ChatRepository
	fabric   fabric.Fabric
	stats    stats.StatsProvider
	cmpRooms RoomComparator

	roomLocks sync.Map
}

func NewCoordinator(logger *log.Logger, db database.ChatRepository, fab fabric.Fabric, sp stats.StatsProvider) *Coordinator {
	sp.RegisterMetric(metricMembersAdded)
	sp.RegisterMetric(metricMembersRemoved)
	sp.RegisterMetric(metricSystemMessages)

	return &Coordinator{
		log:      logger,
		db:       db,
		fabric:   fab,
		stats:    sp,
		cmpRooms: byLastActivity,
	}
}

// SetRoomComparator overrides the room listing order. Intended to be
// called once during setup, before the coordinator serves requests.
func (c *Coordinator) SetRoomComparator(cmp RoomComparator) {
	c.cmpRooms = cmp
}

// lockRoom serializes membership operations on a single room.
// Operations on different rooms run concurrently.
func (c *Coordinator) lockRoom(roomId string) func() {
	v, _ := c.roomLocks.LoadOrStore(roomId, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// AddMember joins a user to a room. The membership row and the
// reclassified room type are committed together, after which the
// fabric binding and the ENTER message follow. Fabric failures after
// the commit are logged, not rolled back.
func (c *Coordinator) AddMember(roomId string, userId int) error {
	unlock := c.lockRoom(roomId)
	defer unlock()

	room, err := c.getRoom(roomId)
	if err != nil {
		return err
	}

	user, err := c.getUser(userId)
	if err != nil {
		return err
	}

	count, err := c.db.CountMembers(room.Id)
	if err != nil {
		return NewInternalError(fmt.Errorf("count members: %w", err))
	}

	newType := Classify(count + 1)
	if err := c.db.CreateMemberships(room.Id, []int{user.Id}, newType); err != nil {
		if errors.Is(err, database.ErrDuplicateMembership) {
			return NewDuplicateMemberError(room.Id, user.Id)
		}
		return NewInternalError(fmt.Errorf("create membership: %w", err))
	}

	if err := c.fabric.Bind(room.Id, user.Id); err != nil {
		c.log.Printf("bind user %d to room %q: %v", user.Id, room.Id, err)
	}

	c.stats.Incr(metricMembersAdded)

	return c.sendEnterMessage(room.Id, user)
}

// AddMembers is the batch join. Every user is validated before any
// membership is persisted, so one unknown user aborts the whole
// batch. Bindings and ENTER messages follow in input order.
func (c *Coordinator) AddMembers(roomId string, userIds []int) error {
	if len(userIds) == 0 {
		return NewInternalError(errors.New("empty user list"))
	}

	unlock := c.lockRoom(roomId)
	defer unlock()

	room, err := c.getRoom(roomId)
	if err != nil {
		return err
	}

	users := make([]database.User, 0, len(userIds))
	for _, userId := range userIds {
		user, err := c.getUser(userId)
		if err != nil {
			return err
		}
		users = append(users, user)
	}

	count, err := c.db.CountMembers(room.Id)
	if err != nil {
		return NewInternalError(fmt.Errorf("count members: %w", err))
	}

	newType := Classify(count + len(users))
	if err := c.db.CreateMemberships(room.Id, userIds, newType); err != nil {
		if errors.Is(err, database.ErrDuplicateMembership) {
			return &Error{
				Code:    CodeDuplicateMember,
				Message: fmt.Sprintf("duplicate member in batch for room %q", room.Id),
			}
		}
		return NewInternalError(fmt.Errorf("create memberships: %w", err))
	}

	for _, user := range users {
		if err := c.fabric.Bind(room.Id, user.Id); err != nil {
			c.log.Printf("bind user %d to room %q: %v", user.Id, room.Id, err)
		}
	}

	for _, user := range users {
		if err := c.sendEnterMessage(room.Id, user); err != nil {
			return err
		}
		c.stats.Incr(metricMembersAdded)
	}

	return nil
}

// RemoveMember takes a user out of a room. A missing membership is a
// permission failure, distinct from an unknown room or user. Only
// group rooms are re-checked for a downgrade; a DM can only shrink,
// and a shrinking DM stays a DM under the classifier.
func (c *Coordinator) RemoveMember(roomId string, userId int) error {
	unlock := c.lockRoom(roomId)
	defer unlock()

	room, err := c.getRoom(roomId)
	if err != nil {
		return err
	}

	user, err := c.getUser(userId)
	if err != nil {
		return err
	}

	isMember, err := c.db.MembershipExists(room.Id, user.Id)
	if err != nil {
		return NewInternalError(fmt.Errorf("membership lookup: %w", err))
	}
	if !isMember {
		return NewNoPermissionError(room.Id, user.Id)
	}

	count, err := c.db.CountMembers(room.Id)
	if err != nil {
		return NewInternalError(fmt.Errorf("count members: %w", err))
	}

	newType := room.Type
	if room.Type == types.RoomTypeGroup && count-1 <= groupThreshold {
		newType = types.RoomTypeDM
	}

	if err := c.db.DeleteMembership(room.Id, user.Id, newType); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return NewNoPermissionError(room.Id, user.Id)
		}
		return NewInternalError(fmt.Errorf("delete membership: %w", err))
	}

	c.stats.Incr(metricMembersRemoved)

	if err := c.sendExitMessage(room.Id, user); err != nil {
		return err
	}

	if err := c.fabric.Unbind(room.Id, user.Id); err != nil {
		c.log.Printf("unbind user %d from room %q: %v", user.Id, room.Id, err)
	}

	return nil
}

// ListMembers returns the room's current member set.
func (c *Coordinator) ListMembers(roomId string) ([]types.RoomMember, error) {
	if _, err := c.getRoom(roomId); err != nil {
		return nil, err
	}

	memberships, err := c.db.ListMembers(roomId)
	if err != nil {
		return nil, NewInternalError(fmt.Errorf("list members: %w", err))
	}

	members := make([]types.RoomMember, len(memberships))
	for i, m := range memberships {
		members[i] = types.RoomMember{
			UserId:   m.UserId,
			Nickname: m.Nickname,
			ImageUrl: m.ImageUrl,
		}
	}

	return members, nil
}

// ListRoomsForUser returns the rooms the user belongs to, ordered by
// the configured comparator.
func (c *Coordinator) ListRoomsForUser(userId int) ([]types.Room, error) {
	if _, err := c.getUser(userId); err != nil {
		return nil, err
	}

	dbRooms, err := c.db.ListRoomsForUser(userId)
	if err != nil {
		return nil, NewInternalError(fmt.Errorf("list rooms: %w", err))
	}

	rooms := make([]types.Room, len(dbRooms))
	for i, r := range dbRooms {
		rooms[i] = types.Room{
			Id:           r.Id,
			Name:         r.Name,
			Type:         r.Type,
			ImageUrl:     r.ImageUrl,
			LastActivity: r.LastActivity,
			CreatedAt:    r.CreatedAt,
			UpdatedAt:    r.UpdatedAt,
		}
	}

	slices.SortStableFunc(rooms, c.cmpRooms)

	return rooms, nil
}

// SendTextMessage persists and broadcasts a user-authored message.
// Only current members may post to a room.
func (c *Coordinator) SendTextMessage(roomId string, userId int, content string) error {
	room, err := c.getRoom(roomId)
	if err != nil {
		return err
	}

	user, err := c.getUser(userId)
	if err != nil {
		return err
	}

	isMember, err := c.db.MembershipExists(room.Id, user.Id)
	if err != nil {
		return NewInternalError(fmt.Errorf("membership lookup: %w", err))
	}
	if !isMember {
		return NewNoPermissionError(room.Id, user.Id)
	}

	return c.emit(room.Id, user, types.MessageTypeText, content)
}

func (c *Coordinator) sendEnterMessage(roomId string, user database.User) error {
	content := fmt.Sprintf("%s joined", user.Nickname)
	return c.emit(roomId, user, types.MessageTypeEnter, content)
}

func (c *Coordinator) sendExitMessage(roomId string, user database.User) error {
	content := fmt.Sprintf("%s left", user.Nickname)
	return c.emit(roomId, user, types.MessageTypeExit, content)
}

// emit persists a system message, then broadcasts its projection on
// the room channel. The store is the source of truth: a failed
// publish is logged and the message can be backfilled from history.
func (c *Coordinator) emit(roomId string, user database.User, msgType types.MessageType, content string) error {
	msg, err := c.db.CreateMessage(database.CreateMessageParams{
		RoomId:  roomId,
		UserId:  user.Id,
		Type:    msgType,
		Content: content,
	})
	if err != nil {
		return NewInternalError(fmt.Errorf("save %s message: %w", msgType, err))
	}

	payload, err := json.Marshal(types.Message{
		Id:             msg.Id,
		RoomId:         msg.RoomId,
		SenderId:       msg.UserId,
		SenderNickname: user.Nickname,
		Type:           msg.Type,
		Content:        msg.Content,
		Timestamp:      msg.CreatedAt,
	})
	if err != nil {
		return NewInternalError(fmt.Errorf("marshal message: %w", err))
	}

	if err := c.fabric.Publish(fabric.RoomChannel(roomId), payload); err != nil {
		c.log.Printf("publish %s message to room %q: %v", msgType, roomId, err)
		return nil
	}

	c.stats.Incr(metricSystemMessages)

	return nil
}

func (c *Coordinator) getRoom(roomId string) (database.Room, error) {
	room, err := c.db.GetRoom(roomId)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return database.Room{}, NewRoomNotFoundError(roomId)
		}
		return database.Room{}, NewInternalError(fmt.Errorf("room lookup: %w", err))
	}

	return room, nil
}

func (c *Coordinator) getUser(userId int) (database.User, error) {
	user, err := c.db.GetAccountById(userId)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return database.User{}, NewUserNotFoundError(userId)
		}
		return database.User{}, NewInternalError(fmt.Errorf("user lookup: %w", err))
	}

	return user, nil
}
