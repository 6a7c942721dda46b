// Package fabric wraps the pub/sub broker that delivers room
// broadcasts to each member's private delivery subject.
package fabric

import "fmt"

const (
	roomSubjectPrefix = "chatroom"
	userSubjectPrefix = "user"
)

// Fabric is the messaging side of room membership. Bind and Unbind
// are idempotent: repeating either call for the same pair is a no-op.
type Fabric interface {
	// Bind routes the room's broadcast channel into the user's
	// delivery queue.
	Bind(roomId string, userId int) error
	// Unbind removes the route created by Bind.
	Unbind(roomId string, userId int) error
	// Publish sends a payload to a channel key, typically one
	// produced by RoomChannel.
	Publish(channelKey string, payload []byte) error
}

// RoomChannel derives the broadcast channel key for a room.
func RoomChannel(roomId string) string {
	return fmt.Sprintf("%s.%s", roomSubjectPrefix, roomId)
}

// UserChannel derives the delivery queue key for a user.
func UserChannel(userId int) string {
	return fmt.Sprintf("%s.%d", userSubjectPrefix, userId)
}
