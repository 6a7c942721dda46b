package chat

import "github.com/Haru-Log/harulog-server-ops/internal/types"

// groupThreshold is the member count above which a room is a group
// chat rather than a direct message.
const groupThreshold = 2

// Classify derives a room's type from its member count. This is the
// only rule by which room types are assigned; rooms with zero or one
// member are degenerate DMs.
func Classify(memberCount int) types.RoomType {
	if memberCount > groupThreshold {
		return types.RoomTypeGroup
	}
	return types.RoomTypeDM
}
