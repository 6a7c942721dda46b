package chat

import (
	"testing"

	"github.com/Haru-Log/harulog-server-ops/internal/types"
	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tcases := []struct {
		name        string
		memberCount int
		expected    types.RoomType
	}{
		{
			name:        "empty room is a DM",
			memberCount: 0,
			expected:    types.RoomTypeDM,
		},
		{
			name:        "single member room is a DM",
			memberCount: 1,
			expected:    types.RoomTypeDM,
		},
		{
			name:        "two member room is a DM",
			memberCount: 2,
			expected:    types.RoomTypeDM,
		},
		{
			name:        "three member room is a group",
			memberCount: 3,
			expected:    types.RoomTypeGroup,
		},
		{
			name:        "large room is a group",
			memberCount: 100,
			expected:    types.RoomTypeGroup,
		},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, Classify(tc.memberCount), "expected classification to match for count %d", tc.memberCount)
		})
	}
}

func TestClassify_thresholdBoundary(t *testing.T) {
	for count := 0; count <= 10; count++ {
		got := Classify(count)
		if count > groupThreshold {
			assert.Equal(t, types.RoomTypeGroup, got, "expected GROUP for %d members", count)
		} else {
			assert.Equal(t, types.RoomTypeDM, got, "expected DM for %d members", count)
		}
	}
}
