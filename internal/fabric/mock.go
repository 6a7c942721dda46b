package fabric

import "github.com/stretchr/testify/mock"

type MockFabric struct {
	mock.Mock
}

func (m *MockFabric) Bind(roomId string, userId int) error {
	args := m.Called(roomId, userId)
	return args.Error(0)
}
func (m *MockFabric) Unbind(roomId string, userId int) error {
	args := m.Called(roomId, userId)
	return args.Error(0)
}
func (m *MockFabric) Publish(channelKey string, payload []byte) error {
	args := m.Called(channelKey, payload)
	return args.Error(0)
}
