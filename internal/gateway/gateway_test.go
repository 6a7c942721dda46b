package gateway

import (
	"testing"
	"time"

	"github.com/nats-io/nats-server/v2/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Haru-Log/harulog-server-ops/internal/fabric"
	"github.com/Haru-Log/harulog-server-ops/internal/stats"
	"github.com/Haru-Log/harulog-server-ops/internal/testutil"
	"github.com/Haru-Log/harulog-server-ops/internal/types"
)

func startNatsServer(t *testing.T) *server.Server {
	t.Helper()

	srv, err := server.NewServer(&server.Options{Port: -1})
	require.NoError(t, err, "expected server options to be valid")

	go srv.Start()
	if !srv.ReadyForConnections(5 * time.Second) {
		t.Fatal("nats server did not start")
	}
	t.Cleanup(srv.Shutdown)

	return srv
}

func newTestGateway(t *testing.T, sub Subscriber) *Gateway {
	t.Helper()

	mockStats := &stats.MockStatsUpdater{}
	mockStats.On("RegisterMetric", mock.Anything).Return()
	mockStats.On("Incr", mock.Anything).Return()
	mockStats.On("Decr", mock.Anything).Return()

	return NewGateway(testutil.TestLogger(t), sub, nil, mockStats)
}

func TestQueuePayload_dropsWhenFull(t *testing.T) {
	c := NewClient(types.User{Id: 1, Nickname: "alice"}, nil, nil, testutil.TestLogger(t))

	for i := 0; i < cap(c.send); i++ {
		c.queuePayload([]byte("frame"))
	}

	// the buffer is full; the next frame must be dropped, not block
	done := make(chan struct{})
	go func() {
		c.queuePayload([]byte("overflow"))
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("queuePayload blocked on a full buffer")
	}

	assert.Equal(t, cap(c.send), len(c.send), "expected the buffer to stay at capacity")
}

func TestRegisterDeliversUserQueueFrames(t *testing.T) {
	srv := startNatsServer(t)

	f, err := fabric.NewNatsFabric(srv.ClientURL(), testutil.TestLogger(t))
	require.NoError(t, err, "expected fabric to connect")
	defer f.Close()

	gw := newTestGateway(t, f)
	c := NewClient(types.User{Id: 7, Nickname: "gina"}, nil, gw, testutil.TestLogger(t))

	require.NoError(t, gw.Register(c), "expected registration to succeed")

	require.NoError(t, f.Publish(fabric.UserChannel(7), []byte("hello")), "expected publish to succeed")

	select {
	case payload := <-c.send:
		assert.Equal(t, []byte("hello"), payload, "expected the frame on the client queue")
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for delivery")
	}

	gw.Deregister(c)

	require.NoError(t, f.Publish(fabric.UserChannel(7), []byte("after")), "expected publish to succeed")

	select {
	case payload := <-c.send:
		t.Fatalf("unexpected frame after deregister: %q", payload)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestDeregisterUnknownClient(t *testing.T) {
	srv := startNatsServer(t)

	f, err := fabric.NewNatsFabric(srv.ClientURL(), testutil.TestLogger(t))
	require.NoError(t, err, "expected fabric to connect")
	defer f.Close()

	gw := newTestGateway(t, f)
	c := NewClient(types.User{Id: 7}, nil, gw, testutil.TestLogger(t))

	// never registered; must be a no-op
	gw.Deregister(c)
}

func TestShutdownClosesClients(t *testing.T) {
	srv := startNatsServer(t)

	f, err := fabric.NewNatsFabric(srv.ClientURL(), testutil.TestLogger(t))
	require.NoError(t, err, "expected fabric to connect")
	defer f.Close()

	gw := newTestGateway(t, f)
	c1 := NewClient(types.User{Id: 1, Nickname: "alice"}, nil, gw, testutil.TestLogger(t))
	c2 := NewClient(types.User{Id: 2, Nickname: "bob"}, nil, gw, testutil.TestLogger(t))

	require.NoError(t, gw.Register(c1), "expected registration to succeed")
	require.NoError(t, gw.Register(c2), "expected registration to succeed")

	gw.Shutdown()

	for _, c := range []*Client{c1, c2} {
		select {
		case <-c.stop:
		default:
			t.Fatalf("expected stop channel closed for user %d", c.user.Id)
		}
	}

	gw.clientsLock.Lock()
	remaining := len(gw.clients)
	gw.clientsLock.Unlock()
	assert.Zero(t, remaining, "expected no clients after shutdown")
}
