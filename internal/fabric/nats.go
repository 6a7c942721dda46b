package fabric

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
)

// NatsFabric implements Fabric on a NATS connection. A binding is a
// subscription on the room's subject whose handler republishes each
// message to the user's delivery subject, which is what a queue
// binding does on a traditional broker.
type NatsFabric struct {
	nc       *nats.Conn
	log      *log.Logger
	mu       sync.Mutex
	bindings map[string]*nats.Subscription
}

func NewNatsFabric(url string, logger *log.Logger) (*NatsFabric, error) {
	nc, err := nats.Connect(url,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(10),
		nats.ReconnectWait(time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}

	return &NatsFabric{
		nc:       nc,
		log:      logger,
		bindings: make(map[string]*nats.Subscription),
	}, nil
}

func bindingKey(roomId string, userId int) string {
	return fmt.Sprintf("%s/%d", roomId, userId)
}

func (f *NatsFabric) Bind(roomId string, userId int) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	key := bindingKey(roomId, userId)
	if _, ok := f.bindings[key]; ok {
		return nil
	}

	userSubject := UserChannel(userId)
	sub, err := f.nc.Subscribe(RoomChannel(roomId), func(m *nats.Msg) {
		if err := f.nc.Publish(userSubject, m.Data); err != nil {
			f.log.Printf("relay to %q: %v", userSubject, err)
		}
	})
	if err != nil {
		return fmt.Errorf("bind %s: %w", key, err)
	}

	f.bindings[key] = sub
	return nil
}

func (f *NatsFabric) Unbind(roomId string, userId int) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	key := bindingKey(roomId, userId)
	sub, ok := f.bindings[key]
	if !ok {
		return nil
	}

	delete(f.bindings, key)
	if err := sub.Unsubscribe(); err != nil {
		return fmt.Errorf("unbind %s: %w", key, err)
	}

	return nil
}

func (f *NatsFabric) Publish(channelKey string, payload []byte) error {
	return f.nc.Publish(channelKey, payload)
}

// Subscribe attaches a handler to an arbitrary channel key. The
// delivery gateway uses it to drain a user's queue into a websocket.
func (f *NatsFabric) Subscribe(channelKey string, handler func(payload []byte)) (*nats.Subscription, error) {
	return f.nc.Subscribe(channelKey, func(m *nats.Msg) {
		handler(m.Data)
	})
}

func (f *NatsFabric) Close() {
	f.mu.Lock()
	for key, sub := range f.bindings {
		sub.Unsubscribe()
		delete(f.bindings, key)
	}
	f.mu.Unlock()

	f.nc.Close()
}
