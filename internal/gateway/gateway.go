// Package gateway bridges each connected websocket client to its
// user's delivery queue on the messaging fabric.
package gateway

import (
	"log"
	"sync"

	"github.com/Haru-Log/harulog-server-ops/internal/chat"
	"github.com/Haru-Log/harulog-server-ops/internal/fabric"
	"github.com/Haru-Log/harulog-server-ops/internal/stats"
	"github.com/nats-io/nats.go"
)

const metricActiveClients = "ActiveClients"

// Subscriber attaches a handler to a fabric channel key. Satisfied by
// fabric.NatsFabric.
type Subscriber interface {
	Subscribe(channelKey string, handler func(payload []byte)) (*nats.Subscription, error)
}

type Gateway struct {
	log         *log.Logger
	subscriber  Subscriber
	coordinator *chat.Coordinator
	stats       stats.StatsProvider

	clientsLock sync.Mutex
	clients     map[*Client]*nats.Subscription
}

func NewGateway(logger *log.Logger, sub Subscriber, coordinator *chat.Coordinator, sp stats.StatsProvider) *Gateway {
	sp.RegisterMetric(metricActiveClients)

	return &Gateway{
		log:         logger,
		subscriber:  sub,
		coordinator: coordinator,
		stats:       sp,
		clients:     make(map[*Client]*nats.Subscription),
	}
}

// Register hooks the client up to its user's delivery queue. Frames
// arriving on the queue are forwarded to the websocket as-is.
func (g *Gateway) Register(c *Client) error {
	sub, err := g.subscriber.Subscribe(fabric.UserChannel(c.user.Id), c.queuePayload)
	if err != nil {
		return err
	}

	g.clientsLock.Lock()
	g.clients[c] = sub
	g.clientsLock.Unlock()

	g.stats.Incr(metricActiveClients)
	g.log.Printf("registered connection for %q", c.user.Nickname)

	return nil
}

func (g *Gateway) Deregister(c *Client) {
	g.clientsLock.Lock()
	sub, ok := g.clients[c]
	delete(g.clients, c)
	g.clientsLock.Unlock()

	if !ok {
		return
	}

	if err := sub.Unsubscribe(); err != nil {
		g.log.Printf("unsubscribe %q: %v", c.user.Nickname, err)
	}

	g.stats.Decr(metricActiveClients)
	g.log.Printf("removed connection for %q", c.user.Nickname)
}

// Shutdown closes every connected client.
func (g *Gateway) Shutdown() {
	g.clientsLock.Lock()
	clients := make([]*Client, 0, len(g.clients))
	for c := range g.clients {
		clients = append(clients, c)
	}
	g.clientsLock.Unlock()

	for _, c := range clients {
		close(c.stop)
		g.Deregister(c)
	}
}
