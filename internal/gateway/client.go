package gateway

import (
	"encoding/json"
	"log"
	"time"

	"github.com/Haru-Log/harulog-server-ops/internal/types"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingInterval   = (pongWait * 9) / 10
	maxMessageSize = 4096
)

// ClientMessage is an inbound frame from a connected user: a chat
// message addressed to one of their rooms.
type ClientMessage struct {
	RoomId  string `json:"room_id"`
	Content string `json:"content"`
}

// ErrorFrame is sent back when an inbound frame is rejected.
type ErrorFrame struct {
	Error string `json:"error"`
}

type Client struct {
	conn    *websocket.Conn
	gateway *Gateway
	log     *log.Logger
	user    types.User
	send    chan []byte
	stop    chan struct{}
}

func NewClient(user types.User, conn *websocket.Conn, gw *Gateway, l *log.Logger) *Client {
	return &Client{
		conn:    conn,
		gateway: gw,
		log:     l,
		user:    user,
		send:    make(chan []byte, 256),
		stop:    make(chan struct{}),
	}
}

// queuePayload enqueues a frame for the write pump, dropping it if
// the client cannot keep up.
func (c *Client) queuePayload(payload []byte) {
	select {
	case c.send <- payload:
	default:
		c.log.Printf("send buffer full for %q, dropping frame", c.user.Nickname)
	}
}

func (c *Client) Write() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
		c.log.Println("write exiting")
	}()

	for {
		select {
		case payload, ok := <-c.send:
			if !ok {
				return
			}

			if !c.sendMessage(websocket.TextMessage, payload) {
				return
			}
		case <-c.stop:
			return
		case <-ticker.C:
			if !c.sendMessage(websocket.PingMessage, nil) {
				return
			}
		}
	}
}

func (c *Client) sendMessage(messageType int, payload []byte) bool {
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.conn.WriteMessage(messageType, payload); err != nil {
		c.log.Printf("ws: write: %v", err)
		return false
	}
	return true
}

func (c *Client) Read() {
	defer func() {
		c.conn.Close()
		c.gateway.Deregister(c)
		c.log.Println("read exiting")
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(appData string) error { c.conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })
	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure,
				websocket.CloseNormalClosure) {
				c.log.Printf("ws: read: %v", err)
			}
			break
		}

		var msg ClientMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			c.log.Println("error parsing message:", err)
			c.queueError("invalid message format")
			continue
		}

		if msg.RoomId == "" || msg.Content == "" {
			c.queueError("room_id and content are required")
			continue
		}

		if err := c.gateway.coordinator.SendTextMessage(msg.RoomId, c.user.Id, msg.Content); err != nil {
			c.log.Printf("send message from %q to room %q: %v", c.user.Nickname, msg.RoomId, err)
			c.queueError("message rejected")
		}
	}
}

func (c *Client) queueError(msg string) {
	payload, err := json.Marshal(ErrorFrame{Error: msg})
	if err != nil {
		return
	}
	c.queuePayload(payload)
}
