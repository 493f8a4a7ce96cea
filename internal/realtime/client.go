package realtime

import (
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/mentoro/arena/pkg/logger"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
)

var (
	errClientClosed = errors.New("client closed")
	errSendBuffer   = errors.New("send buffer full")
)

// Client is a websocket connection with a buffered outbound queue
type Client struct {
	UserID string

	conn      *websocket.Conn
	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

func NewClient(userID string, conn *websocket.Conn, bufferSize int) *Client {
	return &Client{
		UserID: userID,
		conn:   conn,
		send:   make(chan []byte, bufferSize),
		done:   make(chan struct{}),
	}
}

// Send queues a message without blocking
func (c *Client) Send(message []byte) error {
	select {
	case <-c.done:
		return errClientClosed
	default:
	}

	select {
	case c.send <- message:
		return nil
	case <-c.done:
		return errClientClosed
	default:
		return errSendBuffer
	}
}

// Close stops both pumps. Safe to call more than once.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		close(c.done)
	})
	return nil
}

// WritePump drains the send queue to the socket and keeps it alive with pings
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				logger.Debug("Websocket write failed", "user_id", c.UserID, "error", err)
				c.Close()
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.Close()
				return
			}
		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

// ReadPump hands every inbound frame to handle until the socket closes
func (c *Client) ReadPump(handle func(message []byte)) {
	defer func() {
		c.Close()
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Warn("Websocket closed unexpectedly", "user_id", c.UserID, "error", err)
			}
			return
		}
		handle(message)
	}
}
