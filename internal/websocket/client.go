package websocket

import (
	"sync"
	"time"

	"github.com/fasthttp/websocket"
	"github.com/google/uuid"
	"github.com/prappser/prappser_upload/internal/protocol"
	"github.com/rs/zerolog/log"
)

const (
	writeTimeout   = 10 * time.Second
	pongWait       = 60 * time.Second
	pingInterval   = 30 * time.Second
	maxMessageSize = 4 * 1024
	sendBufferSize = 256
)

type Client struct {
	id            string
	hub           *Hub
	conn          *websocket.Conn
	send          chan interface{}
	subscriptions map[string]bool
	mu            sync.RWMutex
}

func NewClient(hub *Hub, conn *websocket.Conn) *Client {
	return &Client{
		id:            uuid.NewString(),
		hub:           hub,
		conn:          conn,
		send:          make(chan interface{}, sendBufferSize),
		subscriptions: make(map[string]bool),
	}
}

func (c *Client) Subscribe(fingerprint string) {
	c.mu.Lock()
	c.subscriptions[fingerprint] = true
	c.mu.Unlock()

	c.hub.Subscribe(c, fingerprint)
}

func (c *Client) Unsubscribe(fingerprint string) {
	c.mu.Lock()
	delete(c.subscriptions, fingerprint)
	c.mu.Unlock()

	c.hub.Unsubscribe(c, fingerprint)
}

func (c *Client) Subscriptions() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	subs := make([]string, 0, len(c.subscriptions))
	for fingerprint := range c.subscriptions {
		subs = append(subs, fingerprint)
	}
	return subs
}

func (c *Client) ReadPump() {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		var msg IncomingMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				log.Debug().Str("clientId", c.id).Err(err).Msg("[WS] Read error")
			} else {
				log.Debug().Str("clientId", c.id).Msg("[WS] Client disconnected")
			}
			return
		}

		if reply := c.handleMessage(&msg); reply != nil {
			select {
			case c.send <- reply:
			default:
			}
		}
	}
}

// handleMessage applies msg and returns the direct reply, if any.
func (c *Client) handleMessage(msg *IncomingMessage) *OutgoingMessage {
	switch msg.Type {
	case MessageTypeSubscribe, MessageTypeUnsubscribe:
		if err := protocol.ValidateFingerprint(msg.Fingerprint); err != nil {
			return &OutgoingMessage{Type: MessageTypeError, Error: err.Error()}
		}
		if msg.Type == MessageTypeSubscribe {
			c.Subscribe(msg.Fingerprint)
		} else {
			c.Unsubscribe(msg.Fingerprint)
		}
		return nil

	case MessageTypePing:
		return &OutgoingMessage{Type: MessageTypePong}

	default:
		log.Debug().Str("type", string(msg.Type)).Msg("[WS] Unknown message type")
		return &OutgoingMessage{Type: MessageTypeError, Error: "unknown message type"}
	}
}

func (c *Client) WritePump() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteJSON(message); err != nil {
				log.Debug().Str("clientId", c.id).Err(err).Msg("[WS] Write error")
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Debug().Str("clientId", c.id).Err(err).Msg("[WS] Ping error")
				return
			}
		}
	}
}
