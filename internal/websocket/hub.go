package websocket

import (
	"context"
	"sync"

	"github.com/prappser/prappser_upload/internal/upload"
	"github.com/rs/zerolog/log"
)

const broadcastBufferSize = 256

// Hub fans upload events out to the clients subscribed to their
// fingerprint. It implements upload.EventPublisher.
type Hub struct {
	clients       map[*Client]bool
	byFingerprint map[string][]*Client
	register      chan *Client
	unregister    chan *Client
	broadcast     chan *upload.Event
	done          chan struct{}
	mu            sync.RWMutex
}

func NewHub() *Hub {
	return &Hub{
		clients:       make(map[*Client]bool),
		byFingerprint: make(map[string][]*Client),
		register:      make(chan *Client),
		unregister:    make(chan *Client),
		broadcast:     make(chan *upload.Event, broadcastBufferSize),
		done:          make(chan struct{}),
	}
}

// Run dispatches registrations and events until ctx is done.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case ev := <-h.broadcast:
			h.broadcastToSubscribers(ev)

		case <-ctx.Done():
			close(h.done)
			h.disconnectAll()
			return
		}
	}
}

func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.clients[client] = true

	log.Info().
		Str("clientId", client.id).
		Int("totalClients", len(h.clients)).
		Msg("[WS] Client registered")
}

func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client]; !ok {
		return
	}

	delete(h.clients, client)
	close(client.send)

	for _, fingerprint := range client.Subscriptions() {
		h.removeSubscriber(client, fingerprint)
	}

	log.Info().
		Str("clientId", client.id).
		Int("totalClients", len(h.clients)).
		Msg("[WS] Client unregistered")
}

// disconnectAll closes every connection; the read pumps then exit on
// their own.
func (h *Hub) disconnectAll() {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.clients {
		if client.conn != nil {
			client.conn.Close()
		}
	}
}

func (h *Hub) removeSubscriber(client *Client, fingerprint string) {
	subscribers := h.byFingerprint[fingerprint]
	for i, c := range subscribers {
		if c == client {
			h.byFingerprint[fingerprint] = append(subscribers[:i], subscribers[i+1:]...)
			break
		}
	}
	if len(h.byFingerprint[fingerprint]) == 0 {
		delete(h.byFingerprint, fingerprint)
	}
}

func (h *Hub) Subscribe(client *Client, fingerprint string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, c := range h.byFingerprint[fingerprint] {
		if c == client {
			return
		}
	}

	h.byFingerprint[fingerprint] = append(h.byFingerprint[fingerprint], client)

	log.Debug().
		Str("fingerprint", fingerprint).
		Int("subscribers", len(h.byFingerprint[fingerprint])).
		Msg("[WS] Upload subscription added")
}

func (h *Hub) Unsubscribe(client *Client, fingerprint string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.removeSubscriber(client, fingerprint)

	log.Debug().
		Str("fingerprint", fingerprint).
		Int("subscribers", len(h.byFingerprint[fingerprint])).
		Msg("[WS] Upload subscription removed")
}

func (h *Hub) broadcastToSubscribers(ev *upload.Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	clients := h.byFingerprint[ev.Fingerprint]
	if len(clients) == 0 {
		return
	}

	msg := &UploadMessage{Type: MessageTypeUpload, Event: ev}
	for _, client := range clients {
		select {
		case client.send <- msg:
		default:
			log.Warn().
				Str("clientId", client.id).
				Str("fingerprint", ev.Fingerprint).
				Msg("[WS] Client send buffer full, dropping message")
		}
	}

	log.Debug().
		Str("fingerprint", ev.Fingerprint).
		Str("type", string(ev.Type)).
		Int("recipients", len(clients)).
		Msg("[WS] Upload event broadcast complete")
}

func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.done:
	}
}

func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Publish queues ev for delivery. It never blocks the upload path: when
// the queue is full the event is dropped.
func (h *Hub) Publish(ev *upload.Event) {
	select {
	case h.broadcast <- ev:
	default:
		log.Warn().
			Str("fingerprint", ev.Fingerprint).
			Str("type", string(ev.Type)).
			Msg("[WS] Broadcast queue full, dropping event")
	}
}

func (h *Hub) GetStats() (totalClients, totalSubscriptions int) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	totalClients = len(h.clients)
	for _, clients := range h.byFingerprint {
		totalSubscriptions += len(clients)
	}
	return
}
