package hub

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/teslashibe/go-shade/internal/log"
)

type subscription struct {
	client *Client
	topics []string
}

// Hub owns the client set. All membership changes and fan-out happen on
// the Run goroutine.
type Hub struct {
	name   string
	logger *slog.Logger

	clients  map[*Client]struct{}
	retained map[string]Message
	order    []string // retained topics in first-publish order

	in         chan Message
	register   chan *Client
	unregister chan *Client
	subscribe  chan subscription
	done       chan struct{}

	count   atomic.Int64
	running atomic.Bool
	dropped atomic.Uint64

	// guards retained for Retained
	mu sync.RWMutex
}

// New creates a hub. name tags its log records.
func New(name string) *Hub {
	return &Hub{
		name:       name,
		logger:     log.Component("hub").With("hub", name),
		clients:    make(map[*Client]struct{}),
		retained:   make(map[string]Message),
		in:         make(chan Message, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		subscribe:  make(chan subscription),
		done:       make(chan struct{}),
	}
}

// Run fans messages out until ctx is cancelled, then closes every client.
// Call it once.
func (h *Hub) Run(ctx context.Context) {
	h.running.Store(true)
	defer func() {
		h.running.Store(false)
		close(h.done)
		for c := range h.clients {
			h.drop(c)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case c := <-h.register:
			h.clients[c] = struct{}{}
			h.count.Store(int64(len(h.clients)))
			h.replay(c)
			h.logger.Info("client connected", "clients", len(h.clients))

		case c := <-h.unregister:
			if _, ok := h.clients[c]; ok {
				h.drop(c)
			}
			h.logger.Info("client disconnected", "clients", len(h.clients))

		case s := <-h.subscribe:
			if _, ok := h.clients[s.client]; !ok {
				continue
			}
			if len(s.topics) == 0 {
				s.client.topics = nil
			} else {
				s.client.topics = make(map[string]bool, len(s.topics))
				for _, t := range s.topics {
					s.client.topics[t] = true
				}
			}
			h.replay(s.client)

		case msg := <-h.in:
			if msg.Retain && msg.Topic != "" {
				h.mu.Lock()
				if _, ok := h.retained[msg.Topic]; !ok {
					h.order = append(h.order, msg.Topic)
				}
				h.retained[msg.Topic] = msg
				h.mu.Unlock()
			}
			for c := range h.clients {
				if !c.wants(msg.Topic) {
					continue
				}
				select {
				case c.send <- msg:
				default:
					h.logger.Warn("dropping slow client")
					h.drop(c)
				}
			}
		}
	}
}

// drop removes c and closes its send channel. Run goroutine only.
func (h *Hub) drop(c *Client) {
	delete(h.clients, c)
	close(c.send)
	h.count.Store(int64(len(h.clients)))
}

// replay sends the retained messages c wants. Run goroutine only.
func (h *Hub) replay(c *Client) {
	for _, topic := range h.order {
		if !c.wants(topic) {
			continue
		}
		select {
		case c.send <- h.retained[topic]:
		default:
		}
	}
}

// Broadcast queues msg. It never blocks; a full queue drops the message.
func (h *Hub) Broadcast(msg Message) {
	select {
	case h.in <- msg:
	default:
		h.dropped.Add(1)
		h.logger.Warn("queue full, dropping message", "topic", msg.Topic)
	}
}

// BroadcastJSON sends v to every client without retaining it.
func (h *Hub) BroadcastJSON(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	h.Broadcast(Message{Kind: Text, Data: data})
	return nil
}

// Publish sends v on topic and retains it for clients that connect later.
func (h *Hub) Publish(topic string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	h.Broadcast(Message{Kind: Text, Data: data, Topic: topic, Retain: true})
	return nil
}

// BroadcastBinary sends data, e.g. a JPEG frame, to every client.
func (h *Hub) BroadcastBinary(data []byte) {
	h.Broadcast(Message{Kind: Binary, Data: data})
}

// Retained returns the latest retained message on topic.
func (h *Hub) Retained(topic string) (Message, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	m, ok := h.retained[topic]
	return m, ok
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	return int(h.count.Load())
}

// Dropped returns how many messages were dropped on a full queue.
func (h *Hub) Dropped() uint64 {
	return h.dropped.Load()
}

// IsRunning reports whether Run is active.
func (h *Hub) IsRunning() bool {
	return h.running.Load()
}
