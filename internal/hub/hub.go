// Package hub is the in-process fan-out for order events. Subscribers
// are process-local and rebuilt from zero after a restart; clients must
// resynchronize by querying, not by waiting for missed events.
package hub

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/fornalha/pizzaria-orders/internal/orders"
)

// PingFrame is the keep-alive written by PingAll so intermediaries do
// not drop idle connections.
var PingFrame = []byte(`{"type":"ping"}`)

type subscriber struct {
	id string
	ch chan []byte
}

// Hub maps subscriber ids to buffered output channels. One Hub is
// constructed at process start and passed to everything that publishes
// or subscribes; there is no package-level instance.
type Hub struct {
	mu      sync.RWMutex
	subs    map[string]*subscriber
	bufSize int
	log     *slog.Logger

	// onDrop is poked when a subscriber is dropped for a full channel;
	// used for the metrics gauge. May be nil.
	onDrop func(id string)
}

func New(bufSize int, log *slog.Logger) *Hub {
	if bufSize <= 0 {
		bufSize = 32
	}
	if log == nil {
		log = slog.Default()
	}
	return &Hub{subs: map[string]*subscriber{}, bufSize: bufSize, log: log}
}

func (h *Hub) SetDropHook(fn func(id string)) { h.onDrop = fn }

// Subscribe registers id and returns the channel the transport drains
// plus a cancel bound to this registration. Subscribing an id that is
// already registered replaces the previous registration (its channel
// is closed so the old drain loop exits); the cancel of a replaced
// registration is a no-op, so a stale drain loop cannot tear down its
// successor.
func (h *Hub) Subscribe(id string) (<-chan []byte, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if old, ok := h.subs[id]; ok {
		close(old.ch)
	}
	s := &subscriber{id: id, ch: make(chan []byte, h.bufSize)}
	h.subs[id] = s
	h.log.Debug("subscriber registered", "subscriber_id", id, "total", len(h.subs))
	return s.ch, func() { h.remove(s) }
}

// Unsubscribe is idempotent; a second call for the same id is a no-op.
func (h *Hub) Unsubscribe(id string) {
	h.mu.Lock()
	s := h.subs[id]
	h.mu.Unlock()
	if s != nil {
		h.remove(s)
	}
}

func (h *Hub) remove(s *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if cur, ok := h.subs[s.id]; !ok || cur != s {
		return
	}
	delete(h.subs, s.id)
	close(s.ch)
	h.log.Debug("subscriber removed", "subscriber_id", s.id, "total", len(h.subs))
}

func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Publish serializes ev once and writes it to every current
// subscriber. A subscriber whose buffer is full is dropped on the spot
// so it can never block delivery to the others; Publish itself never
// fails.
func (h *Hub) Publish(ev orders.Event) {
	frame, err := json.Marshal(ev)
	if err != nil {
		h.log.Error("event marshal failed", "type", ev.Type, "err", err)
		return
	}
	h.broadcast(frame)
}

// PingAll writes the keep-alive frame to every subscriber.
func (h *Hub) PingAll() {
	h.broadcast(PingFrame)
}

func (h *Hub) broadcast(frame []byte) {
	var stale []*subscriber

	h.mu.RLock()
	for _, s := range h.subs {
		select {
		case s.ch <- frame:
		default:
			stale = append(stale, s)
		}
	}
	h.mu.RUnlock()

	for _, s := range stale {
		h.log.Warn("dropping stalled subscriber", "subscriber_id", s.id)
		h.remove(s)
		if h.onDrop != nil {
			h.onDrop(s.id)
		}
	}
}
