package fanout

import (
	"sync"
	"sync/atomic"

	"tradefeed/internal/exchange/model"

	"go.uber.org/zap"
)

const defaultBuffer = 64

// Hub delivers every accepted trade to all currently registered
// subscribers. Subscriptions are channel-backed with a bounded buffer:
// a subscriber that cannot keep up loses trades (counted and logged)
// instead of stalling the hub or other subscribers.
type Hub struct {
	mu     sync.Mutex
	subs   map[*Subscription]struct{}
	buffer int
	logger *zap.Logger
}

// Subscription is one registered subscriber's receive side.
type Subscription struct {
	hub     *Hub
	ch      chan model.Trade
	dropped atomic.Int64
	once    sync.Once
}

// NewHub creates a hub whose subscriptions buffer up to buffer trades
// each. buffer <= 0 selects the default.
func NewHub(buffer int, logger *zap.Logger) *Hub {
	if buffer <= 0 {
		buffer = defaultBuffer
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		subs:   make(map[*Subscription]struct{}),
		buffer: buffer,
		logger: logger,
	}
}

// Subscribe registers a new subscriber. Trades published before the
// call returns are not replayed.
func (h *Hub) Subscribe() *Subscription {
	sub := &Subscription{hub: h, ch: make(chan model.Trade, h.buffer)}
	h.mu.Lock()
	h.subs[sub] = struct{}{}
	h.mu.Unlock()
	return sub
}

// Publish enqueues t to every current subscriber. Holding the hub lock
// across the loop keeps per-subscriber delivery order equal to publish
// order. Sends never block: a full buffer drops the trade for that
// subscriber only.
func (h *Hub) Publish(t model.Trade) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for sub := range h.subs {
		select {
		case sub.ch <- t:
		default:
			n := sub.dropped.Add(1)
			h.logger.Warn("subscriber buffer full, trade dropped",
				zap.Int64("trade_id", t.ID),
				zap.String("symbol", t.Symbol),
				zap.Int64("dropped_total", n))
		}
	}
}

// SubscriberCount returns the number of registered subscribers.
func (h *Hub) SubscriberCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Trades returns the subscriber's receive channel. Close closes it.
func (s *Subscription) Trades() <-chan model.Trade {
	return s.ch
}

// Dropped reports how many trades were discarded because this
// subscriber fell behind.
func (s *Subscription) Dropped() int64 {
	return s.dropped.Load()
}

// Close unregisters the subscriber and closes its channel. Safe to call
// more than once.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.hub.mu.Lock()
		delete(s.hub.subs, s)
		s.hub.mu.Unlock()
		close(s.ch)
	})
}
