package elevator

import (
	"log/slog"
	"sync"
	"sync/atomic"
)

// Handler receives notifications. It runs on the goroutine that raised the
// event and must not block for long.
type Handler func(Event)

// Hub is an ordered list of subscribers. The zero value is ready to use.
// Hub은 구독자 목록을 관리하며, 모든 구독자는 등록 순서대로 동기 호출됩니다.
type Hub struct {
	mu       sync.RWMutex
	nextID   int
	handlers []subscription
}

type subscription struct {
	id int
	fn Handler
}

// Subscribe registers fn and returns a function that removes it.
func (h *Hub) Subscribe(fn Handler) (unsubscribe func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.nextID++
	id := h.nextID
	h.handlers = append(h.handlers, subscription{id: id, fn: fn})

	return func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		for i, s := range h.handlers {
			if s.id == id {
				h.handlers = append(h.handlers[:i:i], h.handlers[i+1:]...)
				return
			}
		}
	}
}

// Publish delivers ev to every current subscriber before returning.
// Handlers are called without the hub lock held, so they may publish or
// subscribe themselves.
func (h *Hub) Publish(ev Event) {
	h.mu.RLock()
	handlers := make([]Handler, len(h.handlers))
	for i, s := range h.handlers {
		handlers[i] = s.fn
	}
	h.mu.RUnlock()

	for _, fn := range handlers {
		fn(ev)
	}
}

// ChannelSink adapts synchronous notifications to a buffered channel for
// consumers on another goroutine. Events are dropped instead of blocking the
// publisher when the buffer is full.
// 채널이 가득 차면 이벤트를 버리고 카운터를 증가시킵니다 (System Stability).
type ChannelSink struct {
	ch      chan Event
	dropped atomic.Uint64
	logger  *slog.Logger
}

// NewChannelSink creates a sink with the given buffer size.
func NewChannelSink(size int, logger *slog.Logger) *ChannelSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &ChannelSink{
		ch:     make(chan Event, size),
		logger: logger,
	}
}

// Handle is a Handler that forwards ev to the channel.
func (s *ChannelSink) Handle(ev Event) {
	select {
	case s.ch <- ev:
	default:
		n := s.dropped.Add(1)
		// Log rarely to avoid disk I/O flooding
		if n%100 == 1 {
			s.logger.Error("Event Channel Saturated", "dropped", n, "type", ev.Type)
		}
	}
}

// C returns the read-only event channel.
func (s *ChannelSink) C() <-chan Event {
	return s.ch
}

// Dropped returns the number of events lost to a full buffer.
func (s *ChannelSink) Dropped() uint64 {
	return s.dropped.Load()
}
