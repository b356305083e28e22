// Package bus queues inbound chat messages for the relay loop and routes
// replies back to the channel that produced them.
package bus

import (
	"log/slog"
	"sync"
	"time"

	"transbot/internal/domain"
	"transbot/internal/metrics"
)

const defaultPublishWait = 10 * time.Second

// InMemoryBus is a buffered Go channel between the chat channels and the
// relay loop, plus a per-channel table of reply handlers.
type InMemoryBus struct {
	inbound  chan domain.InboundMessage
	done     chan struct{}
	once     sync.Once
	handlers map[string]func(domain.OutboundMessage)
	mu       sync.RWMutex
	closed   bool
	wait     time.Duration
	logger   *slog.Logger
}

// New creates a bus holding up to bufferSize pending messages.
func New(bufferSize int, logger *slog.Logger) *InMemoryBus {
	if bufferSize <= 0 {
		bufferSize = 100
	}
	return &InMemoryBus{
		inbound:  make(chan domain.InboundMessage, bufferSize),
		done:     make(chan struct{}),
		handlers: make(map[string]func(domain.OutboundMessage)),
		wait:     defaultPublishWait,
		logger:   logger,
	}
}

// Publish enqueues msg. When the queue is full it waits up to the publish
// wait for room, then drops the message. Close releases waiting publishers.
func (b *InMemoryBus) Publish(msg domain.InboundMessage) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		b.drop(msg, "bus closed")
		return
	}

	select {
	case b.inbound <- msg:
		return
	default:
	}

	b.logger.Warn("relay queue full, waiting",
		"channel", msg.Channel, "scope", msg.Scope.ID, "kind", msg.Kind)
	timer := time.NewTimer(b.wait)
	defer timer.Stop()
	select {
	case b.inbound <- msg:
	case <-b.done:
		b.drop(msg, "bus closed")
	case <-timer.C:
		b.drop(msg, "queue full")
	}
}

func (b *InMemoryBus) drop(msg domain.InboundMessage, reason string) {
	metrics.DroppedMessages.WithLabelValues(msg.Channel).Inc()
	b.logger.Error("inbound message dropped",
		"reason", reason,
		"channel", msg.Channel,
		"chat_id", msg.ChatID,
		"message_id", msg.MessageID,
	)
}

// Subscribe returns the inbound queue. It is closed by Close.
func (b *InMemoryBus) Subscribe() <-chan domain.InboundMessage {
	return b.inbound
}

// SendOutbound hands msg to the handler registered for msg.Channel. The
// handler runs on the caller's goroutine.
func (b *InMemoryBus) SendOutbound(msg domain.OutboundMessage) {
	b.mu.RLock()
	handler, ok := b.handlers[msg.Channel]
	b.mu.RUnlock()

	if !ok {
		metrics.DeliveryFailures.WithLabelValues(msg.Channel).Inc()
		b.logger.Warn("no reply handler for channel", "channel", msg.Channel, "reply_to", msg.ReplyTo)
		return
	}
	handler(msg)
}

// OnOutbound registers the reply handler of a channel, replacing any
// previous one.
func (b *InMemoryBus) OnOutbound(channelName string, handler func(domain.OutboundMessage)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[channelName] = handler
}

// Close stops accepting messages and closes the inbound queue. It is safe
// to call more than once.
func (b *InMemoryBus) Close() {
	b.once.Do(func() {
		// Wake publishers blocked on a full queue before taking the write lock.
		close(b.done)

		b.mu.Lock()
		defer b.mu.Unlock()
		b.closed = true
		close(b.inbound)
	})
}
