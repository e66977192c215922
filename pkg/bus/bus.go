package bus

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// InboundMessage is one user utterance arriving from a channel.
type InboundMessage struct {
	Channel  string
	SenderID string
	ChatID   string
	Content  string
}

// OutboundMessage is a resolved reply heading back to its channel.
type OutboundMessage struct {
	Channel string
	ChatID  string
	Content string
	Intent  string
	Context string
}

const (
	bufferSize     = 100
	publishTimeout = 100 * time.Millisecond
)

// MessageBus decouples chat channels from the dialogue engine. Both
// directions are bounded: a publisher blocked for longer than the publish
// timeout drops the message and bumps a counter instead of stalling the
// channel that produced it.
type MessageBus struct {
	inbound  chan InboundMessage
	outbound chan OutboundMessage

	mu      sync.RWMutex
	closed  bool
	dropped droppedCounters
}

type droppedCounters struct {
	inbound  atomic.Uint64
	outbound atomic.Uint64
}

func NewMessageBus() *MessageBus {
	return &MessageBus{
		inbound:  make(chan InboundMessage, bufferSize),
		outbound: make(chan OutboundMessage, bufferSize),
	}
}

func (mb *MessageBus) PublishInbound(msg InboundMessage) {
	mb.mu.RLock()
	defer mb.mu.RUnlock()
	if mb.closed {
		return
	}
	publish(mb.inbound, msg, &mb.dropped.inbound)
}

func (mb *MessageBus) PublishOutbound(msg OutboundMessage) {
	mb.mu.RLock()
	defer mb.mu.RUnlock()
	if mb.closed {
		return
	}
	publish(mb.outbound, msg, &mb.dropped.outbound)
}

func publish[T any](ch chan T, msg T, dropped *atomic.Uint64) {
	select {
	case ch <- msg:
		return
	default:
	}

	timer := time.NewTimer(publishTimeout)
	defer timer.Stop()
	select {
	case ch <- msg:
	case <-timer.C:
		dropped.Add(1)
	}
}

// ConsumeInbound blocks until a message arrives, the bus closes, or ctx
// is done. ok is false in the latter two cases.
func (mb *MessageBus) ConsumeInbound(ctx context.Context) (InboundMessage, bool) {
	select {
	case msg, ok := <-mb.inbound:
		if !ok {
			return InboundMessage{}, false
		}
		return msg, true
	case <-ctx.Done():
		return InboundMessage{}, false
	}
}

// ConsumeOutbound blocks until a reply is ready for dispatch.
func (mb *MessageBus) ConsumeOutbound(ctx context.Context) (OutboundMessage, bool) {
	select {
	case msg, ok := <-mb.outbound:
		if !ok {
			return OutboundMessage{}, false
		}
		return msg, true
	case <-ctx.Done():
		return OutboundMessage{}, false
	}
}

func (mb *MessageBus) Close() {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	if mb.closed {
		return
	}
	mb.closed = true
	close(mb.inbound)
	close(mb.outbound)
}

func (mb *MessageBus) DroppedInbound() uint64  { return mb.dropped.inbound.Load() }
func (mb *MessageBus) DroppedOutbound() uint64 { return mb.dropped.outbound.Load() }
