package bus

import (
	"context"
	"testing"
	"time"
)

func TestPublishInbound_DropsWhenBufferFull(t *testing.T) {
	mb := NewMessageBus()
	defer mb.Close()

	for i := 0; i < cap(mb.inbound); i++ {
		mb.PublishInbound(InboundMessage{Channel: "discord", SenderID: "u", ChatID: "c", Content: "hi"})
	}

	mb.PublishInbound(InboundMessage{Channel: "discord", SenderID: "u", ChatID: "c", Content: "overflow"})
	if mb.DroppedInbound() != 1 {
		t.Fatalf("dropped inbound = %d, want 1", mb.DroppedInbound())
	}
}

func TestPublishOutbound_DropsWhenBufferFull(t *testing.T) {
	mb := NewMessageBus()
	defer mb.Close()

	for i := 0; i < cap(mb.outbound); i++ {
		mb.PublishOutbound(OutboundMessage{Channel: "discord", ChatID: "c", Content: "reply"})
	}

	mb.PublishOutbound(OutboundMessage{Channel: "discord", ChatID: "c", Content: "overflow"})
	if mb.DroppedOutbound() != 1 {
		t.Fatalf("dropped outbound = %d, want 1", mb.DroppedOutbound())
	}
}

func TestConsume_RoundTrip(t *testing.T) {
	mb := NewMessageBus()
	defer mb.Close()

	mb.PublishInbound(InboundMessage{Channel: "discord", SenderID: "u1", ChatID: "c1", Content: "hi"})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	msg, ok := mb.ConsumeInbound(ctx)
	if !ok {
		t.Fatal("expected a message")
	}
	if msg.SenderID != "u1" || msg.Content != "hi" {
		t.Errorf("unexpected message: %+v", msg)
	}
}

func TestConsume_ContextCancelReturnsFalse(t *testing.T) {
	mb := NewMessageBus()
	defer mb.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, ok := mb.ConsumeInbound(ctx); ok {
		t.Fatal("expected ok=false on cancelled context")
	}
}

func TestClosedBus_ConsumeReturnsFalse(t *testing.T) {
	mb := NewMessageBus()
	mb.Close()

	if _, ok := mb.ConsumeInbound(context.Background()); ok {
		t.Fatal("expected closed inbound consume to return ok=false")
	}
	if _, ok := mb.ConsumeOutbound(context.Background()); ok {
		t.Fatal("expected closed outbound consume to return ok=false")
	}

	// Publishing after close is a no-op, not a panic.
	mb.PublishInbound(InboundMessage{Content: "late"})
	mb.PublishOutbound(OutboundMessage{Content: "late"})
}
