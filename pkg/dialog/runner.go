package dialog

import (
	"context"
	"errors"

	"github.com/lumiebot/lumie/pkg/bus"
	"github.com/lumiebot/lumie/pkg/logger"
)

// Run consumes inbound messages from the bus and publishes replies until
// ctx is cancelled or the bus closes. Each message is processed on its
// own goroutine; turns for the same user still serialize on the per-user
// lock inside Handle.
func (e *Engine) Run(ctx context.Context, mb *bus.MessageBus) {
	logger.InfoC("engine", "Dialogue loop started")
	defer logger.InfoC("engine", "Dialogue loop stopped")

	for {
		msg, ok := mb.ConsumeInbound(ctx)
		if !ok {
			// Either ctx is done or the bus closed; both end the loop.
			return
		}
		go e.handleBusMessage(ctx, mb, msg)
	}
}

func (e *Engine) handleBusMessage(ctx context.Context, mb *bus.MessageBus, msg bus.InboundMessage) {
	resp, err := e.Handle(ctx, msg.SenderID, msg.Content)
	if err != nil {
		if !errors.Is(err, ErrEmptyMessage) {
			logger.ErrorCF("engine", "Failed to handle message", map[string]interface{}{
				"channel":   msg.Channel,
				"sender_id": msg.SenderID,
				"error":     err.Error(),
			})
		}
		return
	}

	mb.PublishOutbound(bus.OutboundMessage{
		Channel: msg.Channel,
		ChatID:  msg.ChatID,
		Content: resp.Reply,
		Intent:  resp.Intent,
		Context: resp.Context,
	})
}
