package channels

import (
	"context"
	"strings"

	"github.com/lumiebot/lumie/pkg/bus"
)

// Channel is a transport that delivers user messages to the bot and
// replies back to the user.
type Channel interface {
	Name() string
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Send(ctx context.Context, msg bus.OutboundMessage) error
	IsRunning() bool
	IsAllowed(senderID string) bool
}

// BaseChannel carries the pieces every channel shares: its name, the bus
// it publishes into, and an optional sender allowlist.
type BaseChannel struct {
	name      string
	bus       *bus.MessageBus
	allowList []string
	running   bool
}

func NewBaseChannel(name string, mb *bus.MessageBus, allowList []string) *BaseChannel {
	return &BaseChannel{
		name:      name,
		bus:       mb,
		allowList: allowList,
	}
}

func (c *BaseChannel) Name() string { return c.name }

func (c *BaseChannel) IsRunning() bool { return c.running }

func (c *BaseChannel) setRunning(running bool) { c.running = running }

// IsAllowed checks the sender against the allowlist. An empty allowlist
// admits everyone.
func (c *BaseChannel) IsAllowed(senderID string) bool {
	if len(c.allowList) == 0 {
		return true
	}
	for _, allowed := range c.allowList {
		candidate := strings.TrimSpace(strings.TrimPrefix(allowed, "@"))
		if candidate != "" && candidate == senderID {
			return true
		}
	}
	return false
}

// HandleMessage publishes an accepted user message onto the bus.
func (c *BaseChannel) HandleMessage(senderID, chatID, content string) {
	if !c.IsAllowed(senderID) {
		return
	}
	c.bus.PublishInbound(bus.InboundMessage{
		Channel:  c.name,
		SenderID: senderID,
		ChatID:   chatID,
		Content:  content,
	})
}
