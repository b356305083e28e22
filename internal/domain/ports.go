package domain

import "context"

// Channel is a chat platform connection. Start publishes every inbound
// message and command to bus, registers the channel's reply handler with
// bus.OnOutbound under Name, and blocks until ctx is cancelled or the
// session fails.
type Channel interface {
	Name() string
	Start(ctx context.Context, bus MessageBus) error
	Stop() error
}

// MessageBus connects channels to the relay loop. Inbound messages are
// queued; outbound replies are routed synchronously by OutboundMessage.Channel.
type MessageBus interface {
	Publish(msg InboundMessage)
	Subscribe() <-chan InboundMessage
	SendOutbound(msg OutboundMessage)
	OnOutbound(channelName string, handler func(OutboundMessage))
	Close()
}
