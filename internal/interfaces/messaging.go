package interfaces

import "context"

// Publisher outbound notifications. Delivery is best effort.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload []byte) error
	Close() error
}

// MessageHandler receives one published message. It must not block.
type MessageHandler func(topic string, payload []byte)

// Subscriber in-process topic subscription
type Subscriber interface {
	// Subscribe returns a function that removes the subscription
	Subscribe(topic string, handler MessageHandler) (unsubscribe func())
}
