package messaging

import (
	"context"
	"sync"

	"LuckyNumbers/internal/interfaces"

	"github.com/sirupsen/logrus"
)

// Broker in-process fan-out from topics to subscribers, feeds the websocket clients
type Broker struct {
	mu     sync.RWMutex
	subs   map[string]map[uint64]interfaces.MessageHandler
	nextID uint64
	closed bool
	logger *logrus.Logger
}

// NewBroker creates an empty broker
func NewBroker(logger *logrus.Logger) *Broker {
	return &Broker{
		subs:   make(map[string]map[uint64]interfaces.MessageHandler),
		logger: logger,
	}
}

// Subscribe registers handler for topic until the returned function is called
func (b *Broker) Subscribe(topic string, handler interfaces.MessageHandler) func() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return func() {}
	}
	b.nextID++
	id := b.nextID
	if b.subs[topic] == nil {
		b.subs[topic] = make(map[uint64]interfaces.MessageHandler)
	}
	b.subs[topic][id] = handler

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			delete(b.subs[topic], id)
			if len(b.subs[topic]) == 0 {
				delete(b.subs, topic)
			}
		})
	}
}

// Subscribers number of handlers on topic
func (b *Broker) Subscribers(topic string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[topic])
}

// Publish calls every handler of topic. A panicking handler is logged and skipped.
func (b *Broker) Publish(ctx context.Context, topic string, payload []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.mu.RLock()
	handlers := make([]interfaces.MessageHandler, 0, len(b.subs[topic]))
	for _, h := range b.subs[topic] {
		handlers = append(handlers, h)
	}
	b.mu.RUnlock()

	for _, h := range handlers {
		b.deliver(topic, payload, h)
	}
	return nil
}

func (b *Broker) deliver(topic string, payload []byte, h interfaces.MessageHandler) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.WithField("topic", topic).Errorf("subscriber panic: %v", r)
		}
	}()
	h(topic, payload)
}

// Close drops every subscription
func (b *Broker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	b.subs = make(map[string]map[uint64]interfaces.MessageHandler)
	return nil
}
