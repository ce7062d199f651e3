package broker

import (
	"context"
	"sync"
	"time"
)

// subscriberBuffer is the channel capacity of each subscriber. Publish blocks
// once a subscriber falls this far behind.
const subscriberBuffer = 100

type subscriber struct {
	ch     chan Message
	done   <-chan struct{}
	closed bool // guarded by InMemoryBroker.mu
}

// InMemoryBroker is a process-local Broker. Every subscriber of a topic receives
// every message published after it subscribed; groupID and key do not affect routing.
type InMemoryBroker struct {
	mu          sync.RWMutex
	subscribers map[string][]*subscriber
	offsets     map[string]int64
	closed      bool

	// done is closed before Close takes the lock, releasing publishers
	// blocked on a full subscriber.
	done      chan struct{}
	closeOnce sync.Once
}

// NewInMemoryBroker creates a new InMemoryBroker instance.
func NewInMemoryBroker() *InMemoryBroker {
	return &InMemoryBroker{
		subscribers: make(map[string][]*subscriber),
		offsets:     make(map[string]int64),
		done:        make(chan struct{}),
	}
}

// Publish delivers value to all current subscribers of topic.
func (b *InMemoryBroker) Publish(ctx context.Context, topic string, key string, value []byte) error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return ErrClosed
	}
	offset := b.offsets[topic]
	b.offsets[topic]++
	subs := append([]*subscriber(nil), b.subscribers[topic]...)
	b.mu.Unlock()

	msg := Message{
		Topic:     topic,
		Key:       key,
		Value:     value,
		Offset:    offset,
		Timestamp: time.Now().UnixMilli(),
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, sub := range subs {
		if b.closed {
			return ErrClosed
		}
		if sub.closed {
			continue
		}
		select {
		case sub.ch <- msg:
		case <-sub.done:
		case <-b.done:
			return ErrClosed
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	return nil
}

// Subscribe returns a channel of messages published to topic from now on.
// The channel closes when ctx is done or the broker is closed.
func (b *InMemoryBroker) Subscribe(ctx context.Context, topic string, groupID string) (<-chan Message, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, ErrClosed
	}

	sub := &subscriber{
		ch:   make(chan Message, subscriberBuffer),
		done: ctx.Done(),
	}
	b.subscribers[topic] = append(b.subscribers[topic], sub)

	if ctx.Done() != nil {
		go func() {
			<-ctx.Done()
			b.unsubscribe(topic, sub)
		}()
	}

	return sub.ch, nil
}

func (b *InMemoryBroker) unsubscribe(topic string, sub *subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs := b.subscribers[topic]
	for i, s := range subs {
		if s == sub {
			b.subscribers[topic] = append(subs[:i:i], subs[i+1:]...)
			sub.closed = true
			close(sub.ch)
			return
		}
	}
}

// Close closes every subscriber channel. Further Publish and Subscribe calls fail.
func (b *InMemoryBroker) Close() error {
	b.closeOnce.Do(func() { close(b.done) })

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true

	for topic, subs := range b.subscribers {
		for _, sub := range subs {
			sub.closed = true
			close(sub.ch)
		}
		delete(b.subscribers, topic)
	}

	return nil
}
