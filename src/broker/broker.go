// Package broker fans template version observations out to subscribers, either
// in process or through Redpanda.
package broker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrClosed is returned by Publish and Subscribe after Close.
var ErrClosed = errors.New("broker is closed")

// Broker publishes keyed messages to topics and delivers them to subscribers.
type Broker interface {
	// Publish sends value to topic. Redpanda partitions by key, so every event
	// of one template version is delivered in order.
	Publish(ctx context.Context, topic string, key string, value []byte) error

	// Subscribe delivers messages published to topic after the call. The
	// channel closes when ctx is done or the broker is closed. groupID names the
	// Redpanda consumer group; the in-memory broker ignores it.
	Subscribe(ctx context.Context, topic string, groupID string) (<-chan Message, error)

	Close() error
}

// Message is a consumed message.
type Message struct {
	Topic     string
	Key       string
	Value     []byte
	Offset    int64
	Partition int32
	// Timestamp is in Unix milliseconds.
	Timestamp int64
}

// PublishJSON marshals v and publishes it to topic.
func PublishJSON(ctx context.Context, b Broker, topic, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal %s message: %w", topic, err)
	}
	return b.Publish(ctx, topic, key, data)
}

// Decode unmarshals a message published with PublishJSON.
func Decode[T any](msg Message) (T, error) {
	var v T
	if err := json.Unmarshal(msg.Value, &v); err != nil {
		return v, fmt.Errorf("failed to decode %s message at offset %d: %w", msg.Topic, msg.Offset, err)
	}
	return v, nil
}
