package broker

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/twmb/franz-go/pkg/kgo"

	"provisioner-watch/src/logger"
)

// clientID identifies provisioner-watch in Redpanda's client list.
const clientID = "provisioner-watch"

// RedpandaBroker is a Broker backed by Redpanda (or any Kafka API) through franz-go.
// One producer client is shared; every Subscribe gets its own consumer group client.
type RedpandaBroker struct {
	seeds    []string
	producer *kgo.Client
	log      logger.Logger

	mu        sync.RWMutex
	consumers map[string]*kgo.Client // keyed by topic/group
	closed    bool
}

// NewRedpandaBroker connects a producer to the seed brokers, e.g. ["localhost:19092"].
func NewRedpandaBroker(seeds []string, log logger.Logger) (*RedpandaBroker, error) {
	if len(seeds) == 0 {
		return nil, fmt.Errorf("at least one broker address is required")
	}
	if log == nil {
		log = logger.NewSilentLogger()
	}

	producer, err := kgo.NewClient(
		kgo.SeedBrokers(seeds...),
		kgo.ClientID(clientID),
		kgo.AllowAutoTopicCreation(),
		kgo.ProducerBatchCompression(kgo.Lz4Compression()),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create redpanda producer: %w", err)
	}

	return &RedpandaBroker{
		seeds:     seeds,
		producer:  producer,
		log:       log,
		consumers: make(map[string]*kgo.Client),
	}, nil
}

// Publish produces one record and waits for the broker to acknowledge it.
func (b *RedpandaBroker) Publish(ctx context.Context, topic string, key string, value []byte) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return ErrClosed
	}

	record := &kgo.Record{Topic: topic, Key: []byte(key), Value: value}
	if err := b.producer.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("failed to produce to %s: %w", topic, err)
	}
	return nil
}

// Subscribe joins groupID on topic. A group may only be subscribed once per broker.
func (b *RedpandaBroker) Subscribe(ctx context.Context, topic string, groupID string) (<-chan Message, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, ErrClosed
	}

	key := topic + "/" + groupID
	if _, ok := b.consumers[key]; ok {
		return nil, fmt.Errorf("already subscribed to %s as group %s", topic, groupID)
	}

	// Status events are only interesting from now on
	consumer, err := kgo.NewClient(
		kgo.SeedBrokers(b.seeds...),
		kgo.ClientID(clientID),
		kgo.ConsumerGroup(groupID),
		kgo.ConsumeTopics(topic),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtEnd()),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create redpanda consumer: %w", err)
	}
	b.consumers[key] = consumer

	out := make(chan Message, subscriberBuffer)
	go func() {
		defer b.removeConsumer(key, consumer)
		defer close(out)
		b.consume(ctx, consumer, out)
	}()
	return out, nil
}

func (b *RedpandaBroker) consume(ctx context.Context, consumer *kgo.Client, out chan<- Message) {
	for ctx.Err() == nil {
		fetches := consumer.PollFetches(ctx)
		if fetches.IsClientClosed() {
			return
		}

		if errs := fetches.Errors(); len(errs) > 0 {
			for _, fe := range errs {
				if errors.Is(fe.Err, context.Canceled) {
					return
				}
				b.log.Error("redpanda fetch error on %s/%d: %v", fe.Topic, fe.Partition, fe.Err)
			}
			continue
		}

		iter := fetches.RecordIter()
		for !iter.Done() {
			select {
			case out <- toMessage(iter.Next()):
			case <-ctx.Done():
				return
			}
		}
	}
}

func toMessage(r *kgo.Record) Message {
	return Message{
		Topic:     r.Topic,
		Key:       string(r.Key),
		Value:     r.Value,
		Offset:    r.Offset,
		Partition: r.Partition,
		Timestamp: r.Timestamp.UnixMilli(),
	}
}

// removeConsumer closes a consumer whose loop ended, unless Close already did.
func (b *RedpandaBroker) removeConsumer(key string, consumer *kgo.Client) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if current, ok := b.consumers[key]; ok && current == consumer {
		delete(b.consumers, key)
		consumer.Close()
	}
}

// Close closes every consumer and the producer.
func (b *RedpandaBroker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true

	for key, consumer := range b.consumers {
		consumer.Close()
		delete(b.consumers, key)
	}
	b.producer.Close()
	return nil
}
