package consumer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kgo"
)

// Message is one consumed record, decoupled from the Kafka client so
// handlers stay testable without a broker.
type Message struct {
	Topic     string
	Key       []byte
	Value     []byte
	Timestamp time.Time
}

// Handler processes one message. Returning nil commits; handlers that hit
// malformed payloads should log and return nil so the partition keeps moving.
type Handler interface {
	Handle(ctx context.Context, msg *Message) error
}

// Consumer is a franz-go consumer-group loop over a single topic.
type Consumer struct {
	client  *kgo.Client
	handler Handler
	logger  *slog.Logger
	topic   string
}

// New connects a consumer group to the topic. Startup verifies the topic
// exists so a misconfigured deployment fails loudly instead of polling
// nothing forever.
func New(brokers []string, group, topic string, handler Handler, logger *slog.Logger) (*Consumer, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.ConsumerGroup(group),
		kgo.ConsumeTopics(topic),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	adm := kadm.NewClient(client)
	details, err := adm.ListTopics(ctx, topic)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("list topics: %w", err)
	}
	if !details.Has(topic) {
		client.Close()
		return nil, fmt.Errorf("topic %q does not exist", topic)
	}

	return &Consumer{
		client:  client,
		handler: handler,
		logger:  logger,
		topic:   topic,
	}, nil
}

// Run polls until the context is canceled. Handler errors are logged and the
// message is committed anyway; redelivery of a poison message would stall the
// partition without making it processable.
func (c *Consumer) Run(ctx context.Context) error {
	for {
		fetches := c.client.PollFetches(ctx)
		if fetches.IsClientClosed() {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		fetches.EachError(func(topic string, partition int32, err error) {
			c.logger.ErrorContext(ctx, "kafka fetch error",
				"topic", topic,
				"partition", partition,
				"error", err,
			)
		})
		fetches.EachRecord(func(record *kgo.Record) {
			msg := &Message{
				Topic:     record.Topic,
				Key:       record.Key,
				Value:     record.Value,
				Timestamp: record.Timestamp,
			}
			if err := c.handler.Handle(ctx, msg); err != nil {
				c.logger.ErrorContext(ctx, "message handler failed",
					"topic", record.Topic,
					"key", string(record.Key),
					"error", err,
				)
			}
		})
	}
}

// Close shuts down the Kafka client, committing outstanding offsets.
func (c *Consumer) Close() {
	c.client.Close()
}
