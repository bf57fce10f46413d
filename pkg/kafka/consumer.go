package kafka

import (
	"context"
	"log"

	"github.com/segmentio/kafka-go"
)

// Handler must return nil only when the message may be committed.
type Handler func(ctx context.Context, body []byte) error

// Consumer reads one topic as a member of a consumer group.
type Consumer struct {
	r *kafka.Reader
}

// NewConsumer creates a reader for topic in group.
func NewConsumer(brokers []string, group, topic string) *Consumer {
	return &Consumer{r: kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		GroupID:        group,
		Topic:          topic,
		MinBytes:       1,
		MaxBytes:       10e6,
		CommitInterval: 0,
		StartOffset:    kafka.LastOffset,
	})}
}

// Start feeds every message to h until ctx is done. Messages h rejects are
// logged and committed so a poison message cannot stall the group.
func (c *Consumer) Start(ctx context.Context, h Handler) error {
	defer c.r.Close()
	for {
		m, err := c.r.FetchMessage(ctx)
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
				return err
			}
		}
		if err := h(ctx, m.Value); err != nil {
			log.Printf("kafka: handle offset %d: %v", m.Offset, err)
		}
		if err := c.r.CommitMessages(ctx, m); err != nil && ctx.Err() == nil {
			log.Printf("kafka: commit offset %d: %v", m.Offset, err)
		}
	}
}
