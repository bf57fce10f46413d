package kafka_test

import (
	"context"
	"testing"

	"ocha/pkg/kafka"

	"github.com/stretchr/testify/assert"
)

func TestProducer_PublishFailsFastWhenInboxIsFull(t *testing.T) {
	p := kafka.NewProducer([]string{"localhost:9092"}, "ocha.events", 1)

	assert.NoError(t, p.Publish(context.Background(), "o1", []byte(`{}`)))
	assert.ErrorIs(t, p.Publish(context.Background(), "o2", []byte(`{}`)), kafka.ErrProducerFull)
}

func TestProducer_PublishHonoursCancelledContext(t *testing.T) {
	p := kafka.NewProducer([]string{"localhost:9092"}, "ocha.events", 0)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := p.Publish(ctx, "o1", []byte(`{}`))
	assert.Error(t, err)
}
