// Package outbox broadcasts workout list changes to Kafka.
package outbox

import (
	"time"

	"github.com/segmentio/kafka-go"
)

// flushInterval bounds how long a change waits to be batched. The list
// changes one event at a time, so the writer's one-second default only
// adds latency.
const flushInterval = 10 * time.Millisecond

// NewWriter returns a writer bound to topic (DefaultTopic when empty). Close it on shutdown.
func NewWriter(brokers []string, topic string) *kafka.Writer {
	if topic == "" {
		topic = DefaultTopic
	}
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		Compression:            kafka.Snappy,
		BatchTimeout:           flushInterval,
		AllowAutoTopicCreation: true,
	}
}
