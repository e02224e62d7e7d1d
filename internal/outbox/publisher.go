package outbox

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"

	"example.com/workouts/internal/domain"
	"example.com/workouts/internal/persistence"
)

// DefaultTopic receives one message per workout list change.
const DefaultTopic = "workouts.changed"

type messageWriter interface {
	WriteMessages(context.Context, ...kafka.Message) error
}

// ChangeMessage is the JSON body of a change event.
type ChangeMessage struct {
	Reason     string          `json:"reason"`
	WorkoutID  string          `json:"workout_id,omitempty"`
	OccurredAt time.Time       `json:"occurred_at"`
	Workouts   json.RawMessage `json:"workouts"`
}

// KafkaPublisher implements domain.Publisher on top of a Kafka writer.
type KafkaPublisher struct {
	writer messageWriter
}

// NewKafkaPublisher constructs a KafkaPublisher. The writer decides the topic;
// see NewWriter.
func NewKafkaPublisher(writer messageWriter) *KafkaPublisher {
	return &KafkaPublisher{writer: writer}
}

// Publish sends the full ordered list, keyed by workout id so changes to the
// same workout stay on one partition.
func (p *KafkaPublisher) Publish(ctx context.Context, event domain.ChangeEvent) error {
	workouts, err := persistence.Encode(event.Workouts)
	if err != nil {
		publishFailedCounter.WithLabelValues(string(event.Reason)).Inc()
		return err
	}
	body, err := json.Marshal(ChangeMessage{
		Reason:     string(event.Reason),
		WorkoutID:  event.WorkoutID,
		OccurredAt: event.OccurredAt,
		Workouts:   workouts,
	})
	if err != nil {
		publishFailedCounter.WithLabelValues(string(event.Reason)).Inc()
		return err
	}

	key := event.WorkoutID
	if key == "" {
		key = string(event.Reason)
	}
	msg := kafka.Message{
		Key:   []byte(key),
		Value: body,
		Time:  event.OccurredAt,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte("workouts." + string(event.Reason))},
		},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		publishFailedCounter.WithLabelValues(string(event.Reason)).Inc()
		return err
	}
	publishedCounter.WithLabelValues(string(event.Reason)).Inc()
	return nil
}
