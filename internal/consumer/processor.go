// Package consumer follows the workout change feed and keeps a rendered list current.
package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"

	"example.com/workouts/internal/domain"
	"example.com/workouts/internal/outbox"
	"example.com/workouts/internal/persistence"
)

// Reader exposes the minimal kafka.Reader interface needed by the processor.
type Reader interface {
	FetchMessage(context.Context) (kafka.Message, error)
	CommitMessages(context.Context, ...kafka.Message) error
	Close() error
}

// Handler receives decoded change messages.
type Handler interface {
	Handle(context.Context, Message) error
}

// Message is a decoded change event.
type Message struct {
	Topic      string
	Partition  int
	Offset     int64
	EventType  string
	Reason     domain.ChangeReason
	WorkoutID  string
	OccurredAt time.Time
	Workouts   []domain.Workout
}

// Option configures optional behaviour for the Processor.
type Option func(*Processor)

// WithLogger overrides the logger used to report errors.
func WithLogger(logger *log.Logger) Option {
	return func(p *Processor) {
		p.logger = logger
	}
}

// WithFetchBackoff sets the pause after a failed fetch before trying again.
func WithFetchBackoff(d time.Duration) Option {
	return func(p *Processor) {
		if d > 0 {
			p.backoff = d
		}
	}
}

const defaultFetchBackoff = 500 * time.Millisecond

// Processor pulls messages from Kafka, decodes them, and dispatches to a Handler.
type Processor struct {
	reader  Reader
	handler Handler
	logger  *log.Logger
	backoff time.Duration
}

// NewProcessor constructs a Processor with the provided reader and handler.
func NewProcessor(reader Reader, handler Handler, opts ...Option) *Processor {
	p := &Processor{
		reader:  reader,
		handler: handler,
		logger:  log.New(log.Writer(), "[feed] ", log.LstdFlags|log.Lshortfile),
		backoff: defaultFetchBackoff,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run processes messages until the context is cancelled or the reader is
// closed (io.EOF). Other fetch errors are retried after the backoff.
func (p *Processor) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		msg, err := p.reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, io.EOF) {
				return err
			}
			p.logger.Printf("fetch error, retrying in %s: %v", p.backoff, err)
			recordFetchError()
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(p.backoff):
			}
			continue
		}

		event, decodeErr := decodeMessage(msg)
		if decodeErr != nil {
			p.logger.Printf("decode error (topic=%s, partition=%d, offset=%d): %v", msg.Topic, msg.Partition, msg.Offset, decodeErr)
			recordDecodeError(msg.Topic)
			// Commit malformed messages to avoid poison-pill loops.
			if commitErr := p.reader.CommitMessages(ctx, msg); commitErr != nil {
				p.logger.Printf("commit error after decode failure: %v", commitErr)
			}
			continue
		}

		if handleErr := p.handler.Handle(ctx, event); handleErr != nil {
			p.logger.Printf("handler error (event_type=%s, workout=%s): %v", event.EventType, event.WorkoutID, handleErr)
			recordHandlerError(event)
			continue
		}

		if commitErr := p.reader.CommitMessages(ctx, msg); commitErr != nil {
			p.logger.Printf("commit error: %v", commitErr)
		} else {
			recordProcessed(event)
		}
	}
}

func decodeMessage(msg kafka.Message) (Message, error) {
	eventType, ok := headerValue(msg, "event_type")
	if !ok {
		return Message{}, errors.New("missing event_type header")
	}
	if !strings.HasPrefix(string(eventType), "workouts.") {
		return Message{}, fmt.Errorf("unexpected event_type %q", eventType)
	}

	var body outbox.ChangeMessage
	if err := json.Unmarshal(msg.Value, &body); err != nil {
		return Message{}, fmt.Errorf("decode body: %w", err)
	}
	workouts, err := persistence.Decode(body.Workouts)
	if err != nil {
		return Message{}, err
	}

	occurred := body.OccurredAt
	if occurred.IsZero() {
		occurred = msg.Time
	}
	return Message{
		Topic:      msg.Topic,
		Partition:  msg.Partition,
		Offset:     msg.Offset,
		EventType:  string(eventType),
		Reason:     domain.ChangeReason(body.Reason),
		WorkoutID:  body.WorkoutID,
		OccurredAt: occurred.UTC(),
		Workouts:   workouts,
	}, nil
}

func headerValue(msg kafka.Message, key string) ([]byte, bool) {
	for _, header := range msg.Headers {
		if header.Key == key {
			return header.Value, true
		}
	}
	return nil, false
}
