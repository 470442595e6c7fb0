// Package events publishes scrape lifecycle events to Kafka so downstream
// consumers can track scraping activity without polling the service.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
)

// EventTypeScrapeCompleted marks the end of a scrape run, whether it ran to
// completion or aborted early.
const EventTypeScrapeCompleted = "scholar.scrape.completed"

// defaultTopic receives scrape events when no topic is configured.
const defaultTopic = "scholar.scrape.events"

// ScrapeCompleted describes the outcome of one scrape run.
type ScrapeCompleted struct {
	QueryHash       string    `json:"query_hash"`
	PapersCollected int       `json:"papers_collected"`
	PagesVisited    int       `json:"pages_visited"`
	Aborted         bool      `json:"aborted"`
	AbortReason     string    `json:"abort_reason,omitempty"`
	CompletedAt     time.Time `json:"completed_at"`
}

// envelope wraps a payload with delivery metadata.
type envelope struct {
	EventID   string          `json:"event_id"`
	EventType string          `json:"event_type"`
	Payload   json.RawMessage `json:"payload"`
}

// Emitter publishes scrape lifecycle events. Implementations must be safe
// for concurrent use.
type Emitter interface {
	EmitScrapeCompleted(ctx context.Context, event ScrapeCompleted) error
	Close() error
}

// Config holds configuration for the Kafka emitter.
type Config struct {
	// Brokers is the list of Kafka broker addresses.
	Brokers []string
	// Topic is the Kafka topic scrape events are published to.
	Topic string
	// BatchTimeout bounds how long the writer buffers before flushing.
	BatchTimeout time.Duration
}

// messageWriter is the subset of kafka.Writer the emitter uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaEmitter publishes events through a kafka.Writer. Messages are keyed
// by query hash so runs of the same query land on the same partition.
type KafkaEmitter struct {
	writer messageWriter
	logger zerolog.Logger
	now    func() time.Time
}

var _ Emitter = (*KafkaEmitter)(nil)

// NewKafkaEmitter creates an emitter for the given brokers and topic. The
// underlying writer dials lazily, so an unreachable broker surfaces on the
// first emit rather than here.
func NewKafkaEmitter(cfg Config, logger zerolog.Logger) *KafkaEmitter {
	if cfg.Topic == "" {
		cfg.Topic = defaultTopic
	}
	if cfg.BatchTimeout <= 0 {
		cfg.BatchTimeout = time.Second
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: cfg.BatchTimeout,
		RequiredAcks: kafka.RequireOne,
	}

	return &KafkaEmitter{
		writer: writer,
		logger: logger.With().Str("component", "event_emitter").Logger(),
		now:    time.Now,
	}
}

// EmitScrapeCompleted publishes a scrape completion event. Failures are
// returned to the caller; whether a failed emit is fatal is the caller's
// call, not the emitter's.
func (e *KafkaEmitter) EmitScrapeCompleted(ctx context.Context, event ScrapeCompleted) error {
	if event.QueryHash == "" {
		return fmt.Errorf("query_hash is required")
	}
	if event.CompletedAt.IsZero() {
		event.CompletedAt = e.now().UTC()
	}

	msg, err := newScrapeMessage(event)
	if err != nil {
		return err
	}
	if err := e.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write scrape event: %w", err)
	}

	e.logger.Debug().
		Str("query_hash", event.QueryHash).
		Int("papers_collected", event.PapersCollected).
		Bool("aborted", event.Aborted).
		Msg("scrape event published")
	return nil
}

// Close flushes buffered messages and releases the writer.
func (e *KafkaEmitter) Close() error {
	return e.writer.Close()
}

// newScrapeMessage builds the Kafka message for a completed scrape.
func newScrapeMessage(event ScrapeCompleted) (kafka.Message, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("marshal payload: %w", err)
	}
	value, err := json.Marshal(envelope{
		EventID:   uuid.New().String(),
		EventType: EventTypeScrapeCompleted,
		Payload:   payload,
	})
	if err != nil {
		return kafka.Message{}, fmt.Errorf("marshal envelope: %w", err)
	}
	return kafka.Message{
		Key:   []byte(event.QueryHash),
		Value: value,
		Time:  event.CompletedAt,
	}, nil
}

// NoopEmitter drops every event. It stands in for the Kafka emitter when
// event publishing is disabled.
type NoopEmitter struct{}

var _ Emitter = NoopEmitter{}

// EmitScrapeCompleted discards the event.
func (NoopEmitter) EmitScrapeCompleted(context.Context, ScrapeCompleted) error { return nil }

// Close is a no-op.
func (NoopEmitter) Close() error { return nil }
