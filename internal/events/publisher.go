package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/capitalize-ai/leasing-assistant/internal/model"
	"github.com/capitalize-ai/leasing-assistant/pkg/metrics"
)

const (
	// StreamName is the name of the turn event stream.
	StreamName = "LEASING"

	// SubjectPrefix is the prefix for all turn event subjects.
	SubjectPrefix = "leasing"
)

// Publisher emits turn events.
type Publisher interface {
	Publish(ctx context.Context, event *model.TurnEvent) error
}

// Subject returns leasing.<user>.<type>.
func Subject(userID string, t model.EventType) string {
	return fmt.Sprintf("%s.%s.%s", SubjectPrefix, userID, t)
}

// TypeFilter matches every event of type t across users.
func TypeFilter(t model.EventType) string {
	return fmt.Sprintf("%s.*.%s", SubjectPrefix, t)
}

// UserFilter matches every event of one user.
func UserFilter(userID string) string {
	return fmt.Sprintf("%s.%s.>", SubjectPrefix, userID)
}

// Noop discards events. It is used when NATS is disabled.
type Noop struct{}

// Publish implements Publisher.
func (Noop) Publish(context.Context, *model.TurnEvent) error { return nil }

// Stream publishes turn events to JetStream.
type Stream struct {
	js jetstream.JetStream
}

// NewStream creates a stream publisher over c.
func NewStream(c *Client) *Stream {
	return &Stream{js: c.JetStream()}
}

// EnsureStream creates the turn event stream if it does not exist.
func (s *Stream) EnsureStream(ctx context.Context) error {
	if _, err := s.js.Stream(ctx, StreamName); err == nil {
		return nil
	}

	_, err := s.js.CreateStream(ctx, jetstream.StreamConfig{
		Name:        StreamName,
		Subjects:    []string{SubjectPrefix + ".>"},
		Retention:   jetstream.LimitsPolicy,
		MaxAge:      90 * 24 * time.Hour,
		Storage:     jetstream.FileStorage,
		Replicas:    1,
		Compression: jetstream.S2Compression,
		Description: "Completed leasing assistant turns and handoffs",
	})
	if err != nil {
		return fmt.Errorf("failed to create stream: %w", err)
	}
	return nil
}

// Publish implements Publisher. The stream sequence is written back to event.
func (s *Stream) Publish(ctx context.Context, event *model.TurnEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		metrics.EventsPublishedTotal.WithLabelValues(string(event.Type), "error").Inc()
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	ack, err := s.js.Publish(ctx, Subject(event.UserID, event.Type), data)
	if err != nil {
		metrics.EventsPublishedTotal.WithLabelValues(string(event.Type), "error").Inc()
		return fmt.Errorf("failed to publish event: %w", err)
	}
	event.Sequence = ack.Sequence
	metrics.EventsPublishedTotal.WithLabelValues(string(event.Type), "success").Inc()
	return nil
}

// Since returns up to limit events matching filter published at or after
// since, oldest first.
func (s *Stream) Since(ctx context.Context, filter string, since time.Time, limit int) ([]model.TurnEvent, error) {
	if limit <= 0 {
		limit = 50
	}

	consumer, err := s.js.OrderedConsumer(ctx, StreamName, jetstream.OrderedConsumerConfig{
		FilterSubjects: []string{filter},
		DeliverPolicy:  jetstream.DeliverByStartTimePolicy,
		OptStartTime:   &since,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create consumer: %w", err)
	}

	batch, err := consumer.Fetch(limit, jetstream.FetchMaxWait(2*time.Second))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch events: %w", err)
	}

	var out []model.TurnEvent
	for msg := range batch.Messages() {
		var ev model.TurnEvent
		if err := json.Unmarshal(msg.Data(), &ev); err != nil {
			continue
		}
		if meta, err := msg.Metadata(); err == nil {
			ev.Sequence = meta.Sequence.Stream
		}
		out = append(out, ev)
	}
	if err := batch.Error(); err != nil && !errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, jetstream.ErrNoMessages) {
		return nil, fmt.Errorf("batch error: %w", err)
	}
	return out, nil
}
