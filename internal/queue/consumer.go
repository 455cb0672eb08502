package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"

	"github.com/iliyamo/cinema-booking/internal/metrics"
	"github.com/iliyamo/cinema-booking/internal/repository"
)

// Sink stores consumed events.
type Sink interface {
	Append(ctx context.Context, rec repository.ActivityRecord) error
}

// LogSink writes events to a logger; used when no database is
// configured.
type LogSink struct{ Log zerolog.Logger }

func (s LogSink) Append(_ context.Context, rec repository.ActivityRecord) error {
	s.Log.Info().Str("event_id", rec.EventID).Str("type", rec.Type).RawJSON("payload", rec.Payload).Msg("activity")
	return nil
}

// StartActivityConsumer consumes queueName until ctx is cancelled,
// redialling the broker with exponential backoff when the connection
// drops.  Messages that cannot be decoded or stored are rejected
// without requeue so a poison message cannot loop.
func StartActivityConsumer(ctx context.Context, url, queueName string, sink Sink, log zerolog.Logger) error {
	backoff := time.Second
	for {
		conn, err := amqp.Dial(url)
		if err != nil {
			log.Warn().Err(err).Dur("retry_in", backoff).Msg("activity consumer: dial failed")
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = consumeLoop(ctx, conn, queueName, sink, log)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.Warn().Err(err).Msg("activity consumer: loop ended, reconnecting")
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(2 * time.Second):
		}
	}
}

func consumeLoop(ctx context.Context, conn *amqp.Connection, queueName string, sink Sink, log zerolog.Logger) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		log.Warn().Err(err).Msg("activity consumer: set QoS failed")
	}
	if _, err := ch.QueueDeclare(queueName, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	msgs, err := ch.ConsumeWithContext(ctx, queueName, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for d := range msgs {
		if err := HandleMessage(ctx, d.Body, sink); err != nil {
			log.Error().Err(err).Msg("activity consumer: message rejected")
			_ = d.Nack(false, false)
			continue
		}
		_ = d.Ack(false)
	}
	return errors.New("deliveries channel closed")
}

// HandleMessage decodes one delivery and appends it to sink.
func HandleMessage(ctx context.Context, body []byte, sink Sink) error {
	var ev ActivityEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	if ev.ID == "" || ev.Type == "" {
		return errors.New("event without id or type")
	}
	rec := repository.ActivityRecord{
		EventID:    ev.ID,
		Type:       ev.Type,
		MovieID:    ev.MovieID,
		UserID:     ev.UserID,
		Payload:    body,
		OccurredAt: ev.OccurredAt,
	}
	if err := sink.Append(ctx, rec); err != nil {
		return fmt.Errorf("append: %w", err)
	}
	metrics.EventsConsumed.WithLabelValues(ev.Type).Inc()
	return nil
}
