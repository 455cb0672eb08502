// Package service publishes catalogue activity to RabbitMQ.  Publishing
// is best effort: callers log failures and carry on, and a circuit
// breaker stops dialling a broker that keeps failing.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/iliyamo/cinema-booking/internal/config"
	"github.com/iliyamo/cinema-booking/internal/metrics"
	"github.com/iliyamo/cinema-booking/internal/queue"
)

// Events is what handlers publish through.
type Events interface {
	Publish(ctx context.Context, ev queue.ActivityEvent) error
}

// NopEvents discards every event.
type NopEvents struct{}

func (NopEvents) Publish(context.Context, queue.ActivityEvent) error { return nil }

// Sender delivers one encoded message to a queue.
type Sender interface {
	Send(ctx context.Context, queueName string, body []byte) error
	Close() error
}

// Publisher encodes events and sends them through a circuit breaker.
type Publisher struct {
	sender Sender
	queue  string
	cb     *gobreaker.CircuitBreaker[struct{}]
	log    zerolog.Logger
}

// NewPublisher returns a Publisher sending over AMQP to cfg.URL.
func NewPublisher(cfg config.BrokerConfig, log zerolog.Logger) *Publisher {
	return newPublisher(&amqpSender{url: cfg.URL}, cfg, log)
}

func newPublisher(sender Sender, cfg config.BrokerConfig, log zerolog.Logger) *Publisher {
	p := &Publisher{sender: sender, queue: cfg.Queue, log: log}
	p.cb = gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:    "activity-publisher",
		Timeout: cfg.BreakerOpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.BreakerMaxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state changed")
		},
	})
	return p
}

// Publish sends ev.  While the breaker is open it fails fast with
// gobreaker.ErrOpenState.
func (p *Publisher) Publish(ctx context.Context, ev queue.ActivityEvent) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	_, err = p.cb.Execute(func() (struct{}, error) {
		return struct{}{}, p.sender.Send(ctx, p.queue, body)
	})
	result := "ok"
	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		result = "rejected"
	case err != nil:
		result = "error"
	}
	metrics.EventsPublished.WithLabelValues(ev.Type, result).Inc()
	if err != nil {
		return fmt.Errorf("publish %s: %w", ev.Type, err)
	}
	return nil
}

// State reports the breaker state; /healthz shows it.
func (p *Publisher) State() gobreaker.State { return p.cb.State() }

func (p *Publisher) Close() error { return p.sender.Close() }

// amqpSender keeps one connection and channel open, redialling lazily
// after a failure.
type amqpSender struct {
	url string

	mu       sync.Mutex
	conn     *amqp.Connection
	ch       *amqp.Channel
	declared map[string]bool
}

func (s *amqpSender) Send(ctx context.Context, queueName string, body []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensure(queueName); err != nil {
		s.reset()
		return err
	}
	err := s.ch.PublishWithContext(ctx, "", queueName, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	})
	if err != nil {
		s.reset()
		return fmt.Errorf("amqp publish: %w", err)
	}
	return nil
}

func (s *amqpSender) ensure(queueName string) error {
	if s.conn == nil || s.conn.IsClosed() {
		conn, err := amqp.Dial(s.url)
		if err != nil {
			return fmt.Errorf("amqp dial: %w", err)
		}
		ch, err := conn.Channel()
		if err != nil {
			_ = conn.Close()
			return fmt.Errorf("amqp channel: %w", err)
		}
		s.conn, s.ch, s.declared = conn, ch, map[string]bool{}
	}
	if !s.declared[queueName] {
		if _, err := s.ch.QueueDeclare(queueName, true, false, false, false, nil); err != nil {
			return fmt.Errorf("amqp queue declare: %w", err)
		}
		s.declared[queueName] = true
	}
	return nil
}

func (s *amqpSender) reset() {
	if s.ch != nil {
		_ = s.ch.Close()
	}
	if s.conn != nil {
		_ = s.conn.Close()
	}
	s.conn, s.ch, s.declared = nil, nil, nil
}

func (s *amqpSender) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reset()
	return nil
}
