package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/cinema-booking/internal/config"
	"github.com/iliyamo/cinema-booking/internal/queue"
)

type fakeSender struct {
	err   error
	calls int
	last  []byte
	queue string
}

func (f *fakeSender) Send(_ context.Context, q string, body []byte) error {
	f.calls++
	f.queue, f.last = q, body
	return f.err
}

func (f *fakeSender) Close() error { return nil }

func brokerCfg() config.BrokerConfig {
	return config.BrokerConfig{Queue: "booking.activity", BreakerMaxFailures: 2, BreakerOpenTimeout: time.Minute}
}

func TestPublishEncodesEvent(t *testing.T) {
	s := &fakeSender{}
	p := newPublisher(s, brokerCfg(), zerolog.Nop())

	ev := queue.NewEvent(queue.MovieRated).WithMovie(1).WithUser(2).WithRating(5)
	require.NoError(t, p.Publish(context.Background(), ev))
	assert.Equal(t, "booking.activity", s.queue)

	var got queue.ActivityEvent
	require.NoError(t, json.Unmarshal(s.last, &got))
	assert.Equal(t, ev.ID, got.ID)
	assert.Equal(t, 5, *got.Rating)
}

func TestPublishBreakerOpens(t *testing.T) {
	s := &fakeSender{err: errors.New("broker down")}
	p := newPublisher(s, brokerCfg(), zerolog.Nop())
	ctx := context.Background()
	ev := queue.NewEvent(queue.CatalogueReset)

	assert.ErrorContains(t, p.Publish(ctx, ev), "broker down")
	assert.ErrorContains(t, p.Publish(ctx, ev), "broker down")
	assert.Equal(t, gobreaker.StateOpen, p.State())

	err := p.Publish(ctx, ev)
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, 2, s.calls)
}

func TestNopEvents(t *testing.T) {
	assert.NoError(t, NopEvents{}.Publish(context.Background(), queue.NewEvent(queue.UserRemoved)))
}
