package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stalledPublisher struct {
	release chan struct{}
	recordingPublisher
}

func (p *stalledPublisher) Publish(ctx context.Context, key string, event DomainEvent) error {
	<-p.release
	return p.recordingPublisher.Publish(ctx, key, event)
}

func TestAsyncPublisherDoesNotWaitForBroker(t *testing.T) {
	inner := &stalledPublisher{release: make(chan struct{})}
	async := NewAsyncPublisher(inner, 8)

	start := time.Now()
	for _, typ := range []string{EventSessionCreated, EventOrderPlaced, EventSessionPaid} {
		require.NoError(t, async.Publish(context.Background(), typ, DomainEvent{Type: typ, RestaurantID: "r1"}))
	}
	assert.Less(t, time.Since(start), time.Second)
	assert.Empty(t, inner.types())

	close(inner.release)
	async.Close()
	assert.Equal(t, []string{EventSessionCreated, EventOrderPlaced, EventSessionPaid}, inner.types())

	assert.Error(t, async.Publish(context.Background(), EventSessionClosed, DomainEvent{Type: EventSessionClosed}))
}

func TestAsyncPublisherDropsWhenFull(t *testing.T) {
	inner := &stalledPublisher{release: make(chan struct{})}
	async := NewAsyncPublisher(inner, 1)
	defer func() {
		close(inner.release)
		async.Close()
	}()

	var full error
	for i := 0; i < 5 && full == nil; i++ {
		full = async.Publish(context.Background(), EventOrderPlaced, DomainEvent{Type: EventOrderPlaced})
	}
	assert.ErrorIs(t, full, ErrEventQueueFull)
}

func TestNotifierWithAsyncPublisherReturnsPromptly(t *testing.T) {
	inner := &stalledPublisher{release: make(chan struct{})}
	async := NewAsyncPublisher(inner, 8)
	notify := NewNotifier(nil, async)

	start := time.Now()
	notify.publish(DomainEvent{Type: EventSessionPaid, RestaurantID: "r1"})
	assert.Less(t, time.Since(start), time.Second)

	close(inner.release)
	async.Close()
	assert.Equal(t, []string{EventSessionPaid}, inner.types())
}
