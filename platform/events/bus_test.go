package events

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"dialcrm_backend/platform/logger"
)

type testEvent struct {
	BaseEvent
	name string
}

func (e testEvent) EventName() string { return e.name }

func TestPublishSyncDeliversToAllSubscribers(t *testing.T) {
	bus := NewInMemoryBus(logger.New("test"))

	var calls int32
	for i := 0; i < 3; i++ {
		bus.Subscribe("thing.happened", HandlerFunc(func(_ context.Context, _ Event) error {
			atomic.AddInt32(&calls, 1)
			return nil
		}))
	}

	if err := bus.PublishSync(context.Background(), testEvent{NewBaseEvent(), "thing.happened"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := atomic.LoadInt32(&calls); got != 3 {
		t.Fatalf("expected 3 handler calls, got %d", got)
	}
}

func TestPublishSyncJoinsHandlerErrors(t *testing.T) {
	bus := NewInMemoryBus(logger.New("test"))

	bus.Subscribe("thing.happened", HandlerFunc(func(_ context.Context, _ Event) error {
		return errors.New("first failure")
	}))
	bus.Subscribe("thing.happened", HandlerFunc(func(_ context.Context, _ Event) error {
		return nil
	}))

	err := bus.PublishSync(context.Background(), testEvent{NewBaseEvent(), "thing.happened"})
	if err == nil {
		t.Fatalf("expected joined handler error")
	}
}

func TestPublishIsAsyncAndScoped(t *testing.T) {
	bus := NewInMemoryBus(logger.New("test"))

	delivered := make(chan string, 2)
	bus.Subscribe("a", HandlerFunc(func(_ context.Context, e Event) error {
		delivered <- e.EventName()
		return nil
	}))

	// Publishing an event nobody subscribed to is a no-op.
	bus.Publish(context.Background(), testEvent{NewBaseEvent(), "b"})
	bus.Publish(context.Background(), testEvent{NewBaseEvent(), "a"})

	select {
	case name := <-delivered:
		if name != "a" {
			t.Fatalf("delivered wrong event %q", name)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("async delivery never happened")
	}

	select {
	case name := <-delivered:
		t.Fatalf("unexpected extra delivery %q", name)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestPublishSurvivesCanceledContext(t *testing.T) {
	bus := NewInMemoryBus(logger.New("test"))

	done := make(chan error, 1)
	bus.Subscribe("a", HandlerFunc(func(ctx context.Context, _ Event) error {
		done <- ctx.Err()
		return nil
	}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	bus.Publish(ctx, testEvent{NewBaseEvent(), "a"})

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("handler context should outlive the publisher's: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("handler never ran")
	}
}
