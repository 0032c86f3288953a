package sse

import (
	"testing"

	"dialcrm_backend/platform/logger"

	"github.com/google/uuid"
)

func connect(s *Service, userID uuid.UUID) *client {
	cl := &client{userID: userID, events: make(chan Event, 32)}
	s.addClient(cl)
	return cl
}

func TestPublishReachesOnlyTargetUser(t *testing.T) {
	s := New(logger.New("test"))
	alice := uuid.New()
	bob := uuid.New()
	aliceConn := connect(s, alice)
	bobConn := connect(s, bob)

	s.Publish(alice, Event{Type: EventCallInitiated})

	select {
	case ev := <-aliceConn.events:
		if ev.Type != EventCallInitiated {
			t.Fatalf("unexpected event type %s", ev.Type)
		}
	default:
		t.Fatalf("target user never received the event")
	}

	select {
	case <-bobConn.events:
		t.Fatalf("event leaked to another user")
	default:
	}
}

func TestPublishFansOutToAllConnectionsOfUser(t *testing.T) {
	s := New(logger.New("test"))
	userID := uuid.New()
	tab1 := connect(s, userID)
	tab2 := connect(s, userID)

	s.Notify(userID, "error", "Could not repair the lead queue.")

	for i, conn := range []*client{tab1, tab2} {
		select {
		case ev := <-conn.events:
			if ev.Type != EventToast || ev.Level != "error" {
				t.Fatalf("connection %d got unexpected event %+v", i, ev)
			}
		default:
			t.Fatalf("connection %d never received the toast", i)
		}
	}
}

func TestBroadcastReachesEveryUser(t *testing.T) {
	s := New(logger.New("test"))
	conns := []*client{
		connect(s, uuid.New()),
		connect(s, uuid.New()),
		connect(s, uuid.New()),
	}

	s.Broadcast(Event{Type: EventLeadStatusChanged})

	for i, conn := range conns {
		select {
		case ev := <-conn.events:
			if ev.Type != EventLeadStatusChanged {
				t.Fatalf("connection %d got unexpected event %+v", i, ev)
			}
		default:
			t.Fatalf("connection %d missed the broadcast", i)
		}
	}
}

func TestPublishDropsWhenBufferFull(t *testing.T) {
	s := New(logger.New("test"))
	userID := uuid.New()
	cl := &client{userID: userID, events: make(chan Event, 1)}
	s.addClient(cl)

	s.Publish(userID, Event{Type: EventToast, Message: "first"})
	// Buffer is full; this one is dropped instead of blocking the publisher.
	s.Publish(userID, Event{Type: EventToast, Message: "second"})

	ev := <-cl.events
	if ev.Message != "first" {
		t.Fatalf("expected first event kept, got %q", ev.Message)
	}
	select {
	case ev := <-cl.events:
		t.Fatalf("expected overflow event dropped, got %q", ev.Message)
	default:
	}
}

func TestRemoveClientClosesChannel(t *testing.T) {
	s := New(logger.New("test"))
	userID := uuid.New()
	cl := connect(s, userID)

	s.removeClient(cl)

	if _, ok := <-cl.events; ok {
		t.Fatalf("expected closed channel after removal")
	}

	// Publishing after removal is a no-op.
	s.Publish(userID, Event{Type: EventToast})
}
