package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"dialcrm_backend/internal/dialer/domain"
	"dialcrm_backend/internal/events"
	"dialcrm_backend/platform/logger"

	"github.com/google/uuid"
)

type fakeStatusRepo struct {
	notes      string
	notesErr   error
	updateErr  error
	lastStatus domain.Status
	lastNotes  string
	updates    int
}

func (r *fakeStatusRepo) GetNotes(_ context.Context, _ uuid.UUID) (string, error) {
	return r.notes, r.notesErr
}

func (r *fakeStatusRepo) UpdateStatusAndNotes(_ context.Context, _ uuid.UUID, status domain.Status, notes string) error {
	if r.updateErr != nil {
		return r.updateErr
	}
	r.updates++
	r.lastStatus = status
	r.lastNotes = notes
	return nil
}

func (r *fakeStatusRepo) RequeueStale(_ context.Context, _ int) (int, error) {
	return 0, nil
}

type capturingBus struct {
	published []events.Event
}

func (b *capturingBus) Publish(_ context.Context, event events.Event) {
	b.published = append(b.published, event)
}

func (b *capturingBus) PublishSync(_ context.Context, event events.Event) error {
	b.published = append(b.published, event)
	return nil
}

func (b *capturingBus) Subscribe(_ string, _ events.Handler) {}

func newTestStatusUpdater(repo *fakeStatusRepo, bus events.Bus) *StatusUpdater {
	u := NewStatusUpdater(repo, bus, logger.New("test"))
	u.now = func() time.Time { return time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC) }
	return u
}

func TestUpdateStatusMergesNotes(t *testing.T) {
	repo := &fakeStatusRepo{notes: `{"phone":"+12025550142","campaign":"spring-refi"}`}
	bus := &capturingBus{}
	u := newTestStatusUpdater(repo, bus)

	ref := LeadRef{ID: uuid.New(), SessionID: uuid.New(), LeadID: "42"}
	if !u.UpdateStatus(context.Background(), ref, domain.StatusCompleted) {
		t.Fatalf("expected update to succeed")
	}
	if repo.lastStatus != domain.StatusCompleted {
		t.Fatalf("expected completed status, got %s", repo.lastStatus)
	}

	var merged map[string]json.RawMessage
	if err := json.Unmarshal([]byte(repo.lastNotes), &merged); err != nil {
		t.Fatalf("merged notes are not valid JSON: %v", err)
	}
	if _, ok := merged["callCompletedAt"]; !ok {
		t.Fatalf("expected callCompletedAt in merged notes: %s", repo.lastNotes)
	}
	if _, ok := merged["phone"]; !ok {
		t.Fatalf("expected existing phone preserved: %s", repo.lastNotes)
	}
	if _, ok := merged["campaign"]; !ok {
		t.Fatalf("expected unknown field preserved: %s", repo.lastNotes)
	}

	if len(bus.published) != 1 {
		t.Fatalf("expected one status-changed event, got %d", len(bus.published))
	}
	evt, ok := bus.published[0].(events.SessionLeadStatusChanged)
	if !ok {
		t.Fatalf("unexpected event type %T", bus.published[0])
	}
	if evt.NewStatus != "completed" || evt.SessionLeadID != ref.ID {
		t.Fatalf("unexpected event payload %+v", evt)
	}
}

func TestUpdateStatusSurvivesGarbageNotes(t *testing.T) {
	repo := &fakeStatusRepo{notes: "not json at all"}
	u := newTestStatusUpdater(repo, &capturingBus{})

	ref := LeadRef{ID: uuid.New(), SessionID: uuid.New(), LeadID: "7"}
	if !u.UpdateStatus(context.Background(), ref, domain.StatusFailed) {
		t.Fatalf("expected update to succeed despite unparseable notes")
	}

	var merged map[string]json.RawMessage
	if err := json.Unmarshal([]byte(repo.lastNotes), &merged); err != nil {
		t.Fatalf("rewritten notes are not valid JSON: %v", err)
	}
	if _, ok := merged["callCompletedAt"]; !ok {
		t.Fatalf("expected callCompletedAt even when prior notes were garbage")
	}
}

func TestUpdateStatusReportsFalseOnReadError(t *testing.T) {
	repo := &fakeStatusRepo{notesErr: errors.New("row gone")}
	bus := &capturingBus{}
	u := newTestStatusUpdater(repo, bus)

	if u.UpdateStatus(context.Background(), LeadRef{ID: uuid.New()}, domain.StatusCompleted) {
		t.Fatalf("expected false when the notes read fails")
	}
	if repo.updates != 0 {
		t.Fatalf("no write should happen after a failed read")
	}
	if len(bus.published) != 0 {
		t.Fatalf("no event should be published on failure")
	}
}

func TestUpdateStatusReportsFalseOnWriteError(t *testing.T) {
	repo := &fakeStatusRepo{updateErr: errors.New("deadlock")}
	bus := &capturingBus{}
	u := newTestStatusUpdater(repo, bus)

	if u.UpdateStatus(context.Background(), LeadRef{ID: uuid.New()}, domain.StatusFailed) {
		t.Fatalf("expected false when the write fails")
	}
	if len(bus.published) != 0 {
		t.Fatalf("no event should be published on failure")
	}
}
