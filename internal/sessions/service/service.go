// Package service holds the dialing sessions business logic.
package service

import (
	"context"
	"strconv"
	"strings"

	"dialcrm_backend/internal/dialer/domain"
	"dialcrm_backend/internal/events"
	"dialcrm_backend/internal/sessions/repository"
	"dialcrm_backend/platform/apperr"
	"dialcrm_backend/platform/logger"
	"dialcrm_backend/platform/phone"

	"github.com/google/uuid"
)

const maxEnqueueBatch = 5000

// EnqueueLead is one lead to push into a session queue. Either LeadID (a
// stored lead) or Phone (an ad hoc number) must be set.
type EnqueueLead struct {
	LeadID   *int64
	Phone    string
	Priority int
}

// Service provides session management and queue loading.
type Service struct {
	repo  *repository.Repository
	stats *StatsCache
	bus   events.Bus
	log   *logger.Logger
}

// New creates a new sessions service.
func New(repo *repository.Repository, stats *StatsCache, bus events.Bus, log *logger.Logger) *Service {
	return &Service{repo: repo, stats: stats, bus: bus, log: log}
}

// Create starts a new dialing session.
func (s *Service) Create(ctx context.Context, name string, createdBy uuid.UUID) (*repository.Session, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperr.Validation("session name is required")
	}

	session, err := s.repo.Create(ctx, name, createdBy)
	if err != nil {
		return nil, err
	}

	s.log.Info("dialing session created", "sessionId", session.ID, "name", name)
	s.bus.Publish(ctx, events.SessionCreated{
		BaseEvent: events.NewBaseEvent(),
		SessionID: session.ID,
		Name:      name,
		CreatedBy: createdBy,
	})
	return session, nil
}

// Get fetches a single session.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*repository.Session, error) {
	return s.repo.GetByID(ctx, id)
}

// List returns all sessions.
func (s *Service) List(ctx context.Context) ([]repository.Session, error) {
	return s.repo.List(ctx)
}

// Close marks a session finished. Queued leads stay put; a closed session
// simply stops being offered to agents.
func (s *Service) Close(ctx context.Context, id uuid.UUID) error {
	return s.repo.SetStatus(ctx, id, "closed")
}

// Enqueue loads leads into the session queue. Stored leads get their id and
// any ad hoc number both recorded in the notes payload; ad hoc numbers get a
// synthetic lead id so the queue key stays unique.
func (s *Service) Enqueue(ctx context.Context, sessionID uuid.UUID, leads []EnqueueLead) (int, error) {
	if len(leads) == 0 {
		return 0, apperr.Validation("no leads to enqueue")
	}
	if len(leads) > maxEnqueueBatch {
		return 0, apperr.Validation("enqueue batch exceeds " + strconv.Itoa(maxEnqueueBatch) + " leads")
	}

	if _, err := s.repo.GetByID(ctx, sessionID); err != nil {
		return 0, err
	}

	entries := make([]repository.QueueEntry, 0, len(leads))
	for i, lead := range leads {
		entry, err := buildEntry(lead)
		if err != nil {
			return 0, apperr.Validation("lead " + strconv.Itoa(i) + ": " + err.Error())
		}
		entries = append(entries, entry)
	}

	n, err := s.repo.Enqueue(ctx, sessionID, entries)
	if err != nil {
		return 0, err
	}

	s.stats.Invalidate(ctx, sessionID)
	s.log.Info("session leads enqueued", "sessionId", sessionID, "count", n)
	s.bus.Publish(ctx, events.SessionLeadsEnqueued{
		BaseEvent: events.NewBaseEvent(),
		SessionID: sessionID,
		Count:     n,
	})
	return n, nil
}

// Stats returns queue counts for the session, served from cache when fresh.
func (s *Service) Stats(ctx context.Context, sessionID uuid.UUID) (domain.QueueStats, error) {
	if cached, ok := s.stats.Get(ctx, sessionID); ok {
		return cached, nil
	}

	stats, err := s.repo.Stats(ctx, sessionID)
	if err != nil {
		return domain.QueueStats{}, err
	}
	s.stats.Set(ctx, stats)
	return stats, nil
}

// Reset requeues all terminal leads in the session for another pass.
func (s *Service) Reset(ctx context.Context, sessionID uuid.UUID) (int, error) {
	n, err := s.repo.Reset(ctx, sessionID)
	if err != nil {
		return 0, err
	}
	s.stats.Invalidate(ctx, sessionID)
	s.log.Info("session reset", "sessionId", sessionID, "requeued", n)
	return n, nil
}

// buildEntry validates one enqueue lead and renders its queue row.
func buildEntry(lead EnqueueLead) (repository.QueueEntry, error) {
	notes := domain.LeadNotes{OriginalLeadID: lead.LeadID}

	number := strings.TrimSpace(lead.Phone)
	if number != "" {
		if !phone.IsDialable(number) {
			return repository.QueueEntry{}, errInvalidPhone
		}
		notes.Phone = phone.NormalizeE164(number)
	}

	var leadID string
	switch {
	case lead.LeadID != nil:
		leadID = strconv.FormatInt(*lead.LeadID, 10)
	case notes.Phone != "":
		// Synthetic id for ad hoc numbers; the notes payload is the only
		// place the number lives.
		leadID = "adhoc-" + uuid.NewString()
	default:
		return repository.QueueEntry{}, errEmptyLead
	}

	return repository.QueueEntry{
		LeadID:   leadID,
		Priority: lead.Priority,
		Notes:    notes.Encode(),
	}, nil
}

var (
	errInvalidPhone = apperr.Validation("phone number is not dialable")
	errEmptyLead    = apperr.Validation("lead requires a leadId or phone")
)
