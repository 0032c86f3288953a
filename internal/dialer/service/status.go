package service

import (
	"context"
	"time"

	"dialcrm_backend/internal/dialer/domain"
	"dialcrm_backend/internal/dialer/repository"
	"dialcrm_backend/internal/events"
	"dialcrm_backend/platform/logger"

	"github.com/google/uuid"
)

// LeadRef identifies a session lead for a status write. SessionID and LeadID
// ride along so the status-change event can be published without a re-read.
type LeadRef struct {
	ID        uuid.UUID
	SessionID uuid.UUID
	LeadID    string
}

// StatusUpdater persists terminal statuses on session leads, merging the
// completion timestamp into the existing notes payload. Writes are
// non-throwing: any failure is logged and reported as false.
type StatusUpdater struct {
	repo repository.StatusWriter
	bus  events.Bus
	log  *logger.Logger
	now  func() time.Time
}

// NewStatusUpdater creates a status updater.
func NewStatusUpdater(repo repository.StatusWriter, bus events.Bus, log *logger.Logger) *StatusUpdater {
	return &StatusUpdater{
		repo: repo,
		bus:  bus,
		log:  log,
		now:  time.Now,
	}
}

// UpdateStatus writes the status and the merged notes in a single update and
// publishes the status change. Returns false on any error.
func (u *StatusUpdater) UpdateStatus(ctx context.Context, ref LeadRef, status domain.Status) bool {
	raw, err := u.repo.GetNotes(ctx, ref.ID)
	if err != nil {
		u.log.DatabaseError("read session lead notes", err)
		return false
	}

	notes := domain.ParseLeadNotes(raw).WithCompletedAt(u.now())

	if err := u.repo.UpdateStatusAndNotes(ctx, ref.ID, status, notes.Encode()); err != nil {
		u.log.DatabaseError("update session lead status", err)
		return false
	}

	if u.bus != nil {
		u.bus.Publish(ctx, events.SessionLeadStatusChanged{
			BaseEvent:     events.NewBaseEvent(),
			SessionLeadID: ref.ID,
			SessionID:     ref.SessionID,
			LeadID:        ref.LeadID,
			OldStatus:     string(domain.StatusInProgress),
			NewStatus:     string(status),
		})
	}

	return true
}
