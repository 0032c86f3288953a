package repository

import (
	"context"

	"dialcrm_backend/internal/dialer/domain"

	"github.com/google/uuid"
)

// =====================================
// Segregated Interfaces (Interface Segregation Principle)
// =====================================

// QueueReader provides read access to a session's dial queue.
type QueueReader interface {
	CountQueued(ctx context.Context, sessionID uuid.UUID) (int, error)
	QueueStats(ctx context.Context, sessionID uuid.UUID) (domain.QueueStats, error)
}

// LeadClaimer claims the next queued lead for a session. NextLead goes
// through the get_next_session_lead function; NextLeadDirect is the
// equivalent claim issued as a plain query, used when the function is broken.
type LeadClaimer interface {
	NextLead(ctx context.Context, sessionID uuid.UUID) (*domain.SessionLead, error)
	NextLeadDirect(ctx context.Context, sessionID, agentID uuid.UUID) (*domain.SessionLead, error)
}

// FunctionRepairer re-creates the canonical next-lead claim function.
type FunctionRepairer interface {
	RepairNextLeadFunction(ctx context.Context) (bool, error)
}

// StatusWriter updates a session lead's status and notes in one statement.
type StatusWriter interface {
	GetNotes(ctx context.Context, sessionLeadID uuid.UUID) (string, error)
	UpdateStatusAndNotes(ctx context.Context, sessionLeadID uuid.UUID, status domain.Status, notes string) error
	RequeueStale(ctx context.Context, olderThanMinutes int) (int, error)
}

// PhoneReader looks up a lead's dialable phone by its numeric id.
type PhoneReader interface {
	LeadPhone(ctx context.Context, leadID int64) (domain.LeadDetails, error)
}
