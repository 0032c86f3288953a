package transport

import (
	"time"

	"github.com/google/uuid"

	"dialcrm_backend/internal/dialer/domain"
)

// StartDialingRequest starts auto-dialing a session for the caller.
type StartDialingRequest struct {
	SessionID uuid.UUID `json:"sessionId" validate:"required"`
}

// NextLeadRequest asks for a single lead without starting the auto-dial loop.
type NextLeadRequest struct {
	SessionID uuid.UUID `json:"sessionId" validate:"required"`
}

// UpdateLeadStatusRequest marks a session lead completed or failed.
type UpdateLeadStatusRequest struct {
	SessionID uuid.UUID `json:"sessionId" validate:"required"`
	LeadID    string    `json:"leadId" validate:"required"`
	Status    string    `json:"status" validate:"required,oneof=completed failed"`
}

// SessionLeadResponse represents a claimed session lead in API responses.
type SessionLeadResponse struct {
	ID           uuid.UUID `json:"id"`
	LeadID       string    `json:"leadId"`
	SessionID    uuid.UUID `json:"sessionId"`
	Status       string    `json:"status"`
	Priority     int       `json:"priority"`
	AttemptCount int       `json:"attemptCount"`
	PhoneNumber  *string   `json:"phoneNumber,omitempty"`
}

// NextLeadResponse is the result of a manual fetch. Exhausted is true when
// the session queue has no more work.
type NextLeadResponse struct {
	Lead      *SessionLeadResponse `json:"lead"`
	Exhausted bool                 `json:"exhausted"`
}

// DialerStateResponse reports the caller's orchestrator state.
type DialerStateResponse struct {
	Active    bool       `json:"active"`
	State     string     `json:"state"`
	SessionID *uuid.UUID `json:"sessionId,omitempty"`
	AsOf      time.Time  `json:"asOf"`
}

// ToSessionLeadResponse maps a processed session lead to its API shape.
func ToSessionLeadResponse(lead *domain.ProcessedSessionLead) *SessionLeadResponse {
	if lead == nil {
		return nil
	}
	return &SessionLeadResponse{
		ID:           lead.ID,
		LeadID:       lead.LeadID,
		SessionID:    lead.SessionID,
		Status:       string(lead.Status),
		Priority:     lead.Priority,
		AttemptCount: lead.AttemptCount,
		PhoneNumber:  lead.PhoneNumber,
	}
}
