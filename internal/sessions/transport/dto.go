package transport

import (
	"time"

	"github.com/google/uuid"

	"dialcrm_backend/internal/sessions/repository"
)

// CreateSessionRequest contains data for creating a new dialing session.
type CreateSessionRequest struct {
	Name string `json:"name" validate:"required,min=1,max=200"`
}

// EnqueueLeadItem is one lead in a bulk enqueue request.
type EnqueueLeadItem struct {
	LeadID   *int64 `json:"leadId,omitempty"`
	Phone    string `json:"phone,omitempty" validate:"omitempty,max=32"`
	Priority int    `json:"priority" validate:"min=0,max=100"`
}

// EnqueueLeadsRequest bulk-loads leads into a session queue.
type EnqueueLeadsRequest struct {
	Leads []EnqueueLeadItem `json:"leads" validate:"required,min=1,dive"`
}

// EnqueueLeadsResponse reports how many queue entries were written.
type EnqueueLeadsResponse struct {
	Enqueued int `json:"enqueued"`
}

// ResetSessionResponse reports how many leads were requeued.
type ResetSessionResponse struct {
	Requeued int `json:"requeued"`
}

// SessionResponse represents a dialing session in API responses.
type SessionResponse struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	CreatedBy uuid.UUID `json:"createdBy"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
}

// ToSessionResponse maps a session record to its API shape.
func ToSessionResponse(s *repository.Session) SessionResponse {
	return SessionResponse{
		ID:        s.ID,
		Name:      s.Name,
		CreatedBy: s.CreatedBy,
		Status:    s.Status,
		CreatedAt: s.CreatedAt,
	}
}
