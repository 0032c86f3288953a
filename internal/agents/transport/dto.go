package transport

import (
	"time"

	"github.com/google/uuid"

	"dialcrm_backend/internal/agents/repository"
)

// RegisterAgentRequest contains data for registering a user as an agent.
type RegisterAgentRequest struct {
	UserID      uuid.UUID `json:"userId" validate:"required"`
	DisplayName string    `json:"displayName" validate:"required,min=1,max=100"`
}

// AgentResponse represents an agent in API responses.
type AgentResponse struct {
	ID          uuid.UUID `json:"id"`
	UserID      uuid.UUID `json:"userId"`
	DisplayName string    `json:"displayName"`
	CreatedAt   time.Time `json:"createdAt"`
}

// ToAgentResponse maps an agent record to its API shape.
func ToAgentResponse(agent *repository.Agent) AgentResponse {
	return AgentResponse{
		ID:          agent.ID,
		UserID:      agent.UserID,
		DisplayName: agent.DisplayName,
		CreatedAt:   agent.CreatedAt,
	}
}
