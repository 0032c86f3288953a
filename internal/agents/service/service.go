// Package service holds the agents business logic.
package service

import (
	"context"

	"dialcrm_backend/internal/agents/repository"
	"dialcrm_backend/platform/apperr"
	"dialcrm_backend/platform/logger"

	"github.com/google/uuid"
)

// Service provides agent registration and lookup.
type Service struct {
	repo *repository.Repository
	log  *logger.Logger
}

// New creates a new agents service.
func New(repo *repository.Repository, log *logger.Logger) *Service {
	return &Service{repo: repo, log: log}
}

// Register registers a user as a dialing agent.
func (s *Service) Register(ctx context.Context, userID uuid.UUID, displayName string) (*repository.Agent, error) {
	agent, err := s.repo.Create(ctx, userID, displayName)
	if err != nil {
		return nil, err
	}
	s.log.Info("agent registered", "agentId", agent.ID, "userId", userID)
	return agent, nil
}

// GetByUser returns the agent record for a user.
func (s *Service) GetByUser(ctx context.Context, userID uuid.UUID) (*repository.Agent, error) {
	return s.repo.GetByUserID(ctx, userID)
}

// List returns all registered agents.
func (s *Service) List(ctx context.Context) ([]repository.Agent, error) {
	return s.repo.List(ctx)
}

// Remove deletes an agent registration.
func (s *Service) Remove(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.log.Info("agent removed", "agentId", id)
	return nil
}

// AgentIDByUser resolves a user id to the agent id, reporting absence
// without an error. This is the lookup the dialer's direct-claim fallback
// depends on.
func (s *Service) AgentIDByUser(ctx context.Context, userID uuid.UUID) (uuid.UUID, bool, error) {
	agent, err := s.repo.GetByUserID(ctx, userID)
	if err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			return uuid.Nil, false, nil
		}
		return uuid.Nil, false, err
	}
	return agent.ID, true, nil
}
