// Package service holds the leads business logic.
package service

import (
	"context"
	"strings"

	"dialcrm_backend/internal/leads/repository"
	"dialcrm_backend/platform/apperr"
	"dialcrm_backend/platform/logger"
	"dialcrm_backend/platform/phone"
	"dialcrm_backend/platform/sanitize"
)

// Service provides lead contact management. Phone numbers are normalized to
// E.164 on every write so the dialer never has to guess at formats.
type Service struct {
	repo *repository.Repository
	log  *logger.Logger
}

// New creates a new leads service.
func New(repo *repository.Repository, log *logger.Logger) *Service {
	return &Service{repo: repo, log: log}
}

// Create validates and stores a new lead.
func (s *Service) Create(ctx context.Context, lead repository.Lead) (*repository.Lead, error) {
	lead.FirstName = sanitize.Text(strings.TrimSpace(lead.FirstName))
	lead.LastName = sanitize.Text(strings.TrimSpace(lead.LastName))
	if lead.FirstName == "" && lead.LastName == "" {
		return nil, apperr.Validation("lead requires a name")
	}

	lead.Phone1 = normalizePhone(lead.Phone1)
	lead.Phone2 = normalizePhone(lead.Phone2)
	if lead.Phone1 == nil && lead.Phone2 == nil {
		return nil, apperr.Validation("lead requires at least one phone number")
	}

	created, err := s.repo.Create(ctx, lead)
	if err != nil {
		return nil, err
	}
	s.log.Info("lead created", "leadId", created.ID)
	return created, nil
}

// Get fetches a single lead.
func (s *Service) Get(ctx context.Context, id int64) (*repository.Lead, error) {
	return s.repo.GetByID(ctx, id)
}

// List returns a page of leads matching the optional search term.
func (s *Service) List(ctx context.Context, search string, limit, offset int) ([]repository.Lead, int, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.List(ctx, search, limit, offset)
}

// Update applies a partial update, normalizing any phone fields present.
// An explicitly blank phone clears the field.
func (s *Service) Update(ctx context.Context, upd repository.LeadUpdate) (*repository.Lead, error) {
	upd.FirstName = sanitize.TextPtr(upd.FirstName)
	upd.LastName = sanitize.TextPtr(upd.LastName)
	if upd.Phone1 != nil {
		normalized := phone.NormalizeE164(*upd.Phone1)
		upd.Phone1 = &normalized
	}
	if upd.Phone2 != nil {
		normalized := phone.NormalizeE164(*upd.Phone2)
		upd.Phone2 = &normalized
	}
	return s.repo.Update(ctx, upd)
}

// Exists reports whether a lead is present. Other modules attach data to
// leads through this check.
func (s *Service) Exists(ctx context.Context, id int64) (bool, error) {
	return s.repo.Exists(ctx, id)
}

// Delete removes a lead.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.log.Info("lead deleted", "leadId", id)
	return nil
}

// normalizePhone maps blanks to nil and formats everything else to E.164
// where the number parses.
func normalizePhone(raw *string) *string {
	if raw == nil {
		return nil
	}
	normalized := phone.NormalizeE164(*raw)
	if normalized == "" {
		return nil
	}
	return &normalized
}
