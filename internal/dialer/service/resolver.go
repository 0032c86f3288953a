package service

import (
	"context"
	"strconv"

	"dialcrm_backend/internal/dialer/domain"
	"dialcrm_backend/internal/dialer/repository"
	"dialcrm_backend/platform/logger"
	"dialcrm_backend/platform/phone"
)

// Resolver turns raw queue entries into dialable leads. The notes payload is
// the primary phone channel; the numeric lead_id lookup is best effort
// because ad hoc lists enqueue synthetic string ids.
type Resolver struct {
	repo repository.PhoneReader
	log  *logger.Logger
}

// NewResolver creates a resolver backed by the leads table.
func NewResolver(repo repository.PhoneReader, log *logger.Logger) *Resolver {
	return &Resolver{repo: repo, log: log}
}

// Process performs the synchronous resolution step: if the notes payload
// carries a phone number it is attached immediately, normalized to E.164.
func (r *Resolver) Process(raw domain.SessionLead) *domain.ProcessedSessionLead {
	processed := &domain.ProcessedSessionLead{SessionLead: raw}

	notes := domain.ParseLeadNotes(raw.Notes)
	if notes.Phone != "" {
		normalized := phone.NormalizeE164(notes.Phone)
		processed.PhoneNumber = &normalized
	}

	return processed
}

// LeadDetails is the lazy resolution step, invoked only when Process left
// PhoneNumber nil. Precedence: notes.originalLeadId, then a numeric
// lead_id, then empty details.
func (r *Resolver) LeadDetails(ctx context.Context, raw domain.SessionLead) domain.LeadDetails {
	notes := domain.ParseLeadNotes(raw.Notes)

	if notes.OriginalLeadID != nil {
		details, err := r.repo.LeadPhone(ctx, *notes.OriginalLeadID)
		if err != nil {
			r.log.DatabaseError("lead phone lookup by original id", err)
			return domain.LeadDetails{}
		}
		return normalizeDetails(details)
	}

	if numericID, err := strconv.ParseInt(raw.LeadID, 10, 64); err == nil {
		details, err := r.repo.LeadPhone(ctx, numericID)
		if err != nil {
			r.log.DatabaseError("lead phone lookup by numeric id", err)
			return domain.LeadDetails{}
		}
		return normalizeDetails(details)
	}

	return domain.LeadDetails{}
}

func normalizeDetails(details domain.LeadDetails) domain.LeadDetails {
	if details.Phone1 != nil {
		normalized := phone.NormalizeE164(*details.Phone1)
		details.Phone1 = &normalized
	}
	return details
}
