package transport

import (
	"time"

	"dialcrm_backend/internal/leads/repository"
)

// CreateLeadRequest contains data for creating a new lead.
type CreateLeadRequest struct {
	FirstName string  `json:"firstName" validate:"max=100"`
	LastName  string  `json:"lastName" validate:"max=100"`
	Phone1    *string `json:"phone1,omitempty" validate:"omitempty,max=32"`
	Phone2    *string `json:"phone2,omitempty" validate:"omitempty,max=32"`
	Email     *string `json:"email,omitempty" validate:"omitempty,email,max=254"`
}

// UpdateLeadRequest contains partial updates for an existing lead.
type UpdateLeadRequest struct {
	FirstName *string `json:"firstName,omitempty" validate:"omitempty,max=100"`
	LastName  *string `json:"lastName,omitempty" validate:"omitempty,max=100"`
	Phone1    *string `json:"phone1,omitempty" validate:"omitempty,max=32"`
	Phone2    *string `json:"phone2,omitempty" validate:"omitempty,max=32"`
	Email     *string `json:"email,omitempty" validate:"omitempty,email,max=254"`
}

// ListLeadsRequest carries search and paging parameters.
type ListLeadsRequest struct {
	Search string `form:"search"`
	Limit  int    `form:"limit"`
	Offset int    `form:"offset"`
}

// LeadResponse represents a lead in API responses.
type LeadResponse struct {
	ID        int64     `json:"id"`
	FirstName string    `json:"firstName"`
	LastName  string    `json:"lastName"`
	Phone1    *string   `json:"phone1,omitempty"`
	Phone2    *string   `json:"phone2,omitempty"`
	Email     *string   `json:"email,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ListLeadsResponse is a page of leads plus the total match count.
type ListLeadsResponse struct {
	Leads []LeadResponse `json:"leads"`
	Total int            `json:"total"`
}

// ToLeadResponse maps a lead record to its API shape.
func ToLeadResponse(lead *repository.Lead) LeadResponse {
	return LeadResponse{
		ID:        lead.ID,
		FirstName: lead.FirstName,
		LastName:  lead.LastName,
		Phone1:    lead.Phone1,
		Phone2:    lead.Phone2,
		Email:     lead.Email,
		CreatedAt: lead.CreatedAt,
		UpdatedAt: lead.UpdatedAt,
	}
}
