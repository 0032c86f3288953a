// Package handler exposes lead CRUD endpoints.
package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"dialcrm_backend/internal/leads/repository"
	"dialcrm_backend/internal/leads/service"
	"dialcrm_backend/internal/leads/transport"
	"dialcrm_backend/platform/httpkit"
	"dialcrm_backend/platform/validator"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
	msgInvalidID        = "invalid lead ID"
)

// Handler handles HTTP requests for leads.
type Handler struct {
	svc *service.Service
	val *validator.Validator
}

// New creates a new leads handler.
func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// List retrieves leads with optional search and paging.
// GET /api/v1/leads
func (h *Handler) List(c *gin.Context) {
	var req transport.ListLeadsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	leads, total, err := h.svc.List(c.Request.Context(), req.Search, req.Limit, req.Offset)
	if httpkit.HandleError(c, err) {
		return
	}

	resp := transport.ListLeadsResponse{
		Leads: make([]transport.LeadResponse, 0, len(leads)),
		Total: total,
	}
	for i := range leads {
		resp.Leads = append(resp.Leads, transport.ToLeadResponse(&leads[i]))
	}
	httpkit.OK(c, resp)
}

// GetByID retrieves a lead by ID.
// GET /api/v1/leads/:id
func (h *Handler) GetByID(c *gin.Context) {
	id, ok := parseLeadID(c)
	if !ok {
		return
	}

	lead, err := h.svc.Get(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ToLeadResponse(lead))
}

// Create stores a new lead.
// POST /api/v1/leads
func (h *Handler) Create(c *gin.Context) {
	var req transport.CreateLeadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	lead, err := h.svc.Create(c.Request.Context(), repository.Lead{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Phone1:    req.Phone1,
		Phone2:    req.Phone2,
		Email:     req.Email,
	})
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, transport.ToLeadResponse(lead))
}

// Update applies a partial update to a lead.
// PUT /api/v1/leads/:id
func (h *Handler) Update(c *gin.Context) {
	id, ok := parseLeadID(c)
	if !ok {
		return
	}

	var req transport.UpdateLeadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	lead, err := h.svc.Update(c.Request.Context(), repository.LeadUpdate{
		ID:        id,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Phone1:    req.Phone1,
		Phone2:    req.Phone2,
		Email:     req.Email,
	})
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ToLeadResponse(lead))
}

// Delete removes a lead.
// DELETE /api/v1/leads/:id
func (h *Handler) Delete(c *gin.Context) {
	id, ok := parseLeadID(c)
	if !ok {
		return
	}

	if err := h.svc.Delete(c.Request.Context(), id); httpkit.HandleError(c, err) {
		return
	}
	c.Status(http.StatusNoContent)
}

func parseLeadID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return 0, false
	}
	return id, true
}
