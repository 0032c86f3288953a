// Package handler exposes dialing session endpoints.
package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"dialcrm_backend/internal/sessions/service"
	"dialcrm_backend/internal/sessions/transport"
	"dialcrm_backend/platform/httpkit"
	"dialcrm_backend/platform/validator"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
	msgInvalidID        = "invalid session ID"
)

// Handler handles HTTP requests for dialing sessions.
type Handler struct {
	svc *service.Service
	val *validator.Validator
}

// New creates a new sessions handler.
func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// List retrieves all dialing sessions.
// GET /api/v1/sessions
func (h *Handler) List(c *gin.Context) {
	sessions, err := h.svc.List(c.Request.Context())
	if httpkit.HandleError(c, err) {
		return
	}

	resp := make([]transport.SessionResponse, 0, len(sessions))
	for i := range sessions {
		resp = append(resp, transport.ToSessionResponse(&sessions[i]))
	}
	httpkit.OK(c, resp)
}

// GetByID retrieves a session by ID.
// GET /api/v1/sessions/:id
func (h *Handler) GetByID(c *gin.Context) {
	id, ok := parseSessionID(c)
	if !ok {
		return
	}

	session, err := h.svc.Get(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ToSessionResponse(session))
}

// Create starts a new dialing session.
// POST /api/v1/sessions
func (h *Handler) Create(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	var req transport.CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	session, err := h.svc.Create(c.Request.Context(), req.Name, identity.UserID())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, transport.ToSessionResponse(session))
}

// Enqueue bulk-loads leads into the session queue.
// POST /api/v1/sessions/:id/leads
func (h *Handler) Enqueue(c *gin.Context) {
	id, ok := parseSessionID(c)
	if !ok {
		return
	}

	var req transport.EnqueueLeadsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	leads := make([]service.EnqueueLead, 0, len(req.Leads))
	for _, item := range req.Leads {
		leads = append(leads, service.EnqueueLead{
			LeadID:   item.LeadID,
			Phone:    item.Phone,
			Priority: item.Priority,
		})
	}

	n, err := h.svc.Enqueue(c.Request.Context(), id, leads)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, transport.EnqueueLeadsResponse{Enqueued: n})
}

// Stats returns queue counts for the session.
// GET /api/v1/sessions/:id/stats
func (h *Handler) Stats(c *gin.Context) {
	id, ok := parseSessionID(c)
	if !ok {
		return
	}

	stats, err := h.svc.Stats(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, stats)
}

// Reset requeues all terminal leads in the session.
// POST /api/v1/sessions/:id/reset
func (h *Handler) Reset(c *gin.Context) {
	id, ok := parseSessionID(c)
	if !ok {
		return
	}

	n, err := h.svc.Reset(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ResetSessionResponse{Requeued: n})
}

// Close marks the session finished.
// POST /api/v1/sessions/:id/close
func (h *Handler) Close(c *gin.Context) {
	id, ok := parseSessionID(c)
	if !ok {
		return
	}

	if err := h.svc.Close(c.Request.Context(), id); httpkit.HandleError(c, err) {
		return
	}
	c.Status(http.StatusNoContent)
}

func parseSessionID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return uuid.Nil, false
	}
	return id, true
}
