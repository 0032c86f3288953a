// Package handler exposes agent registration endpoints.
package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"dialcrm_backend/internal/agents/service"
	"dialcrm_backend/internal/agents/transport"
	"dialcrm_backend/platform/httpkit"
	"dialcrm_backend/platform/validator"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
	msgInvalidID        = "invalid agent ID"
)

// Handler handles HTTP requests for agents.
type Handler struct {
	svc *service.Service
	val *validator.Validator
}

// New creates a new agents handler.
func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// Me returns the caller's agent record.
// GET /api/v1/agents/me
func (h *Handler) Me(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	agent, err := h.svc.GetByUser(c.Request.Context(), identity.UserID())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ToAgentResponse(agent))
}

// List retrieves all agents (admin only).
// GET /api/v1/admin/agents
func (h *Handler) List(c *gin.Context) {
	agents, err := h.svc.List(c.Request.Context())
	if httpkit.HandleError(c, err) {
		return
	}

	resp := make([]transport.AgentResponse, 0, len(agents))
	for i := range agents {
		resp = append(resp, transport.ToAgentResponse(&agents[i]))
	}
	httpkit.OK(c, resp)
}

// Register registers a user as a dialing agent (admin only).
// POST /api/v1/admin/agents
func (h *Handler) Register(c *gin.Context) {
	var req transport.RegisterAgentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	agent, err := h.svc.Register(c.Request.Context(), req.UserID, req.DisplayName)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, transport.ToAgentResponse(agent))
}

// Delete removes an agent registration (admin only).
// DELETE /api/v1/admin/agents/:id
func (h *Handler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return
	}

	if err := h.svc.Remove(c.Request.Context(), id); httpkit.HandleError(c, err) {
		return
	}
	c.Status(http.StatusNoContent)
}
