// Package handler exposes the dialer's HTTP surface: session start/stop,
// manual lead fetch, per-lead status writes, and the telephony status
// callback webhook.
package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"dialcrm_backend/internal/dialer/engine"
	"dialcrm_backend/internal/dialer/domain"
	"dialcrm_backend/internal/dialer/service"
	"dialcrm_backend/internal/dialer/transport"
	"dialcrm_backend/platform/httpkit"
	"dialcrm_backend/platform/validator"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
	msgInvalidLeadID    = "invalid session lead ID"
	msgNotDialing       = "no active dialing session"
)

// StatusCallbackSink receives raw telephony status callbacks.
type StatusCallbackSink interface {
	HandleStatusCallback(callSID, rawStatus string)
}

// Handler handles HTTP requests for the power dialer.
type Handler struct {
	manager  *engine.Manager
	status   *service.StatusUpdater
	callback StatusCallbackSink
	val      *validator.Validator
}

// New creates a new dialer handler. callback may be nil when the configured
// telephony provider does not deliver status webhooks.
func New(manager *engine.Manager, status *service.StatusUpdater, callback StatusCallbackSink, val *validator.Validator) *Handler {
	return &Handler{manager: manager, status: status, callback: callback, val: val}
}

// Start begins auto-dialing a session for the authenticated agent.
// POST /api/v1/dialer/start
func (h *Handler) Start(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	var req transport.StartDialingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	orch, err := h.manager.Start(c.Request.Context(), req.SessionID, identity.UserID())
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, transport.DialerStateResponse{
		Active:    true,
		State:     string(orch.State()),
		SessionID: &req.SessionID,
		AsOf:      time.Now().UTC(),
	})
}

// Stop halts the authenticated agent's auto-dial loop.
// POST /api/v1/dialer/stop
func (h *Handler) Stop(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	if !h.manager.Stop(identity.UserID()) {
		httpkit.Error(c, http.StatusNotFound, msgNotDialing, nil)
		return
	}

	httpkit.OK(c, transport.DialerStateResponse{
		Active: false,
		State:  string(engine.StateIdle),
		AsOf:   time.Now().UTC(),
	})
}

// State reports the authenticated agent's orchestrator state.
// GET /api/v1/dialer/state
func (h *Handler) State(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	resp := transport.DialerStateResponse{
		State: string(engine.StateIdle),
		AsOf:  time.Now().UTC(),
	}
	if state, sessionID, ok := h.manager.State(identity.UserID()); ok {
		resp.Active = true
		resp.State = string(state)
		resp.SessionID = &sessionID
	}
	httpkit.OK(c, resp)
}

// Next claims a single lead from the session queue without entering the
// auto-dial loop. Used by the manual "next lead" button.
// POST /api/v1/dialer/next
func (h *Handler) Next(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	var req transport.NextLeadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	lead, exhausted, err := h.manager.FetchNext(c.Request.Context(), req.SessionID, identity.UserID())
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, transport.NextLeadResponse{
		Lead:      transport.ToSessionLeadResponse(lead),
		Exhausted: exhausted,
	})
}

// UpdateLeadStatus marks a session lead completed or failed, stamping the
// completion time into its notes.
// PATCH /api/v1/dialer/leads/:id/status
func (h *Handler) UpdateLeadStatus(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidLeadID, nil)
		return
	}

	var req transport.UpdateLeadStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	ref := service.LeadRef{ID: id, SessionID: req.SessionID, LeadID: req.LeadID}
	updated := h.status.UpdateStatus(c.Request.Context(), ref, domain.Status(req.Status))

	httpkit.OK(c, gin.H{"updated": updated})
}

// TwilioStatusCallback receives call status webhooks from Twilio.
// POST /api/v1/webhooks/twilio/status
//
// Always answers 200: Twilio retries non-2xx responses and a malformed
// callback will not get better on retry.
func (h *Handler) TwilioStatusCallback(c *gin.Context) {
	if h.callback == nil {
		c.Status(http.StatusOK)
		return
	}

	callSID := c.PostForm("CallSid")
	callStatus := c.PostForm("CallStatus")
	if callSID != "" && callStatus != "" {
		h.callback.HandleStatusCallback(callSID, callStatus)
	}
	c.Status(http.StatusOK)
}
