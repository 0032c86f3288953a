// Package handler exposes lead document endpoints.
package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"dialcrm_backend/internal/documents/repository"
	"dialcrm_backend/internal/documents/service"
	"dialcrm_backend/internal/documents/transport"
	"dialcrm_backend/platform/httpkit"
	"dialcrm_backend/platform/validator"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
	msgInvalidLeadID    = "invalid lead ID"
	msgInvalidDocID     = "invalid document ID"
)

// Handler handles HTTP requests for lead documents.
type Handler struct {
	svc *service.Service
	val *validator.Validator
}

// New creates a new documents handler.
func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// RequestUpload returns a presigned PUT URL for a new document.
// POST /api/v1/leads/:id/documents/upload-url
func (h *Handler) RequestUpload(c *gin.Context) {
	leadID, ok := parseLeadID(c)
	if !ok {
		return
	}

	var req transport.RequestUploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	presigned, err := h.svc.RequestUpload(c.Request.Context(), leadID, req.FileName, req.ContentType, req.SizeBytes)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, presigned)
}

// Confirm records a completed upload.
// POST /api/v1/leads/:id/documents
func (h *Handler) Confirm(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	leadID, ok := parseLeadID(c)
	if !ok {
		return
	}

	var req transport.ConfirmUploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	uploadedBy := identity.UserID()
	doc, err := h.svc.Confirm(c.Request.Context(), repository.Document{
		LeadID:      leadID,
		FileName:    req.FileName,
		FileKey:     req.FileKey,
		ContentType: req.ContentType,
		SizeBytes:   req.SizeBytes,
		UploadedBy:  &uploadedBy,
	})
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, transport.ToDocumentResponse(doc))
}

// List returns all documents for a lead.
// GET /api/v1/leads/:id/documents
func (h *Handler) List(c *gin.Context) {
	leadID, ok := parseLeadID(c)
	if !ok {
		return
	}

	docs, err := h.svc.List(c.Request.Context(), leadID)
	if httpkit.HandleError(c, err) {
		return
	}

	resp := make([]transport.DocumentResponse, 0, len(docs))
	for i := range docs {
		resp = append(resp, transport.ToDocumentResponse(&docs[i]))
	}
	httpkit.OK(c, resp)
}

// Download returns a presigned GET URL for a document.
// GET /api/v1/documents/:id/download
func (h *Handler) Download(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidDocID, nil)
		return
	}

	presigned, err := h.svc.DownloadURL(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, presigned)
}

// Delete removes a document.
// DELETE /api/v1/documents/:id
func (h *Handler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidDocID, nil)
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
		httpkit.Error(c, http.StatusBadRequest, msgInvalidLeadID, nil)
		return 0, false
	}
	return id, true
}
