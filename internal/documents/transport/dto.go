package transport

import (
	"time"

	"github.com/google/uuid"

	"dialcrm_backend/internal/documents/repository"
)

// RequestUploadRequest asks for a presigned upload URL.
type RequestUploadRequest struct {
	FileName    string `json:"fileName" validate:"required,min=1,max=255"`
	ContentType string `json:"contentType" validate:"required,max=128"`
	SizeBytes   int64  `json:"sizeBytes" validate:"required,min=1"`
}

// ConfirmUploadRequest records a completed upload.
type ConfirmUploadRequest struct {
	FileName    string `json:"fileName" validate:"required,min=1,max=255"`
	FileKey     string `json:"fileKey" validate:"required,max=512"`
	ContentType string `json:"contentType" validate:"required,max=128"`
	SizeBytes   int64  `json:"sizeBytes" validate:"required,min=1"`
}

// DocumentResponse represents a lead document in API responses.
type DocumentResponse struct {
	ID          uuid.UUID  `json:"id"`
	LeadID      int64      `json:"leadId"`
	FileName    string     `json:"fileName"`
	ContentType string     `json:"contentType"`
	SizeBytes   int64      `json:"sizeBytes"`
	UploadedBy  *uuid.UUID `json:"uploadedBy,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
}

// ToDocumentResponse maps a document record to its API shape. The file key
// stays internal; downloads go through presigned URLs.
func ToDocumentResponse(doc *repository.Document) DocumentResponse {
	return DocumentResponse{
		ID:          doc.ID,
		LeadID:      doc.LeadID,
		FileName:    doc.FileName,
		ContentType: doc.ContentType,
		SizeBytes:   doc.SizeBytes,
		UploadedBy:  doc.UploadedBy,
		CreatedAt:   doc.CreatedAt,
	}
}
