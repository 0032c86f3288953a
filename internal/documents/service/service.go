// Package service holds the lead documents business logic.
package service

import (
	"context"
	"fmt"
	"strconv"

	"dialcrm_backend/internal/adapters/storage"
	"dialcrm_backend/internal/documents/repository"
	"dialcrm_backend/internal/events"
	"dialcrm_backend/platform/apperr"
	"dialcrm_backend/platform/logger"

	"github.com/google/uuid"
)

var errLeadNotFound = apperr.NotFound("lead not found")

// LeadChecker verifies a lead exists before documents get attached to it.
type LeadChecker interface {
	Exists(ctx context.Context, leadID int64) (bool, error)
}

// Service provides document upload and retrieval for leads.
type Service struct {
	repo    *repository.Repository
	store   storage.StorageService
	bucket  string
	leads   LeadChecker
	bus     events.Bus
	log     *logger.Logger
}

// New creates a new documents service.
func New(repo *repository.Repository, store storage.StorageService, bucket string, leads LeadChecker, bus events.Bus, log *logger.Logger) *Service {
	return &Service{repo: repo, store: store, bucket: bucket, leads: leads, bus: bus, log: log}
}

// RequestUpload validates the file metadata and returns a presigned PUT URL.
// The document row is only written once the client confirms the upload.
func (s *Service) RequestUpload(ctx context.Context, leadID int64, fileName, contentType string, sizeBytes int64) (*storage.PresignedURL, error) {
	if err := s.ensureLead(ctx, leadID); err != nil {
		return nil, err
	}

	folder := "leads/" + strconv.FormatInt(leadID, 10)
	return s.store.GenerateUploadURL(ctx, s.bucket, folder, fileName, contentType, sizeBytes)
}

// Confirm records a completed upload and announces it.
func (s *Service) Confirm(ctx context.Context, doc repository.Document) (*repository.Document, error) {
	if err := s.ensureLead(ctx, doc.LeadID); err != nil {
		return nil, err
	}

	created, err := s.repo.Create(ctx, doc)
	if err != nil {
		return nil, err
	}

	s.log.Info("lead document recorded", "documentId", created.ID, "leadId", created.LeadID, "fileName", created.FileName)
	s.bus.Publish(ctx, events.DocumentUploaded{
		BaseEvent:  events.NewBaseEvent(),
		DocumentID: created.ID,
		LeadID:     created.LeadID,
		FileName:   created.FileName,
		SizeBytes:  created.SizeBytes,
	})
	return created, nil
}

// List returns all documents attached to a lead.
func (s *Service) List(ctx context.Context, leadID int64) ([]repository.Document, error) {
	return s.repo.ListByLead(ctx, leadID)
}

// DownloadURL returns a presigned GET URL for a document.
func (s *Service) DownloadURL(ctx context.Context, id uuid.UUID) (*storage.PresignedURL, error) {
	doc, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.store.GenerateDownloadURL(ctx, s.bucket, doc.FileKey)
}

// Delete removes a document from storage and the database. A storage delete
// failure is logged but does not block removing the record.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	doc, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if err := s.store.DeleteObject(ctx, s.bucket, doc.FileKey); err != nil {
		s.log.Warn("failed to delete document object", "documentId", id, "fileKey", doc.FileKey, "error", err)
	}
	return s.repo.Delete(ctx, id)
}

func (s *Service) ensureLead(ctx context.Context, leadID int64) error {
	exists, err := s.leads.Exists(ctx, leadID)
	if err != nil {
		return fmt.Errorf("lead lookup failed: %w", err)
	}
	if !exists {
		return errLeadNotFound
	}
	return nil
}
