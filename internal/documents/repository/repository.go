// Package repository provides database operations for lead documents.
package repository

import (
	"context"
	"errors"
	"time"

	"dialcrm_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const documentNotFoundMsg = "document not found"

// Repository provides database operations for lead documents.
type Repository struct {
	pool *pgxpool.Pool
}

// New creates a new documents repository.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Document is a stored file attached to a lead.
type Document struct {
	ID          uuid.UUID
	LeadID      int64
	FileName    string
	FileKey     string
	ContentType string
	SizeBytes   int64
	UploadedBy  *uuid.UUID
	CreatedAt   time.Time
}

const documentColumns = "id, lead_id, file_name, file_key, content_type, size_bytes, uploaded_by, created_at"

// Create records an uploaded document.
func (r *Repository) Create(ctx context.Context, doc Document) (*Document, error) {
	var out Document
	err := r.pool.QueryRow(ctx, `
		INSERT INTO lead_documents (lead_id, file_name, file_key, content_type, size_bytes, uploaded_by)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+documentColumns,
		doc.LeadID, doc.FileName, doc.FileKey, doc.ContentType, doc.SizeBytes, doc.UploadedBy,
	).Scan(&out.ID, &out.LeadID, &out.FileName, &out.FileKey, &out.ContentType, &out.SizeBytes, &out.UploadedBy, &out.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// GetByID fetches a single document.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*Document, error) {
	var out Document
	err := r.pool.QueryRow(ctx,
		`SELECT `+documentColumns+` FROM lead_documents WHERE id = $1`, id,
	).Scan(&out.ID, &out.LeadID, &out.FileName, &out.FileKey, &out.ContentType, &out.SizeBytes, &out.UploadedBy, &out.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound(documentNotFoundMsg)
		}
		return nil, err
	}
	return &out, nil
}

// ListByLead returns all documents for a lead, newest first.
func (r *Repository) ListByLead(ctx context.Context, leadID int64) ([]Document, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+documentColumns+` FROM lead_documents WHERE lead_id = $1 ORDER BY created_at DESC`,
		leadID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		var doc Document
		if err := rows.Scan(&doc.ID, &doc.LeadID, &doc.FileName, &doc.FileKey, &doc.ContentType, &doc.SizeBytes, &doc.UploadedBy, &doc.CreatedAt); err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

// Delete removes a document record.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM lead_documents WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound(documentNotFoundMsg)
	}
	return nil
}
