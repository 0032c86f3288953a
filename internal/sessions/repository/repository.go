// Package repository provides database operations for dialing sessions and
// their lead queues.
package repository

import (
	"context"
	"errors"
	"time"

	"dialcrm_backend/internal/dialer/domain"
	"dialcrm_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const sessionNotFoundMsg = "dialing session not found"

// Repository provides database operations for sessions.
type Repository struct {
	pool *pgxpool.Pool
}

// New creates a new sessions repository.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Session is a named dialing campaign owning a lead queue.
type Session struct {
	ID        uuid.UUID
	Name      string
	CreatedBy uuid.UUID
	Status    string
	CreatedAt time.Time
}

// QueueEntry is a lead to enqueue into a session.
type QueueEntry struct {
	LeadID   string
	Priority int
	Notes    string
}

const sessionColumns = "id, name, created_by, status, created_at"

// Create inserts a new dialing session.
func (r *Repository) Create(ctx context.Context, name string, createdBy uuid.UUID) (*Session, error) {
	var s Session
	err := r.pool.QueryRow(ctx, `
		INSERT INTO dialing_sessions (name, created_by)
		VALUES ($1, $2)
		RETURNING `+sessionColumns,
		name, createdBy,
	).Scan(&s.ID, &s.Name, &s.CreatedBy, &s.Status, &s.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// GetByID fetches a single session.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*Session, error) {
	var s Session
	err := r.pool.QueryRow(ctx,
		`SELECT `+sessionColumns+` FROM dialing_sessions WHERE id = $1`, id,
	).Scan(&s.ID, &s.Name, &s.CreatedBy, &s.Status, &s.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound(sessionNotFoundMsg)
		}
		return nil, err
	}
	return &s, nil
}

// List returns all sessions, newest first.
func (r *Repository) List(ctx context.Context) ([]Session, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+sessionColumns+` FROM dialing_sessions ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []Session
	for rows.Next() {
		var s Session
		if err := rows.Scan(&s.ID, &s.Name, &s.CreatedBy, &s.Status, &s.CreatedAt); err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}

// SetStatus updates a session's lifecycle status.
func (r *Repository) SetStatus(ctx context.Context, id uuid.UUID, status string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE dialing_sessions SET status = $2 WHERE id = $1`, id, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound(sessionNotFoundMsg)
	}
	return nil
}

// Enqueue bulk-inserts queue entries for a session using COPY. Returns the
// number of rows written.
func (r *Repository) Enqueue(ctx context.Context, sessionID uuid.UUID, entries []QueueEntry) (int, error) {
	rows := make([][]interface{}, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, []interface{}{sessionID, e.LeadID, e.Priority, e.Notes})
	}

	n, err := r.pool.CopyFrom(ctx,
		pgx.Identifier{"session_leads"},
		[]string{"session_id", "lead_id", "priority", "notes"},
		pgx.CopyFromRows(rows),
	)
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

// Stats aggregates the session queue by status.
func (r *Repository) Stats(ctx context.Context, sessionID uuid.UUID) (domain.QueueStats, error) {
	stats := domain.QueueStats{SessionID: sessionID, AsOf: time.Now().UTC()}
	err := r.pool.QueryRow(ctx, `
		SELECT
			COUNT(*) FILTER (WHERE status = 'queued'),
			COUNT(*) FILTER (WHERE status = 'in_progress'),
			COUNT(*) FILTER (WHERE status = 'completed'),
			COUNT(*) FILTER (WHERE status = 'failed')
		FROM session_leads
		WHERE session_id = $1`,
		sessionID,
	).Scan(&stats.Queued, &stats.InProgress, &stats.Completed, &stats.Failed)
	if err != nil {
		return domain.QueueStats{}, err
	}
	return stats, nil
}

// Reset requeues every terminal lead in the session, clearing claims and
// bumping nothing else. Returns the number of requeued leads.
func (r *Repository) Reset(ctx context.Context, sessionID uuid.UUID) (int, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE session_leads
		SET status = 'queued', claimed_by = NULL, claimed_at = NULL, updated_at = now()
		WHERE session_id = $1 AND status IN ('completed', 'failed')`,
		sessionID)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}
