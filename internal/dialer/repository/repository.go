package repository

import (
	"context"
	"errors"

	"dialcrm_backend/internal/dialer/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("session lead not found")

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// CountQueued returns how many leads are still queued for the session.
// Used as the pre-flight check before claiming.
func (r *Repository) CountQueued(ctx context.Context, sessionID uuid.UUID) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM session_leads
		WHERE session_id = $1 AND status = 'queued'
	`, sessionID).Scan(&count)
	if err != nil {
		return 0, err
	}
	return count, nil
}

// QueueStats returns per-status counts for the session queue.
func (r *Repository) QueueStats(ctx context.Context, sessionID uuid.UUID) (domain.QueueStats, error) {
	stats := domain.QueueStats{SessionID: sessionID}
	err := r.pool.QueryRow(ctx, `
		SELECT
			COUNT(*) FILTER (WHERE status = 'queued'),
			COUNT(*) FILTER (WHERE status = 'in_progress'),
			COUNT(*) FILTER (WHERE status = 'completed'),
			COUNT(*) FILTER (WHERE status = 'failed')
		FROM session_leads
		WHERE session_id = $1
	`, sessionID).Scan(&stats.Queued, &stats.InProgress, &stats.Completed, &stats.Failed)
	if err != nil {
		return domain.QueueStats{}, err
	}
	return stats, nil
}

// NextLead claims the next queued lead through the get_next_session_lead
// function. Returns nil when the queue is empty. Database errors, including
// the 42702 defect signature, propagate to the caller for classification.
func (r *Repository) NextLead(ctx context.Context, sessionID uuid.UUID) (*domain.SessionLead, error) {
	var lead domain.SessionLead
	err := r.pool.QueryRow(ctx, `
		SELECT id, lead_id, session_id, status, priority, attempt_count, COALESCE(notes, '')
		FROM get_next_session_lead($1)
	`, sessionID).Scan(
		&lead.ID, &lead.LeadID, &lead.SessionID, &lead.Status,
		&lead.Priority, &lead.AttemptCount, &lead.Notes,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &lead, nil
}

// NextLeadDirect performs the same atomic claim as the function, issued as a
// plain statement. Last-resort path when the function itself is broken; also
// records which agent claimed the row.
func (r *Repository) NextLeadDirect(ctx context.Context, sessionID, agentID uuid.UUID) (*domain.SessionLead, error) {
	var lead domain.SessionLead
	err := r.pool.QueryRow(ctx, `
		UPDATE session_leads sl
		SET status        = 'in_progress',
		    attempt_count = sl.attempt_count + 1,
		    claimed_by    = $2,
		    claimed_at    = now(),
		    updated_at    = now()
		WHERE sl.id = (
			SELECT q.id
			FROM session_leads q
			WHERE q.session_id = $1 AND q.status = 'queued'
			ORDER BY q.priority DESC, q.created_at ASC
			LIMIT 1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING sl.id, sl.lead_id, sl.session_id, sl.status, sl.priority, sl.attempt_count, COALESCE(sl.notes, '')
	`, sessionID, agentID).Scan(
		&lead.ID, &lead.LeadID, &lead.SessionID, &lead.Status,
		&lead.Priority, &lead.AttemptCount, &lead.Notes,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &lead, nil
}

// RepairNextLeadFunction re-creates the canonical claim function definition.
func (r *Repository) RepairNextLeadFunction(ctx context.Context) (bool, error) {
	var ok bool
	if err := r.pool.QueryRow(ctx, `SELECT fix_get_next_lead_function()`).Scan(&ok); err != nil {
		return false, err
	}
	return ok, nil
}

// GetNotes reads the current notes blob for a session lead.
func (r *Repository) GetNotes(ctx context.Context, sessionLeadID uuid.UUID) (string, error) {
	var notes string
	err := r.pool.QueryRow(ctx, `
		SELECT COALESCE(notes, '') FROM session_leads WHERE id = $1
	`, sessionLeadID).Scan(&notes)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return notes, nil
}

// UpdateStatusAndNotes writes status and the merged notes blob in one update.
func (r *Repository) UpdateStatusAndNotes(ctx context.Context, sessionLeadID uuid.UUID, status domain.Status, notes string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE session_leads
		SET status = $2, notes = $3, updated_at = now()
		WHERE id = $1
	`, sessionLeadID, string(status), notes)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// RequeueStale returns in_progress leads older than the threshold to queued.
// Covers orchestrator instances that died mid-call.
func (r *Repository) RequeueStale(ctx context.Context, olderThanMinutes int) (int, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE session_leads
		SET status = 'queued', claimed_by = NULL, claimed_at = NULL, updated_at = now()
		WHERE status = 'in_progress'
		  AND claimed_at IS NOT NULL
		  AND claimed_at < now() - make_interval(mins => $1)
	`, olderThanMinutes)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

// RequeueIfStuck returns one specific in_progress lead to queued, but only
// when it has been claimed longer than the threshold. Reports whether the
// row was requeued. This is the per-call backstop for crashed orchestrators.
func (r *Repository) RequeueIfStuck(ctx context.Context, sessionLeadID uuid.UUID, olderThanMinutes int) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE session_leads
		SET status = 'queued', claimed_by = NULL, claimed_at = NULL, updated_at = now()
		WHERE id = $1
		  AND status = 'in_progress'
		  AND claimed_at IS NOT NULL
		  AND claimed_at < now() - make_interval(mins => $2)
	`, sessionLeadID, olderThanMinutes)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// LeadPhone looks up a lead's primary phone by numeric id.
// Returns empty details (not an error) when no row exists.
func (r *Repository) LeadPhone(ctx context.Context, leadID int64) (domain.LeadDetails, error) {
	var details domain.LeadDetails
	err := r.pool.QueryRow(ctx, `
		SELECT id, phone1 FROM leads WHERE id = $1
	`, leadID).Scan(&details.ID, &details.Phone1)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.LeadDetails{}, nil
	}
	if err != nil {
		return domain.LeadDetails{}, err
	}
	return details, nil
}
