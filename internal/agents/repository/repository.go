// Package repository provides database operations for dialing agents.
package repository

import (
	"context"
	"errors"
	"time"

	"dialcrm_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const agentNotFoundMsg = "agent not found"

// Repository provides database operations for agents.
type Repository struct {
	pool *pgxpool.Pool
}

// New creates a new agents repository.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Agent is a user registered to work the dialer.
type Agent struct {
	ID          uuid.UUID
	UserID      uuid.UUID
	DisplayName string
	CreatedAt   time.Time
}

// Create registers a user as a dialing agent. Registering the same user
// twice is a conflict.
func (r *Repository) Create(ctx context.Context, userID uuid.UUID, displayName string) (*Agent, error) {
	var agent Agent
	err := r.pool.QueryRow(ctx, `
		INSERT INTO agents (user_id, display_name)
		VALUES ($1, $2)
		RETURNING id, user_id, display_name, created_at`,
		userID, displayName,
	).Scan(&agent.ID, &agent.UserID, &agent.DisplayName, &agent.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, apperr.Conflict("user is already registered as an agent")
		}
		return nil, err
	}
	return &agent, nil
}

// GetByUserID looks up the agent record for a user.
func (r *Repository) GetByUserID(ctx context.Context, userID uuid.UUID) (*Agent, error) {
	var agent Agent
	err := r.pool.QueryRow(ctx, `
		SELECT id, user_id, display_name, created_at
		FROM agents
		WHERE user_id = $1`,
		userID,
	).Scan(&agent.ID, &agent.UserID, &agent.DisplayName, &agent.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound(agentNotFoundMsg)
		}
		return nil, err
	}
	return &agent, nil
}

// List returns all registered agents, newest first.
func (r *Repository) List(ctx context.Context) ([]Agent, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, user_id, display_name, created_at
		FROM agents
		ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var agents []Agent
	for rows.Next() {
		var agent Agent
		if err := rows.Scan(&agent.ID, &agent.UserID, &agent.DisplayName, &agent.CreatedAt); err != nil {
			return nil, err
		}
		agents = append(agents, agent)
	}
	return agents, rows.Err()
}

// Delete removes an agent registration.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM agents WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound(agentNotFoundMsg)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
