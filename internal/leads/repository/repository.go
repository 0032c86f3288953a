// Package repository provides database operations for leads.
package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"dialcrm_backend/platform/apperr"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"
)

const leadNotFoundMsg = "lead not found"

// Repository provides database operations for leads.
type Repository struct {
	pool *pgxpool.Pool
}

// New creates a new leads repository.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Lead is a CRM contact reachable by the dialer.
type Lead struct {
	ID        int64
	FirstName string
	LastName  string
	Phone1    *string
	Phone2    *string
	Email     *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// LeadUpdate carries partial updates; nil fields are left untouched.
type LeadUpdate struct {
	ID        int64
	FirstName *string
	LastName  *string
	Phone1    *string
	Phone2    *string
	Email     *string
}

const leadColumns = "id, first_name, last_name, phone1, phone2, email, created_at, updated_at"

// Create inserts a new lead.
func (r *Repository) Create(ctx context.Context, lead Lead) (*Lead, error) {
	var out Lead
	err := r.pool.QueryRow(ctx, `
		INSERT INTO leads (first_name, last_name, phone1, phone2, email)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+leadColumns,
		lead.FirstName, lead.LastName, lead.Phone1, lead.Phone2, lead.Email,
	).Scan(&out.ID, &out.FirstName, &out.LastName, &out.Phone1, &out.Phone2, &out.Email, &out.CreatedAt, &out.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// GetByID fetches a single lead.
func (r *Repository) GetByID(ctx context.Context, id int64) (*Lead, error) {
	var out Lead
	err := r.pool.QueryRow(ctx,
		`SELECT `+leadColumns+` FROM leads WHERE id = $1`, id,
	).Scan(&out.ID, &out.FirstName, &out.LastName, &out.Phone1, &out.Phone2, &out.Email, &out.CreatedAt, &out.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound(leadNotFoundMsg)
		}
		return nil, err
	}
	return &out, nil
}

// List returns a page of leads with an optional case-insensitive name or
// phone search, plus the total match count.
func (r *Repository) List(ctx context.Context, search string, limit, offset int) ([]Lead, int, error) {
	where := ""
	args := []interface{}{}
	if search != "" {
		where = `WHERE first_name ILIKE $1 OR last_name ILIKE $1 OR phone1 LIKE $2 OR phone2 LIKE $2`
		pattern := "%" + strings.TrimSpace(search) + "%"
		args = append(args, pattern, pattern)
	}

	query := fmt.Sprintf(`SELECT %s FROM leads %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		leadColumns, where, len(args)+1, len(args)+2)
	pageArgs := append(append([]interface{}{}, args...), limit, offset)

	// Count and page run concurrently; the pool hands each its own conn.
	g, gctx := errgroup.WithContext(ctx)

	var total int
	g.Go(func() error {
		return r.pool.QueryRow(gctx, `SELECT COUNT(*) FROM leads `+where, args...).Scan(&total)
	})

	var leads []Lead
	g.Go(func() error {
		rows, err := r.pool.Query(gctx, query, pageArgs...)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var lead Lead
			if err := rows.Scan(&lead.ID, &lead.FirstName, &lead.LastName, &lead.Phone1, &lead.Phone2, &lead.Email, &lead.CreatedAt, &lead.UpdatedAt); err != nil {
				return err
			}
			leads = append(leads, lead)
		}
		return rows.Err()
	})

	if err := g.Wait(); err != nil {
		return nil, 0, err
	}
	return leads, total, nil
}

// Update applies the non-nil fields of upd and returns the updated row.
func (r *Repository) Update(ctx context.Context, upd LeadUpdate) (*Lead, error) {
	sets := []string{"updated_at = now()"}
	args := []interface{}{}
	add := func(col string, val interface{}) {
		args = append(args, val)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	if upd.FirstName != nil {
		add("first_name", *upd.FirstName)
	}
	if upd.LastName != nil {
		add("last_name", *upd.LastName)
	}
	if upd.Phone1 != nil {
		add("phone1", nullIfEmpty(*upd.Phone1))
	}
	if upd.Phone2 != nil {
		add("phone2", nullIfEmpty(*upd.Phone2))
	}
	if upd.Email != nil {
		add("email", nullIfEmpty(*upd.Email))
	}

	args = append(args, upd.ID)
	query := fmt.Sprintf(`UPDATE leads SET %s WHERE id = $%d RETURNING %s`,
		strings.Join(sets, ", "), len(args), leadColumns)

	var out Lead
	err := r.pool.QueryRow(ctx, query, args...).
		Scan(&out.ID, &out.FirstName, &out.LastName, &out.Phone1, &out.Phone2, &out.Email, &out.CreatedAt, &out.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound(leadNotFoundMsg)
		}
		return nil, err
	}
	return &out, nil
}

// Exists reports whether a lead row is present.
func (r *Repository) Exists(ctx context.Context, id int64) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM leads WHERE id = $1)`, id,
	).Scan(&exists)
	return exists, err
}

// nullIfEmpty maps "" to NULL so cleared fields do not linger as empty text.
func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Delete removes a lead and, via cascade, its documents. Queue entries
// reference leads by untyped text id and are left alone.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM leads WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound(leadNotFoundMsg)
	}
	return nil
}
