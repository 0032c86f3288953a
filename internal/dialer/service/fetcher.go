// Package service implements the dialer core: lead acquisition with the
// repair/fallback chain, phone resolution, and terminal status writes.
package service

import (
	"context"
	"errors"
	"sync"

	"dialcrm_backend/internal/dialer/domain"
	"dialcrm_backend/internal/dialer/repository"
	"dialcrm_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

// ambiguousColumnCode is the Postgres error raised when the claim function
// has been redefined with unqualified column references.
const ambiguousColumnCode = "42702"

// maxRepairAttempts bounds self-healing per fetcher instance.
const maxRepairAttempts = 3

// AgentDirectory resolves the dialing agent record for a user. The direct
// claim fallback requires a registered agent; this is its authorization check.
type AgentDirectory interface {
	AgentIDByUser(ctx context.Context, userID uuid.UUID) (uuid.UUID, bool, error)
}

// Notifier delivers user-facing toasts. Implemented by the SSE service.
type Notifier interface {
	Notify(userID uuid.UUID, level, message string)
}

// FetcherRepository is the repository surface the fetcher needs.
type FetcherRepository interface {
	repository.QueueReader
	repository.LeadClaimer
	repository.FunctionRepairer
}

// FetchResult is the outcome of one acquisition attempt. Lead is nil when no
// lead is available; Exhausted marks the queue as drained so the caller can
// park until an external status change arrives.
type FetchResult struct {
	Lead      *domain.ProcessedSessionLead
	Exhausted bool
}

// Fetcher acquires the next queued lead for a session. One instance belongs
// to one orchestrator; the repair-attempt budget is scoped to that instance.
// No method returns an error: every failure in the chain degrades to
// "no lead available" after logging, per the dialer's failure policy.
type Fetcher struct {
	repo     FetcherRepository
	agents   AgentDirectory
	resolver *Resolver
	notify   Notifier
	log      *logger.Logger

	mu             sync.Mutex
	repairAttempts int
}

// NewFetcher creates a fetcher with a fresh repair budget.
func NewFetcher(repo FetcherRepository, agents AgentDirectory, resolver *Resolver, notify Notifier, log *logger.Logger) *Fetcher {
	return &Fetcher{
		repo:     repo,
		agents:   agents,
		resolver: resolver,
		notify:   notify,
		log:      log,
	}
}

// NextLead runs the acquisition chain: pre-flight count, claim through the
// database function, self-healing repair plus one retry on the 42702
// signature, and the direct-query claim as last resort.
func (f *Fetcher) NextLead(ctx context.Context, sessionID, agentUserID uuid.UUID) FetchResult {
	queued, err := f.repo.CountQueued(ctx, sessionID)
	if err != nil {
		// The count is advisory; the claim below is authoritative.
		f.log.DatabaseError("count queued leads", err)
	} else if queued == 0 {
		return FetchResult{Exhausted: true}
	}

	lead, err := f.repo.NextLead(ctx, sessionID)
	if err == nil {
		if lead == nil {
			return FetchResult{Exhausted: true}
		}
		return FetchResult{Lead: f.resolver.Process(*lead)}
	}

	if isAmbiguousColumn(err) && f.tryRepair(ctx, agentUserID) {
		lead, err = f.repo.NextLead(ctx, sessionID)
		if err == nil {
			if lead == nil {
				return FetchResult{Exhausted: true}
			}
			return FetchResult{Lead: f.resolver.Process(*lead)}
		}
		f.log.Error("next lead retry after repair failed", "error", err, "session_id", sessionID)
	} else {
		f.log.Error("next lead claim failed", "error", err, "session_id", sessionID)
	}

	return f.nextLeadDirect(ctx, sessionID, agentUserID)
}

// tryRepair invokes the repair function once, bounded by the per-instance
// budget. Returns true only when the repair reported success.
func (f *Fetcher) tryRepair(ctx context.Context, agentUserID uuid.UUID) bool {
	f.mu.Lock()
	if f.repairAttempts >= maxRepairAttempts {
		f.mu.Unlock()
		return false
	}
	f.repairAttempts++
	attempt := f.repairAttempts
	f.mu.Unlock()

	ok, err := f.repo.RepairNextLeadFunction(ctx)
	if err != nil || !ok {
		reason := "repair reported failure"
		if err != nil {
			reason = err.Error()
		}
		f.log.DialerRepair(attempt, false, reason)
		if f.notify != nil {
			f.notify.Notify(agentUserID, "error", "Could not repair the lead queue. Falling back to direct lookup.")
		}
		return false
	}

	f.log.DialerRepair(attempt, true, "")
	return true
}

// nextLeadDirect is the last-resort claim. It requires a registered dialing
// agent; without one it notifies and stops without touching the queue.
func (f *Fetcher) nextLeadDirect(ctx context.Context, sessionID, agentUserID uuid.UUID) FetchResult {
	agentID, found, err := f.agents.AgentIDByUser(ctx, agentUserID)
	if err != nil {
		f.log.DatabaseError("agent lookup for direct claim", err)
		return FetchResult{}
	}
	if !found {
		if f.notify != nil {
			f.notify.Notify(agentUserID, "error", "You are not registered as a dialing agent. Contact an administrator.")
		}
		return FetchResult{}
	}

	lead, err := f.repo.NextLeadDirect(ctx, sessionID, agentID)
	if err != nil {
		f.log.DatabaseError("direct next lead claim", err)
		return FetchResult{}
	}
	if lead == nil {
		return FetchResult{Exhausted: true}
	}
	return FetchResult{Lead: f.resolver.Process(*lead)}
}

// RepairAttempts reports how much of the repair budget has been used.
func (f *Fetcher) RepairAttempts() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.repairAttempts
}

func isAmbiguousColumn(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == ambiguousColumnCode
}
