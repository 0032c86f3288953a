package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"dialcrm_backend/internal/dialer/domain"
	"dialcrm_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

type fakeFetcherRepo struct {
	queued       int
	countErr     error
	nextErr      error
	nextLead     *domain.SessionLead
	directLead   *domain.SessionLead
	directErr    error
	repairOK     bool
	repairErr    error
	repairCalls  int
	nextCalls    int
	directCalls  int
	afterRepair  *domain.SessionLead
	repairedNext bool
}

func (r *fakeFetcherRepo) CountQueued(_ context.Context, _ uuid.UUID) (int, error) {
	return r.queued, r.countErr
}

func (r *fakeFetcherRepo) QueueStats(_ context.Context, sessionID uuid.UUID) (domain.QueueStats, error) {
	return domain.QueueStats{SessionID: sessionID}, nil
}

func (r *fakeFetcherRepo) NextLead(_ context.Context, _ uuid.UUID) (*domain.SessionLead, error) {
	r.nextCalls++
	if r.repairedNext {
		return r.afterRepair, nil
	}
	return r.nextLead, r.nextErr
}

func (r *fakeFetcherRepo) NextLeadDirect(_ context.Context, _, _ uuid.UUID) (*domain.SessionLead, error) {
	r.directCalls++
	return r.directLead, r.directErr
}

func (r *fakeFetcherRepo) RepairNextLeadFunction(_ context.Context) (bool, error) {
	r.repairCalls++
	if r.repairOK && r.repairErr == nil {
		r.repairedNext = true
	}
	return r.repairOK, r.repairErr
}

func (r *fakeFetcherRepo) LeadPhone(_ context.Context, _ int64) (domain.LeadDetails, error) {
	return domain.LeadDetails{}, nil
}

type fakeAgents struct {
	agentID uuid.UUID
	found   bool
	err     error
}

func (a *fakeAgents) AgentIDByUser(_ context.Context, _ uuid.UUID) (uuid.UUID, bool, error) {
	return a.agentID, a.found, a.err
}

type fakeNotifier struct {
	mu       sync.Mutex
	messages []string
}

func (n *fakeNotifier) Notify(_ uuid.UUID, _ string, message string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, message)
}

func (n *fakeNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.messages)
}

func ambiguousColumnErr() error {
	return &pgconn.PgError{Code: "42702", Message: "column reference \"id\" is ambiguous"}
}

func newTestFetcher(repo *fakeFetcherRepo, agents *fakeAgents, notify *fakeNotifier) *Fetcher {
	log := logger.New("test")
	resolver := NewResolver(repo, log)
	return NewFetcher(repo, agents, resolver, notify, log)
}

func queuedLead(sessionID uuid.UUID) *domain.SessionLead {
	return &domain.SessionLead{
		ID:        uuid.New(),
		LeadID:    "42",
		SessionID: sessionID,
		Status:    domain.StatusInProgress,
		Notes:     `{"phone":"+12025550142"}`,
	}
}

func TestNextLeadHappyPath(t *testing.T) {
	sessionID := uuid.New()
	repo := &fakeFetcherRepo{queued: 1, nextLead: queuedLead(sessionID)}
	f := newTestFetcher(repo, &fakeAgents{found: true}, &fakeNotifier{})

	res := f.NextLead(context.Background(), sessionID, uuid.New())
	if res.Lead == nil {
		t.Fatalf("expected a lead")
	}
	if res.Exhausted {
		t.Fatalf("expected queue not exhausted")
	}
	if res.Lead.PhoneNumber == nil || *res.Lead.PhoneNumber != "+12025550142" {
		t.Fatalf("expected notes phone to be resolved, got %v", res.Lead.PhoneNumber)
	}
	if repo.directCalls != 0 {
		t.Fatalf("direct claim should not run on the happy path")
	}
}

func TestNextLeadExhaustedOnEmptyQueue(t *testing.T) {
	repo := &fakeFetcherRepo{queued: 0}
	f := newTestFetcher(repo, &fakeAgents{found: true}, &fakeNotifier{})

	res := f.NextLead(context.Background(), uuid.New(), uuid.New())
	if !res.Exhausted {
		t.Fatalf("expected exhausted result when nothing is queued")
	}
	if repo.nextCalls != 0 {
		t.Fatalf("claim should be skipped when the pre-flight count is zero")
	}
}

func TestNextLeadExhaustedWhenClaimRacesEmpty(t *testing.T) {
	// Count said one lead, but another agent claimed it first.
	repo := &fakeFetcherRepo{queued: 1, nextLead: nil}
	f := newTestFetcher(repo, &fakeAgents{found: true}, &fakeNotifier{})

	res := f.NextLead(context.Background(), uuid.New(), uuid.New())
	if !res.Exhausted {
		t.Fatalf("expected exhausted result when the claim returns no row")
	}
}

func TestNextLeadRepairsAmbiguousColumn(t *testing.T) {
	sessionID := uuid.New()
	repo := &fakeFetcherRepo{
		queued:      1,
		nextErr:     ambiguousColumnErr(),
		repairOK:    true,
		afterRepair: queuedLead(sessionID),
	}
	f := newTestFetcher(repo, &fakeAgents{found: true}, &fakeNotifier{})

	res := f.NextLead(context.Background(), sessionID, uuid.New())
	if res.Lead == nil {
		t.Fatalf("expected a lead after self-healing repair")
	}
	if repo.repairCalls != 1 {
		t.Fatalf("expected exactly one repair call, got %d", repo.repairCalls)
	}
	if repo.nextCalls != 2 {
		t.Fatalf("expected claim retry after repair, got %d calls", repo.nextCalls)
	}
	if f.RepairAttempts() != 1 {
		t.Fatalf("expected one repair attempt recorded, got %d", f.RepairAttempts())
	}
}

func TestNextLeadRepairBudgetBounded(t *testing.T) {
	agentID := uuid.New()
	repo := &fakeFetcherRepo{
		queued:    1,
		nextErr:   ambiguousColumnErr(),
		repairOK:  false,
		directErr: errors.New("direct claim down"),
	}
	notify := &fakeNotifier{}
	f := newTestFetcher(repo, &fakeAgents{agentID: agentID, found: true}, notify)

	for i := 0; i < 5; i++ {
		f.NextLead(context.Background(), uuid.New(), uuid.New())
	}

	if repo.repairCalls != 3 {
		t.Fatalf("expected repair capped at 3 attempts, got %d", repo.repairCalls)
	}
	if f.RepairAttempts() != 3 {
		t.Fatalf("expected attempt budget fully used, got %d", f.RepairAttempts())
	}
	// Every cycle still fell through to the direct claim.
	if repo.directCalls != 5 {
		t.Fatalf("expected direct fallback on every cycle, got %d", repo.directCalls)
	}
}

func TestDirectFallbackRequiresAgent(t *testing.T) {
	repo := &fakeFetcherRepo{
		queued:  1,
		nextErr: errors.New("function get_next_session_lead does not exist"),
	}
	notify := &fakeNotifier{}
	f := newTestFetcher(repo, &fakeAgents{found: false}, notify)

	res := f.NextLead(context.Background(), uuid.New(), uuid.New())
	if res.Lead != nil || res.Exhausted {
		t.Fatalf("expected empty result without a registered agent, got %+v", res)
	}
	if repo.directCalls != 0 {
		t.Fatalf("direct claim must not run without an agent record")
	}
	if notify.count() != 1 {
		t.Fatalf("expected one not-registered toast, got %d", notify.count())
	}
}

func TestDirectFallbackClaims(t *testing.T) {
	sessionID := uuid.New()
	repo := &fakeFetcherRepo{
		queued:     1,
		nextErr:    errors.New("claim function broken"),
		directLead: queuedLead(sessionID),
	}
	f := newTestFetcher(repo, &fakeAgents{agentID: uuid.New(), found: true}, &fakeNotifier{})

	res := f.NextLead(context.Background(), sessionID, uuid.New())
	if res.Lead == nil {
		t.Fatalf("expected the direct fallback to claim a lead")
	}
	if repo.repairCalls != 0 {
		t.Fatalf("non-42702 errors must not trigger repair")
	}
}
