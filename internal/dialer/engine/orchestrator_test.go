package engine

import (
	"context"
	"sync"
	"testing"
	"time"

	"dialcrm_backend/internal/dialer/domain"
	"dialcrm_backend/internal/dialer/service"
	"dialcrm_backend/internal/dialer/telephony"
	"dialcrm_backend/platform/logger"

	"github.com/google/uuid"
)

// orchRepo is an in-memory queue backing one orchestrator under test.
type orchRepo struct {
	mu         sync.Mutex
	leads      []*domain.SessionLead
	claimCalls int
	statuses   map[uuid.UUID][]domain.Status
	statusCh   chan domain.Status
}

func newOrchRepo(leads ...*domain.SessionLead) *orchRepo {
	return &orchRepo{
		leads:    leads,
		statuses: make(map[uuid.UUID][]domain.Status),
		statusCh: make(chan domain.Status, 16),
	}
}

func (r *orchRepo) CountQueued(_ context.Context, _ uuid.UUID) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.leads), nil
}

func (r *orchRepo) QueueStats(_ context.Context, sessionID uuid.UUID) (domain.QueueStats, error) {
	return domain.QueueStats{SessionID: sessionID}, nil
}

func (r *orchRepo) NextLead(_ context.Context, _ uuid.UUID) (*domain.SessionLead, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.claimCalls++
	if len(r.leads) == 0 {
		return nil, nil
	}
	lead := r.leads[0]
	r.leads = r.leads[1:]
	return lead, nil
}

func (r *orchRepo) NextLeadDirect(_ context.Context, _, _ uuid.UUID) (*domain.SessionLead, error) {
	return nil, nil
}

func (r *orchRepo) RepairNextLeadFunction(_ context.Context) (bool, error) {
	return true, nil
}

func (r *orchRepo) GetNotes(_ context.Context, _ uuid.UUID) (string, error) {
	return "", nil
}

func (r *orchRepo) UpdateStatusAndNotes(_ context.Context, id uuid.UUID, status domain.Status, _ string) error {
	r.mu.Lock()
	r.statuses[id] = append(r.statuses[id], status)
	r.mu.Unlock()
	r.statusCh <- status
	return nil
}

func (r *orchRepo) RequeueStale(_ context.Context, _ int) (int, error) {
	return 0, nil
}

func (r *orchRepo) LeadPhone(_ context.Context, _ int64) (domain.LeadDetails, error) {
	return domain.LeadDetails{}, nil
}

func (r *orchRepo) requeue(lead *domain.SessionLead) {
	r.mu.Lock()
	r.leads = append(r.leads, lead)
	r.mu.Unlock()
}

func (r *orchRepo) claims() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.claimCalls
}

func (r *orchRepo) statusesFor(id uuid.UUID) []domain.Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.Status(nil), r.statuses[id]...)
}

// orchProvider accepts every call and exposes the disconnect handler so the
// test can end calls on demand.
type orchProvider struct {
	mu          sync.Mutex
	handler     telephony.DisconnectHandler
	madeCalls   chan telephony.CallRequest
	checkCalls  int
	checkResult telephony.CallStatus
}

func newOrchProvider() *orchProvider {
	return &orchProvider{
		madeCalls:   make(chan telephony.CallRequest, 16),
		checkResult: telephony.StatusInProgress,
	}
}

func (p *orchProvider) Name() string { return "test" }

func (p *orchProvider) InitializeDevice(_ context.Context) error { return nil }

func (p *orchProvider) MakeCall(_ context.Context, req telephony.CallRequest) (telephony.CallResult, error) {
	p.madeCalls <- req
	return telephony.CallResult{Success: true, ProviderCallID: "CA" + req.SessionLeadID.String()}, nil
}

func (p *orchProvider) CheckCallStatus(_ context.Context, _ uuid.UUID) (telephony.CallStatus, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.checkCalls++
	return p.checkResult, nil
}

func (p *orchProvider) OnDisconnect(handler telephony.DisconnectHandler) func() {
	p.mu.Lock()
	p.handler = handler
	p.mu.Unlock()
	return func() {}
}

func (p *orchProvider) disconnect(id uuid.UUID) {
	p.mu.Lock()
	h := p.handler
	p.mu.Unlock()
	h(telephony.DisconnectEvent{SessionLeadID: id, Status: telephony.StatusCompleted})
}

func (p *orchProvider) checks() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.checkCalls
}

type toastRecorder struct {
	mu     sync.Mutex
	toasts []string
	ch     chan string
}

func newToastRecorder() *toastRecorder {
	return &toastRecorder{ch: make(chan string, 32)}
}

func (n *toastRecorder) Notify(_ uuid.UUID, _ string, message string) {
	n.mu.Lock()
	n.toasts = append(n.toasts, message)
	n.mu.Unlock()
	n.ch <- message
}

func (n *toastRecorder) count(message string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	c := 0
	for _, m := range n.toasts {
		if m == message {
			c++
		}
	}
	return c
}

type staticAgents struct {
	found bool
}

func (a *staticAgents) AgentIDByUser(_ context.Context, _ uuid.UUID) (uuid.UUID, bool, error) {
	if !a.found {
		return uuid.Nil, false, nil
	}
	return uuid.New(), true, nil
}

func dialableLead(sessionID uuid.UUID) *domain.SessionLead {
	return &domain.SessionLead{
		ID:        uuid.New(),
		LeadID:    "42",
		SessionID: sessionID,
		Status:    domain.StatusInProgress,
		Notes:     `{"phone":"+12025550142"}`,
	}
}

func newTestOrchestrator(sessionID uuid.UUID, repo *orchRepo, provider *orchProvider, notify *toastRecorder) *Orchestrator {
	return newTestOrchestratorWithPoll(sessionID, repo, provider, notify, time.Hour)
}

func newTestOrchestratorWithPoll(sessionID uuid.UUID, repo *orchRepo, provider *orchProvider, notify *toastRecorder, pollDelay time.Duration) *Orchestrator {
	log := logger.New("test")
	resolver := service.NewResolver(repo, log)
	return NewOrchestrator(sessionID, uuid.New(), OrchestratorDeps{
		Fetcher:   service.NewFetcher(repo, &staticAgents{found: true}, resolver, notify, log),
		Resolver:  resolver,
		Status:    service.NewStatusUpdater(repo, nil, log),
		Provider:  provider,
		Notifier:  notify,
		Logger:    log,
		PollDelay: pollDelay,
	})
}

func waitFor[T any](t *testing.T, ch <-chan T, what string) T {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for %s", what)
		panic("unreachable")
	}
}

func expectNothing[T any](t *testing.T, ch <-chan T, what string) {
	t.Helper()
	select {
	case <-ch:
		t.Fatalf("unexpected %s", what)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestDialCycleCompletesOnDisconnect(t *testing.T) {
	sessionID := uuid.New()
	lead := dialableLead(sessionID)
	repo := newOrchRepo(lead)
	provider := newOrchProvider()
	notify := newToastRecorder()
	o := newTestOrchestrator(sessionID, repo, provider, notify)
	defer o.Close()

	o.Start(context.Background())

	req := waitFor(t, provider.madeCalls, "call placement")
	if req.SessionLeadID != lead.ID {
		t.Fatalf("placed call for wrong lead")
	}
	if o.State() != StateCallPlaced {
		t.Fatalf("expected call_placed state, got %s", o.State())
	}

	provider.disconnect(lead.ID)

	status := waitFor(t, repo.statusCh, "completion status write")
	if status != domain.StatusCompleted {
		t.Fatalf("expected completed, got %s", status)
	}

	// The loop continues on the drained queue and parks exhausted and idle.
	deadline := time.Now().Add(2 * time.Second)
	for o.State() != StateIdle {
		if time.Now().After(deadline) {
			t.Fatalf("orchestrator never returned to idle")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestDuplicateDisconnectIsNoOp(t *testing.T) {
	sessionID := uuid.New()
	lead := dialableLead(sessionID)
	repo := newOrchRepo(lead)
	provider := newOrchProvider()
	notify := newToastRecorder()
	o := newTestOrchestrator(sessionID, repo, provider, notify)
	defer o.Close()

	o.Start(context.Background())
	waitFor(t, provider.madeCalls, "call placement")

	provider.disconnect(lead.ID)
	waitFor(t, repo.statusCh, "first completion write")

	// Late duplicate from the provider: the ref no longer matches.
	provider.disconnect(lead.ID)
	expectNothing(t, repo.statusCh, "second completion write")

	if got := repo.statusesFor(lead.ID); len(got) != 1 {
		t.Fatalf("expected exactly one status write, got %v", got)
	}
}

func TestPollAfterDisconnectIsNoOp(t *testing.T) {
	sessionID := uuid.New()
	lead := dialableLead(sessionID)
	repo := newOrchRepo(lead)
	provider := newOrchProvider()
	notify := newToastRecorder()
	o := newTestOrchestrator(sessionID, repo, provider, notify)
	defer o.Close()

	o.Start(context.Background())
	waitFor(t, provider.madeCalls, "call placement")

	provider.disconnect(lead.ID)
	waitFor(t, repo.statusCh, "completion write")

	ref := service.LeadRef{ID: lead.ID, SessionID: lead.SessionID, LeadID: lead.LeadID}
	o.pollCallStatus(context.Background(), ref)

	if provider.checks() != 0 {
		t.Fatalf("a poll racing a finished call must not hit the provider, got %d checks", provider.checks())
	}
}

func TestPollBackstopCompletesEndedCall(t *testing.T) {
	sessionID := uuid.New()
	lead := dialableLead(sessionID)
	repo := newOrchRepo(lead)
	provider := newOrchProvider()
	provider.checkResult = telephony.StatusCompleted
	notify := newToastRecorder()
	o := newTestOrchestrator(sessionID, repo, provider, notify)
	defer o.Close()

	o.Start(context.Background())
	waitFor(t, provider.madeCalls, "call placement")

	// The disconnect callback never fires; drive the backstop by hand.
	ref := service.LeadRef{ID: lead.ID, SessionID: lead.SessionID, LeadID: lead.LeadID}
	o.pollCallStatus(context.Background(), ref)

	status := waitFor(t, repo.statusCh, "poll-driven completion write")
	if status != domain.StatusCompleted {
		t.Fatalf("expected completed, got %s", status)
	}
	if got := repo.statusesFor(lead.ID); len(got) != 1 {
		t.Fatalf("expected exactly one status write, got %v", got)
	}
}

func TestTriggerDuringCallIsSingleFlight(t *testing.T) {
	sessionID := uuid.New()
	first := dialableLead(sessionID)
	second := dialableLead(sessionID)
	repo := newOrchRepo(first, second)
	provider := newOrchProvider()
	notify := newToastRecorder()
	o := newTestOrchestrator(sessionID, repo, provider, notify)
	defer o.Close()

	o.Start(context.Background())
	req := waitFor(t, provider.madeCalls, "call placement")
	if req.SessionLeadID != first.ID {
		t.Fatalf("placed call for wrong lead")
	}

	// Nothing that wakes the loop may claim a second lead while a call is up.
	o.TriggerNext(context.Background())
	o.HandleStatusChange(context.Background(), "completed")
	expectNothing(t, provider.madeCalls, "call while another is in flight")
	if got := repo.claims(); got != 1 {
		t.Fatalf("expected a single claim during the call, got %d", got)
	}

	// Completion releases the guard and the next lead is claimed.
	provider.disconnect(first.ID)
	waitFor(t, repo.statusCh, "completion write")
	req = waitFor(t, provider.madeCalls, "call after completion")
	if req.SessionLeadID != second.ID {
		t.Fatalf("expected the second lead to be dialed after completion")
	}
}

func TestStopDuringCallStillCompletesViaBackstop(t *testing.T) {
	sessionID := uuid.New()
	lead := dialableLead(sessionID)
	repo := newOrchRepo(lead)
	provider := newOrchProvider()
	provider.checkResult = telephony.StatusCompleted
	notify := newToastRecorder()
	o := newTestOrchestratorWithPoll(sessionID, repo, provider, notify, 25*time.Millisecond)
	defer o.Close()

	o.Start(context.Background())
	waitFor(t, provider.madeCalls, "call placement")

	// Stop while the call is up and the disconnect never arrives: the poll
	// backstop must still finish the call and clear the in-flight guard.
	o.Stop()

	status := waitFor(t, repo.statusCh, "backstop completion write")
	if status != domain.StatusCompleted {
		t.Fatalf("expected completed, got %s", status)
	}
	if o.State() != StateIdle {
		t.Fatalf("expected idle after backstop completion, got %s", o.State())
	}

	// A fresh Start dials again instead of being rejected by a stale guard.
	next := dialableLead(sessionID)
	repo.requeue(next)
	o.Start(context.Background())
	req := waitFor(t, provider.madeCalls, "call after restart")
	if req.SessionLeadID != next.ID {
		t.Fatalf("expected the requeued lead to be dialed after restart")
	}
}

func TestUndialableLeadIsFailedAndSkipped(t *testing.T) {
	sessionID := uuid.New()
	bad := &domain.SessionLead{
		ID:        uuid.New(),
		LeadID:    "adhoc-" + uuid.NewString(),
		SessionID: sessionID,
		Notes:     `{"phone":"not-a-number"}`,
	}
	good := dialableLead(sessionID)
	repo := newOrchRepo(bad, good)
	provider := newOrchProvider()
	notify := newToastRecorder()
	o := newTestOrchestrator(sessionID, repo, provider, notify)
	defer o.Close()

	o.Start(context.Background())

	status := waitFor(t, repo.statusCh, "failed status for undialable lead")
	if status != domain.StatusFailed {
		t.Fatalf("expected failed, got %s", status)
	}

	// The loop moves straight on to the dialable lead.
	req := waitFor(t, provider.madeCalls, "call for the next lead")
	if req.SessionLeadID != good.ID {
		t.Fatalf("expected the good lead to be dialed next")
	}
}

func TestExhaustionToastsOnceAndRearmsOnStatusChange(t *testing.T) {
	sessionID := uuid.New()
	repo := newOrchRepo()
	provider := newOrchProvider()
	notify := newToastRecorder()
	o := newTestOrchestrator(sessionID, repo, provider, notify)
	defer o.Close()

	o.Start(context.Background())
	waitFor(t, notify.ch, "exhaustion toast")

	// Further triggers are guarded by the exhaustion flag.
	o.TriggerNext(context.Background())
	o.TriggerNext(context.Background())
	expectNothing(t, notify.ch, "repeat exhaustion toast")
	if notify.count("No more leads in the queue.") != 1 {
		t.Fatalf("expected a single exhaustion toast")
	}

	// Non-terminal changes do not wake the loop.
	o.HandleStatusChange(context.Background(), "in_progress")
	expectNothing(t, provider.madeCalls, "call after non-terminal change")

	// A terminal change clears the flag; with a lead requeued the loop dials.
	lead := dialableLead(sessionID)
	repo.requeue(lead)

	o.HandleStatusChange(context.Background(), "completed")
	req := waitFor(t, provider.madeCalls, "call after requeue")
	if req.SessionLeadID != lead.ID {
		t.Fatalf("expected the requeued lead to be dialed")
	}
}

func TestStopPreventsNewCycles(t *testing.T) {
	sessionID := uuid.New()
	repo := newOrchRepo(dialableLead(sessionID))
	provider := newOrchProvider()
	notify := newToastRecorder()
	o := newTestOrchestrator(sessionID, repo, provider, notify)
	defer o.Close()

	o.Stop()
	o.TriggerNext(context.Background())

	expectNothing(t, provider.madeCalls, "call while stopped")
	if o.State() != StateIdle {
		t.Fatalf("expected idle state while stopped")
	}
}
