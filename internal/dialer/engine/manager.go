package engine

import (
	"context"
	"sync"
	"time"

	"dialcrm_backend/internal/dialer/domain"
	"dialcrm_backend/internal/dialer/repository"
	"dialcrm_backend/internal/dialer/service"
	"dialcrm_backend/internal/dialer/telephony"
	"dialcrm_backend/internal/events"
	"dialcrm_backend/platform/apperr"
	"dialcrm_backend/platform/logger"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

// ManagerRepository is the full repository surface the manager hands to the
// orchestrator parts it builds.
type ManagerRepository interface {
	repository.QueueReader
	repository.LeadClaimer
	repository.FunctionRepairer
	repository.StatusWriter
	repository.PhoneReader
}

// Manager owns one orchestrator per agent. Each orchestrator gets a fresh
// fetcher (and with it a fresh repair budget); the dial pacer is shared so
// concurrent agents stay under the outbound rate.
type Manager struct {
	repo     ManagerRepository
	agents   service.AgentDirectory
	provider telephony.Provider
	notify   service.Notifier
	bus      events.Bus
	log      *logger.Logger

	pollDelay time.Duration
	pacer     *rate.Limiter

	mu            sync.Mutex
	orchestrators map[uuid.UUID]*Orchestrator // agent user id -> orchestrator
}

// NewManager creates the orchestrator manager and subscribes it to session
// lead status changes so idle orchestrators wake up on out-of-band updates.
func NewManager(
	repo ManagerRepository,
	agents service.AgentDirectory,
	provider telephony.Provider,
	notify service.Notifier,
	bus events.Bus,
	log *logger.Logger,
	pollDelay time.Duration,
	dialRatePerMinute int,
) *Manager {
	if dialRatePerMinute <= 0 {
		dialRatePerMinute = 30
	}

	m := &Manager{
		repo:          repo,
		agents:        agents,
		provider:      provider,
		notify:        notify,
		bus:           bus,
		log:           log,
		pollDelay:     pollDelay,
		pacer:         rate.NewLimiter(rate.Limit(float64(dialRatePerMinute)/60.0), 1),
		orchestrators: make(map[uuid.UUID]*Orchestrator),
	}

	if bus != nil {
		bus.Subscribe(events.SessionLeadStatusChanged{}.EventName(), events.HandlerFunc(m.onStatusChanged))
	}

	return m
}

// Start begins auto-dialing the session for the agent. A running
// orchestrator for the same agent and session is reused; one bound to a
// different session is replaced.
func (m *Manager) Start(ctx context.Context, sessionID, agentUserID uuid.UUID) (*Orchestrator, error) {
	if _, found, err := m.agents.AgentIDByUser(ctx, agentUserID); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "agent lookup failed", err)
	} else if !found {
		return nil, apperr.Forbidden("not registered as a dialing agent")
	}

	m.mu.Lock()
	existing, ok := m.orchestrators[agentUserID]
	if ok && existing.SessionID() != sessionID {
		existing.Close()
		ok = false
	}
	if !ok {
		resolver := service.NewResolver(m.repo, m.log)
		existing = NewOrchestrator(sessionID, agentUserID, OrchestratorDeps{
			Fetcher:   service.NewFetcher(m.repo, m.agents, resolver, m.notify, m.log),
			Resolver:  resolver,
			Status:    service.NewStatusUpdater(m.repo, m.bus, m.log),
			Provider:  m.provider,
			Notifier:  m.notify,
			Bus:       m.bus,
			Logger:    m.log,
			Pacer:     m.pacer,
			PollDelay: m.pollDelay,
		})
		m.orchestrators[agentUserID] = existing
	}
	m.mu.Unlock()

	existing.Start(ctx)
	return existing, nil
}

// Stop halts auto-dialing for the agent. The in-flight call, if any, drains
// normally.
func (m *Manager) Stop(agentUserID uuid.UUID) bool {
	m.mu.Lock()
	o, ok := m.orchestrators[agentUserID]
	m.mu.Unlock()
	if !ok {
		return false
	}
	o.Stop()
	return true
}

// State reports the agent's orchestrator state, or idle when none exists.
func (m *Manager) State(agentUserID uuid.UUID) (State, uuid.UUID, bool) {
	m.mu.Lock()
	o, ok := m.orchestrators[agentUserID]
	m.mu.Unlock()
	if !ok {
		return StateIdle, uuid.Nil, false
	}
	return o.State(), o.SessionID(), true
}

// FetchNext performs a one-shot manual acquisition without placing a call.
// Used by the manual dial screen; the claim still goes through the full
// repair/fallback chain.
func (m *Manager) FetchNext(ctx context.Context, sessionID, agentUserID uuid.UUID) (*domain.ProcessedSessionLead, bool, error) {
	resolver := service.NewResolver(m.repo, m.log)
	fetcher := m.fetcherFor(agentUserID, sessionID, resolver)

	res := fetcher.NextLead(ctx, sessionID, agentUserID)
	if res.Lead == nil {
		return nil, res.Exhausted, nil
	}

	if res.Lead.PhoneNumber == nil {
		details := resolver.LeadDetails(ctx, res.Lead.SessionLead)
		res.Lead.PhoneNumber = details.Phone1
	}
	return res.Lead, false, nil
}

// fetcherFor reuses the agent's orchestrator fetcher when one is bound to
// the session, so manual fetches share the same repair budget.
func (m *Manager) fetcherFor(agentUserID, sessionID uuid.UUID, resolver *service.Resolver) *service.Fetcher {
	m.mu.Lock()
	defer m.mu.Unlock()

	if o, ok := m.orchestrators[agentUserID]; ok && o.SessionID() == sessionID {
		return o.fetcher
	}
	return service.NewFetcher(m.repo, m.agents, resolver, m.notify, m.log)
}

// onStatusChanged fans a session lead status change out to every
// orchestrator dialing that session.
func (m *Manager) onStatusChanged(ctx context.Context, event events.Event) error {
	e, ok := event.(events.SessionLeadStatusChanged)
	if !ok {
		return nil
	}

	m.mu.Lock()
	targets := make([]*Orchestrator, 0, len(m.orchestrators))
	for _, o := range m.orchestrators {
		if o.SessionID() == e.SessionID {
			targets = append(targets, o)
		}
	}
	m.mu.Unlock()

	for _, o := range targets {
		o.HandleStatusChange(ctx, e.NewStatus)
	}
	return nil
}
