// Package engine provides the auto-dialer bounded context: lead acquisition
// with self-healing fallback, phone resolution, and per-agent call
// orchestration.
package engine

import (
	"context"
	"sync"
	"time"

	"dialcrm_backend/internal/dialer/domain"
	"dialcrm_backend/internal/dialer/service"
	"dialcrm_backend/internal/dialer/telephony"
	"dialcrm_backend/internal/events"
	"dialcrm_backend/platform/logger"
	"dialcrm_backend/platform/phone"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

// State is the orchestrator's lifecycle state.
type State string

const (
	// StateIdle means no dial cycle is running.
	StateIdle State = "idle"
	// StateProcessing means a cycle is acquiring and resolving a lead.
	StateProcessing State = "processing"
	// StateCallPlaced means a call is up and completion is awaited.
	StateCallPlaced State = "call_placed"
)

type activeCall struct {
	ref    service.LeadRef
	phone  string
	placed time.Time
}

// Orchestrator drives the dial loop for one agent on one session. All mutable
// state (current lead, single-flight guard, exhaustion flag) is owned by the
// instance; two agents dialing the same session get independent orchestrators
// and rely on the database claim for exclusivity.
type Orchestrator struct {
	sessionID   uuid.UUID
	agentUserID uuid.UUID

	fetcher  *service.Fetcher
	resolver *service.Resolver
	status   *service.StatusUpdater
	provider telephony.Provider
	notify   service.Notifier
	bus      events.Bus
	log      *logger.Logger
	pacer    *rate.Limiter

	pollDelay time.Duration

	mu               sync.Mutex
	state            State
	active           bool
	isProcessingCall bool
	noMoreLeads      bool
	exhaustedToasted bool
	current          *activeCall
	pollTimer        *time.Timer
	unsubscribe      func()
}

// OrchestratorDeps bundles constructor dependencies.
type OrchestratorDeps struct {
	Fetcher   *service.Fetcher
	Resolver  *service.Resolver
	Status    *service.StatusUpdater
	Provider  telephony.Provider
	Notifier  service.Notifier
	Bus       events.Bus
	Logger    *logger.Logger
	Pacer     *rate.Limiter
	PollDelay time.Duration
}

// NewOrchestrator creates an idle orchestrator bound to one agent and session
// and hooks it up to the provider's disconnect stream.
func NewOrchestrator(sessionID, agentUserID uuid.UUID, deps OrchestratorDeps) *Orchestrator {
	o := &Orchestrator{
		sessionID:   sessionID,
		agentUserID: agentUserID,
		fetcher:     deps.Fetcher,
		resolver:    deps.Resolver,
		status:      deps.Status,
		provider:    deps.Provider,
		notify:      deps.Notifier,
		bus:         deps.Bus,
		log:         deps.Logger,
		pacer:       deps.Pacer,
		pollDelay:   deps.PollDelay,
		state:       StateIdle,
	}
	if o.pollDelay <= 0 {
		o.pollDelay = 10 * time.Second
	}
	o.unsubscribe = deps.Provider.OnDisconnect(o.handleDisconnect)
	return o
}

// SessionID returns the session this orchestrator dials.
func (o *Orchestrator) SessionID() uuid.UUID { return o.sessionID }

// State returns the current lifecycle state.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Start activates the orchestrator and kicks off the first cycle.
func (o *Orchestrator) Start(ctx context.Context) {
	o.mu.Lock()
	o.active = true
	o.noMoreLeads = false
	o.exhaustedToasted = false
	o.mu.Unlock()

	o.TriggerNext(ctx)
}

// Stop deactivates the orchestrator. An in-flight call still completes
// normally; no new cycle begins.
func (o *Orchestrator) Stop() {
	o.mu.Lock()
	o.active = false
	// While a call is up the poll backstop stays armed: completion must
	// still clear the in-flight guard even if the disconnect is lost.
	if o.current == nil && o.pollTimer != nil {
		o.pollTimer.Stop()
		o.pollTimer = nil
	}
	o.mu.Unlock()
}

// Close stops the orchestrator and detaches it from the provider.
func (o *Orchestrator) Close() {
	o.Stop()
	if o.unsubscribe != nil {
		o.unsubscribe()
	}
}

// TriggerNext starts a dial cycle if the guard allows it: active, not
// already processing, and the queue not known to be exhausted.
func (o *Orchestrator) TriggerNext(ctx context.Context) {
	o.mu.Lock()
	if o.isProcessingCall || !o.active || o.noMoreLeads {
		o.mu.Unlock()
		return
	}
	o.isProcessingCall = true
	o.state = StateProcessing
	dangling := o.current
	o.current = nil
	o.mu.Unlock()

	go o.processNext(context.WithoutCancel(ctx), dangling)
}

// HandleStatusChange reacts to an out-of-band session lead status change for
// this session: a terminal transition clears the exhaustion flag and
// re-triggers the loop.
func (o *Orchestrator) HandleStatusChange(ctx context.Context, newStatus string) {
	if newStatus != "completed" && newStatus != "failed" {
		return
	}

	o.mu.Lock()
	o.noMoreLeads = false
	o.exhaustedToasted = false
	o.mu.Unlock()

	o.TriggerNext(ctx)
}

func (o *Orchestrator) processNext(ctx context.Context, dangling *activeCall) {
	// A lead left over from a previous cycle is never redialed; close it out
	// before claiming the next one.
	if dangling != nil {
		o.status.UpdateStatus(ctx, dangling.ref, domain.StatusCompleted)
	}

	res := o.fetcher.NextLead(ctx, o.sessionID, o.agentUserID)
	if res.Lead == nil {
		if res.Exhausted {
			o.markExhausted(ctx)
		}
		o.backToIdle()
		return
	}

	lead := res.Lead
	ref := service.LeadRef{ID: lead.ID, SessionID: lead.SessionID, LeadID: lead.LeadID}

	phoneNumber := lead.PhoneNumber
	if phoneNumber == nil {
		details := o.resolver.LeadDetails(ctx, lead.SessionLead)
		phoneNumber = details.Phone1
	}

	if phoneNumber == nil || !phone.IsDialable(*phoneNumber) {
		o.status.UpdateStatus(ctx, ref, domain.StatusFailed)
		o.toast("warning", "Skipped a lead with no dialable phone number.")
		o.backToIdle()
		o.TriggerNext(ctx)
		return
	}

	if o.pacer != nil {
		if err := o.pacer.Wait(ctx); err != nil {
			o.backToIdle()
			return
		}
	}

	if err := o.provider.InitializeDevice(ctx); err != nil {
		o.log.Error("telephony device initialization failed", "error", err)
		o.status.UpdateStatus(ctx, ref, domain.StatusFailed)
		o.toast("error", "Could not initialize the calling device.")
		o.backToIdle()
		return
	}

	result, err := o.provider.MakeCall(ctx, telephony.CallRequest{
		PhoneNumber:   *phoneNumber,
		SessionLeadID: lead.ID,
	})
	if err != nil || !result.Success {
		reason := result.Error
		if err != nil {
			reason = err.Error()
		}
		o.log.Error("call placement failed", "error", reason, "session_lead_id", lead.ID)
		o.status.UpdateStatus(ctx, ref, domain.StatusFailed)
		o.toast("error", "Call could not be placed.")
		o.backToIdle()
		o.TriggerNext(ctx)
		return
	}

	o.log.CallEvent("initiated", lead.ID.String(), *phoneNumber)
	o.toast("info", "Call initiated.")
	if o.bus != nil {
		o.bus.Publish(ctx, events.CallInitiated{
			BaseEvent:     events.NewBaseEvent(),
			SessionLeadID: lead.ID,
			SessionID:     lead.SessionID,
			AgentUserID:   o.agentUserID,
			PhoneNumber:   *phoneNumber,
		})
	}

	call := &activeCall{ref: ref, phone: *phoneNumber, placed: time.Now()}

	o.mu.Lock()
	o.current = call
	o.state = StateCallPlaced
	// The disconnect event is the primary completion signal; this timer is
	// the backstop for callbacks that never arrive. Whichever fires first
	// cancels the other.
	o.pollTimer = time.AfterFunc(o.pollDelay, func() {
		o.pollCallStatus(ctx, ref)
	})
	o.mu.Unlock()
}

func (o *Orchestrator) pollCallStatus(ctx context.Context, ref service.LeadRef) {
	o.mu.Lock()
	if o.current == nil || o.current.ref.ID != ref.ID {
		o.mu.Unlock()
		return
	}
	o.mu.Unlock()

	status, err := o.provider.CheckCallStatus(ctx, ref.ID)
	if err != nil {
		o.log.Error("call status poll failed", "error", err, "session_lead_id", ref.ID)
	}

	if status.Ended() {
		o.completeCall(ctx, ref)
		return
	}

	// Call still up (or status unknown): re-arm the backstop.
	o.mu.Lock()
	if o.current != nil && o.current.ref.ID == ref.ID {
		o.pollTimer = time.AfterFunc(o.pollDelay, func() {
			o.pollCallStatus(ctx, ref)
		})
	}
	o.mu.Unlock()
}

func (o *Orchestrator) handleDisconnect(ev telephony.DisconnectEvent) {
	o.mu.Lock()
	match := o.current != nil && o.current.ref.ID == ev.SessionLeadID
	var ref service.LeadRef
	if match {
		ref = o.current.ref
	}
	o.mu.Unlock()
	if !match {
		return
	}

	o.completeCall(context.Background(), ref)
}

// completeCall finishes the active call exactly once: the poll timer is
// stopped, the lead is marked completed, and the loop continues. The ref
// check makes a late poll or duplicate disconnect a no-op.
func (o *Orchestrator) completeCall(ctx context.Context, ref service.LeadRef) {
	o.mu.Lock()
	if o.current == nil || o.current.ref.ID != ref.ID {
		o.mu.Unlock()
		return
	}
	o.current = nil
	if o.pollTimer != nil {
		o.pollTimer.Stop()
		o.pollTimer = nil
	}
	o.isProcessingCall = false
	o.state = StateIdle
	o.mu.Unlock()

	o.status.UpdateStatus(ctx, ref, domain.StatusCompleted)
	o.log.CallEvent("completed", ref.ID.String(), "")
	o.toast("info", "Call completed.")

	o.TriggerNext(ctx)
}

func (o *Orchestrator) markExhausted(ctx context.Context) {
	o.mu.Lock()
	o.noMoreLeads = true
	toast := !o.exhaustedToasted
	o.exhaustedToasted = true
	o.mu.Unlock()

	if toast {
		o.toast("info", "No more leads in the queue.")
		if o.bus != nil {
			o.bus.Publish(ctx, events.QueueExhausted{
				BaseEvent:   events.NewBaseEvent(),
				SessionID:   o.sessionID,
				AgentUserID: o.agentUserID,
			})
		}
	}
}

func (o *Orchestrator) backToIdle() {
	o.mu.Lock()
	o.isProcessingCall = false
	o.state = StateIdle
	o.mu.Unlock()
}

func (o *Orchestrator) toast(level, message string) {
	if o.notify != nil {
		o.notify.Notify(o.agentUserID, level, message)
	}
}
