package telephony

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// SimulatedProvider is an in-memory provider for development and tests.
// Placed calls complete on their own after HangupDelay, firing disconnect
// handlers exactly like a status callback would.
type SimulatedProvider struct {
	// HangupDelay is how long a simulated call stays in progress.
	// Zero keeps the call in progress until Hangup is called.
	HangupDelay time.Duration

	mu          sync.Mutex
	calls       map[uuid.UUID]CallStatus
	handlers    map[int]DisconnectHandler
	nextHandler int
	seq         int
}

// NewSimulatedProvider creates a simulated provider.
func NewSimulatedProvider(hangupDelay time.Duration) *SimulatedProvider {
	return &SimulatedProvider{
		HangupDelay: hangupDelay,
		calls:       make(map[uuid.UUID]CallStatus),
		handlers:    make(map[int]DisconnectHandler),
	}
}

func (p *SimulatedProvider) Name() string { return "simulated" }

func (p *SimulatedProvider) InitializeDevice(ctx context.Context) error { return nil }

func (p *SimulatedProvider) MakeCall(ctx context.Context, req CallRequest) (CallResult, error) {
	p.mu.Lock()
	p.seq++
	callID := fmt.Sprintf("SIM%06d", p.seq)
	p.calls[req.SessionLeadID] = StatusInProgress
	p.mu.Unlock()

	if p.HangupDelay > 0 {
		leadID := req.SessionLeadID
		time.AfterFunc(p.HangupDelay, func() {
			p.Hangup(leadID, callID, StatusCompleted)
		})
	}

	return CallResult{Success: true, ProviderCallID: callID}, nil
}

func (p *SimulatedProvider) CheckCallStatus(ctx context.Context, sessionLeadID uuid.UUID) (CallStatus, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	status, ok := p.calls[sessionLeadID]
	if !ok {
		return StatusUnknown, nil
	}
	return status, nil
}

func (p *SimulatedProvider) OnDisconnect(handler DisconnectHandler) func() {
	p.mu.Lock()
	id := p.nextHandler
	p.nextHandler++
	p.handlers[id] = handler
	p.mu.Unlock()

	return func() {
		p.mu.Lock()
		delete(p.handlers, id)
		p.mu.Unlock()
	}
}

// Hangup ends a simulated call and fires disconnect handlers.
func (p *SimulatedProvider) Hangup(sessionLeadID uuid.UUID, callID string, status CallStatus) {
	p.mu.Lock()
	if _, ok := p.calls[sessionLeadID]; !ok {
		p.mu.Unlock()
		return
	}
	p.calls[sessionLeadID] = status
	handlers := make([]DisconnectHandler, 0, len(p.handlers))
	for _, h := range p.handlers {
		handlers = append(handlers, h)
	}
	p.mu.Unlock()

	event := DisconnectEvent{
		SessionLeadID:  sessionLeadID,
		ProviderCallID: callID,
		Status:         status,
	}
	for _, h := range handlers {
		h(event)
	}
}

var _ Provider = (*SimulatedProvider)(nil)
