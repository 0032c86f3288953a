// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"dialcrm_backend/platform/events"

	"github.com/google/uuid"
)

// Re-export platform types for convenience
type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
)

// Re-export platform functions
var NewBaseEvent = events.NewBaseEvent

// =============================================================================
// Dialer Domain Events
// =============================================================================

// SessionLeadStatusChanged is published whenever a session lead transitions
// status (queued -> in_progress -> completed/failed, or a requeue). SSE
// subscribers use it to re-trigger idle orchestrators after exhaustion.
type SessionLeadStatusChanged struct {
	BaseEvent
	SessionLeadID uuid.UUID `json:"sessionLeadId"`
	SessionID     uuid.UUID `json:"sessionId"`
	LeadID        string    `json:"leadId"`
	OldStatus     string    `json:"oldStatus"`
	NewStatus     string    `json:"newStatus"`
}

func (e SessionLeadStatusChanged) EventName() string { return "dialer.session_lead.status_changed" }

// CallInitiated is published when the orchestrator successfully places a call.
type CallInitiated struct {
	BaseEvent
	SessionLeadID uuid.UUID `json:"sessionLeadId"`
	SessionID     uuid.UUID `json:"sessionId"`
	AgentUserID   uuid.UUID `json:"agentUserId"`
	PhoneNumber   string    `json:"phoneNumber"`
}

func (e CallInitiated) EventName() string { return "dialer.call.initiated" }

// QueueExhausted is published when a fetch finds no queued leads left for a
// session. The flag stays set on the orchestrator until a status change
// event for the session arrives.
type QueueExhausted struct {
	BaseEvent
	SessionID   uuid.UUID `json:"sessionId"`
	AgentUserID uuid.UUID `json:"agentUserId"`
}

func (e QueueExhausted) EventName() string { return "dialer.queue.exhausted" }

// =============================================================================
// Sessions Domain Events
// =============================================================================

// SessionCreated is published when a new dialing session is created.
type SessionCreated struct {
	BaseEvent
	SessionID uuid.UUID `json:"sessionId"`
	Name      string    `json:"name"`
	CreatedBy uuid.UUID `json:"createdBy"`
}

func (e SessionCreated) EventName() string { return "sessions.created" }

// SessionLeadsEnqueued is published after a bulk enqueue of leads into a
// session queue.
type SessionLeadsEnqueued struct {
	BaseEvent
	SessionID uuid.UUID `json:"sessionId"`
	Count     int       `json:"count"`
}

func (e SessionLeadsEnqueued) EventName() string { return "sessions.leads.enqueued" }

// =============================================================================
// Documents Domain Events
// =============================================================================

// DocumentUploaded is published when a borrower uploads a document through
// the client portal.
type DocumentUploaded struct {
	BaseEvent
	DocumentID uuid.UUID `json:"documentId"`
	LeadID     int64     `json:"leadId"`
	FileName   string    `json:"fileName"`
	SizeBytes  int64     `json:"sizeBytes"`
}

func (e DocumentUploaded) EventName() string { return "documents.uploaded" }
