// Package telephony abstracts the outbound call provider behind a
// provider-agnostic interface. No provider SDK or REST calls outside the
// adapters in this package.
package telephony

import (
	"context"

	"github.com/google/uuid"
)

// CallStatus is the provider-agnostic state of a placed call.
type CallStatus string

const (
	StatusQueued     CallStatus = "queued"
	StatusRinging    CallStatus = "ringing"
	StatusInProgress CallStatus = "in-progress"
	StatusCompleted  CallStatus = "completed"
	StatusBusy       CallStatus = "busy"
	StatusNoAnswer   CallStatus = "no-answer"
	StatusFailed     CallStatus = "failed"
	StatusCanceled   CallStatus = "canceled"
	StatusUnknown    CallStatus = "unknown"
)

// Ended reports whether the call has reached a terminal state.
func (s CallStatus) Ended() bool {
	switch s {
	case StatusCompleted, StatusBusy, StatusNoAnswer, StatusFailed, StatusCanceled:
		return true
	}
	return false
}

// CallRequest carries everything needed to place an outbound call.
type CallRequest struct {
	PhoneNumber   string
	SessionLeadID uuid.UUID
}

// CallResult is the provider's answer to a placement attempt.
type CallResult struct {
	Success        bool
	ProviderCallID string
	Error          string
}

// DisconnectEvent is delivered when a tracked call reaches a terminal state.
type DisconnectEvent struct {
	SessionLeadID  uuid.UUID
	ProviderCallID string
	Status         CallStatus
}

// DisconnectHandler consumes disconnect events.
type DisconnectHandler func(DisconnectEvent)

// Provider is the telephony collaborator contract.
type Provider interface {
	Name() string

	// InitializeDevice verifies credentials/connectivity before dialing.
	InitializeDevice(ctx context.Context) error

	// MakeCall places an outbound call for a session lead.
	MakeCall(ctx context.Context, req CallRequest) (CallResult, error)

	// CheckCallStatus polls the current status of the lead's active call.
	CheckCallStatus(ctx context.Context, sessionLeadID uuid.UUID) (CallStatus, error)

	// OnDisconnect registers a handler for call-end events. The returned
	// function unsubscribes it.
	OnDisconnect(handler DisconnectHandler) (unsubscribe func())
}
