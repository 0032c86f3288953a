// Package domain holds the dialer's core types: session queue entries, their
// status lifecycle, and the typed notes payload carried on each entry.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of a session lead within a dial attempt.
// Transitions are monotonic inside one attempt: queued -> in_progress ->
// completed or failed. A requeue (stale sweep, session reset) is the only
// path back to queued.
type Status string

const (
	StatusQueued     Status = "queued"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// IsTerminal reports whether the status ends a dial attempt.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Valid reports whether s is a known status value.
func (s Status) Valid() bool {
	switch s {
	case StatusQueued, StatusInProgress, StatusCompleted, StatusFailed:
		return true
	}
	return false
}

// SessionLead is a queue entry binding a lead to a dialing session.
// LeadID is a string on purpose: ad hoc call lists enqueue synthetic ids,
// so it cannot be trusted as a numeric foreign key (see LeadNotes).
type SessionLead struct {
	ID           uuid.UUID
	LeadID       string
	SessionID    uuid.UUID
	Status       Status
	Priority     int
	AttemptCount int
	Notes        string
}

// ProcessedSessionLead decorates a SessionLead with a resolved phone number.
// PhoneNumber is nil when the notes payload did not carry one; callers then
// fall back to the lazy lookup path on the resolver.
type ProcessedSessionLead struct {
	SessionLead
	PhoneNumber *string
}

// LeadDetails is the projection returned by lead lookups for dialing.
// Both fields are nil when no usable lead record could be found.
type LeadDetails struct {
	ID     *int64
	Phone1 *string
}

// QueueStats summarizes a session's queue for the predictive dialer UI.
type QueueStats struct {
	SessionID  uuid.UUID `json:"sessionId"`
	Queued     int       `json:"queued"`
	InProgress int       `json:"inProgress"`
	Completed  int       `json:"completed"`
	Failed     int       `json:"failed"`
	AsOf       time.Time `json:"asOf"`
}
