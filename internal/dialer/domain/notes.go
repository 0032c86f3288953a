package domain

import (
	"encoding/json"
	"time"
)

// LeadNotes is the typed payload stored in a session lead's notes column.
// Historically this was free-form JSON written by several call sites; the
// contract is now explicit. Unknown fields are preserved across merges so
// older writers lose nothing.
type LeadNotes struct {
	Phone           string     `json:"phone,omitempty"`
	OriginalLeadID  *int64     `json:"originalLeadId,omitempty"`
	CallCompletedAt *time.Time `json:"callCompletedAt,omitempty"`

	extra map[string]json.RawMessage
}

// ParseLeadNotes decodes raw notes. Any parse failure degrades to the zero
// payload; the notes column is best-effort by contract.
func ParseLeadNotes(raw string) LeadNotes {
	var notes LeadNotes
	if raw == "" {
		return notes
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(raw), &fields); err != nil {
		return LeadNotes{}
	}

	if v, ok := fields["phone"]; ok {
		_ = json.Unmarshal(v, &notes.Phone)
		delete(fields, "phone")
	}
	if v, ok := fields["originalLeadId"]; ok {
		var id int64
		if err := json.Unmarshal(v, &id); err == nil {
			notes.OriginalLeadID = &id
		}
		delete(fields, "originalLeadId")
	}
	if v, ok := fields["callCompletedAt"]; ok {
		var ts time.Time
		if err := json.Unmarshal(v, &ts); err == nil {
			notes.CallCompletedAt = &ts
		}
		delete(fields, "callCompletedAt")
	}
	if len(fields) > 0 {
		notes.extra = fields
	}

	return notes
}

// Encode serializes the payload back to the notes column format.
func (n LeadNotes) Encode() string {
	fields := make(map[string]json.RawMessage, len(n.extra)+3)
	for k, v := range n.extra {
		fields[k] = v
	}

	if n.Phone != "" {
		fields["phone"], _ = json.Marshal(n.Phone)
	}
	if n.OriginalLeadID != nil {
		fields["originalLeadId"], _ = json.Marshal(*n.OriginalLeadID)
	}
	if n.CallCompletedAt != nil {
		fields["callCompletedAt"], _ = json.Marshal(*n.CallCompletedAt)
	}

	encoded, err := json.Marshal(fields)
	if err != nil {
		return "{}"
	}
	return string(encoded)
}

// WithCompletedAt returns a copy with the completion timestamp set.
func (n LeadNotes) WithCompletedAt(ts time.Time) LeadNotes {
	n.CallCompletedAt = &ts
	return n
}
