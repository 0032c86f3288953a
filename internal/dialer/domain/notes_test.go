package domain

import (
	"encoding/json"
	"testing"
	"time"
)

func TestParseLeadNotesKnownFields(t *testing.T) {
	notes := ParseLeadNotes(`{"phone":"+12025550142","originalLeadId":42}`)
	if notes.Phone != "+12025550142" {
		t.Fatalf("unexpected phone %q", notes.Phone)
	}
	if notes.OriginalLeadID == nil || *notes.OriginalLeadID != 42 {
		t.Fatalf("unexpected originalLeadId %v", notes.OriginalLeadID)
	}
	if notes.CallCompletedAt != nil {
		t.Fatalf("unexpected callCompletedAt")
	}
}

func TestParseLeadNotesGarbageDegradesToZero(t *testing.T) {
	for _, raw := range []string{"", "left a voicemail", "{broken", "[1,2]"} {
		notes := ParseLeadNotes(raw)
		if notes.Phone != "" || notes.OriginalLeadID != nil || notes.CallCompletedAt != nil {
			t.Fatalf("expected zero payload for %q, got %+v", raw, notes)
		}
	}
}

func TestEncodePreservesUnknownFields(t *testing.T) {
	raw := `{"phone":"+12025550142","campaign":"spring-refi","attempts":[1,2]}`
	encoded := ParseLeadNotes(raw).WithCompletedAt(time.Now().UTC()).Encode()

	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(encoded), &fields); err != nil {
		t.Fatalf("encoded notes are not valid JSON: %v", err)
	}
	for _, key := range []string{"phone", "campaign", "attempts", "callCompletedAt"} {
		if _, ok := fields[key]; !ok {
			t.Fatalf("expected %q in %s", key, encoded)
		}
	}
	if string(fields["campaign"]) != `"spring-refi"` {
		t.Fatalf("unknown field value changed: %s", fields["campaign"])
	}
}

func TestEncodeOmitsEmptyFields(t *testing.T) {
	encoded := LeadNotes{}.Encode()
	if encoded != "{}" {
		t.Fatalf("expected empty object, got %s", encoded)
	}
}

func TestWithCompletedAtRoundTrips(t *testing.T) {
	ts := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	encoded := LeadNotes{Phone: "+12025550142"}.WithCompletedAt(ts).Encode()

	parsed := ParseLeadNotes(encoded)
	if parsed.CallCompletedAt == nil || !parsed.CallCompletedAt.Equal(ts) {
		t.Fatalf("completion timestamp lost: %+v", parsed.CallCompletedAt)
	}
	if parsed.Phone != "+12025550142" {
		t.Fatalf("phone lost across round trip")
	}
}

func TestStatusTerminal(t *testing.T) {
	if StatusQueued.IsTerminal() || StatusInProgress.IsTerminal() {
		t.Fatalf("queued/in_progress must not be terminal")
	}
	if !StatusCompleted.IsTerminal() || !StatusFailed.IsTerminal() {
		t.Fatalf("completed/failed must be terminal")
	}
	if Status("ringing").Valid() {
		t.Fatalf("unknown status must not validate")
	}
}
