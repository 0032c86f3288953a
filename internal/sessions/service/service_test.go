package service

import (
	"strconv"
	"strings"
	"testing"

	"dialcrm_backend/internal/dialer/domain"
)

func TestBuildEntryStoredLead(t *testing.T) {
	leadID := int64(42)
	entry, err := buildEntry(EnqueueLead{LeadID: &leadID, Priority: 3})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if entry.LeadID != "42" {
		t.Fatalf("expected numeric lead id, got %q", entry.LeadID)
	}
	if entry.Priority != 3 {
		t.Fatalf("priority lost")
	}

	notes := domain.ParseLeadNotes(entry.Notes)
	if notes.OriginalLeadID == nil || *notes.OriginalLeadID != 42 {
		t.Fatalf("expected originalLeadId in notes, got %s", entry.Notes)
	}
}

func TestBuildEntryStoredLeadWithPhone(t *testing.T) {
	leadID := int64(7)
	entry, err := buildEntry(EnqueueLead{LeadID: &leadID, Phone: "(202) 555-0142"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	notes := domain.ParseLeadNotes(entry.Notes)
	if notes.Phone != "+12025550142" {
		t.Fatalf("expected normalized phone in notes, got %q", notes.Phone)
	}
	if entry.LeadID != strconv.FormatInt(leadID, 10) {
		t.Fatalf("stored lead keeps its numeric id, got %q", entry.LeadID)
	}
}

func TestBuildEntryAdHocPhone(t *testing.T) {
	entry, err := buildEntry(EnqueueLead{Phone: "+12025550142"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasPrefix(entry.LeadID, "adhoc-") {
		t.Fatalf("expected synthetic lead id, got %q", entry.LeadID)
	}

	notes := domain.ParseLeadNotes(entry.Notes)
	if notes.Phone != "+12025550142" {
		t.Fatalf("ad hoc number must live in the notes payload, got %q", notes.Phone)
	}
	if notes.OriginalLeadID != nil {
		t.Fatalf("ad hoc entry must not carry an originalLeadId")
	}
}

func TestBuildEntryRejectsUndialablePhone(t *testing.T) {
	if _, err := buildEntry(EnqueueLead{Phone: "12345"}); err == nil {
		t.Fatalf("expected invalid phone error")
	}
}

func TestBuildEntryRejectsEmptyLead(t *testing.T) {
	if _, err := buildEntry(EnqueueLead{}); err == nil {
		t.Fatalf("expected empty lead error")
	}
}
