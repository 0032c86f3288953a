package service

import (
	"context"
	"errors"
	"testing"

	"dialcrm_backend/internal/dialer/domain"
	"dialcrm_backend/platform/logger"

	"github.com/google/uuid"
)

type fakePhoneReader struct {
	byID    map[int64]string
	lastID  int64
	lookups int
	err     error
}

func (r *fakePhoneReader) LeadPhone(_ context.Context, leadID int64) (domain.LeadDetails, error) {
	r.lookups++
	r.lastID = leadID
	if r.err != nil {
		return domain.LeadDetails{}, r.err
	}
	number, ok := r.byID[leadID]
	if !ok {
		return domain.LeadDetails{}, nil
	}
	return domain.LeadDetails{ID: &leadID, Phone1: &number}, nil
}

func newTestResolver(repo *fakePhoneReader) *Resolver {
	return NewResolver(repo, logger.New("test"))
}

func TestProcessAttachesNotesPhone(t *testing.T) {
	r := newTestResolver(&fakePhoneReader{})

	processed := r.Process(domain.SessionLead{
		ID:    uuid.New(),
		Notes: `{"phone":"(202) 555-0142"}`,
	})

	if processed.PhoneNumber == nil {
		t.Fatalf("expected phone from notes payload")
	}
	if *processed.PhoneNumber != "+12025550142" {
		t.Fatalf("expected E.164 normalization, got %q", *processed.PhoneNumber)
	}
}

func TestProcessLeavesPhoneNilWithoutNotes(t *testing.T) {
	r := newTestResolver(&fakePhoneReader{})

	processed := r.Process(domain.SessionLead{ID: uuid.New(), Notes: ""})
	if processed.PhoneNumber != nil {
		t.Fatalf("expected nil phone for empty notes, got %q", *processed.PhoneNumber)
	}
}

func TestLeadDetailsPrefersOriginalLeadID(t *testing.T) {
	repo := &fakePhoneReader{byID: map[int64]string{7: "+12025550199"}}
	r := newTestResolver(repo)

	// lead_id would parse to 42, but the notes pin the original lead to 7.
	details := r.LeadDetails(context.Background(), domain.SessionLead{
		LeadID: "42",
		Notes:  `{"originalLeadId":7}`,
	})

	if repo.lastID != 7 {
		t.Fatalf("expected lookup by originalLeadId 7, got %d", repo.lastID)
	}
	if details.Phone1 == nil || *details.Phone1 != "+12025550199" {
		t.Fatalf("unexpected details %+v", details)
	}
}

func TestLeadDetailsFallsBackToNumericLeadID(t *testing.T) {
	repo := &fakePhoneReader{byID: map[int64]string{42: "2025550123"}}
	r := newTestResolver(repo)

	details := r.LeadDetails(context.Background(), domain.SessionLead{LeadID: "42"})

	if repo.lastID != 42 {
		t.Fatalf("expected lookup by numeric lead id, got %d", repo.lastID)
	}
	if details.Phone1 == nil || *details.Phone1 != "+12025550123" {
		t.Fatalf("expected normalized phone, got %+v", details.Phone1)
	}
}

func TestLeadDetailsSyntheticIDYieldsEmpty(t *testing.T) {
	repo := &fakePhoneReader{}
	r := newTestResolver(repo)

	details := r.LeadDetails(context.Background(), domain.SessionLead{
		LeadID: "adhoc-" + uuid.NewString(),
	})

	if repo.lookups != 0 {
		t.Fatalf("synthetic ids must not hit the leads table")
	}
	if details.Phone1 != nil || details.ID != nil {
		t.Fatalf("expected empty details, got %+v", details)
	}
}

func TestLeadDetailsLookupErrorDegradesToEmpty(t *testing.T) {
	repo := &fakePhoneReader{err: errors.New("connection refused")}
	r := newTestResolver(repo)

	details := r.LeadDetails(context.Background(), domain.SessionLead{LeadID: "42"})
	if details.Phone1 != nil {
		t.Fatalf("expected empty details on lookup failure")
	}
}
