package storage

import (
	"strings"
	"testing"
)

func newValidationService() *MinIOService {
	return &MinIOService{maxFileSize: 25 << 20}
}

func TestValidateContentType(t *testing.T) {
	s := newValidationService()

	allowed := []string{
		"application/pdf",
		"image/jpeg",
		"text/csv",
		"APPLICATION/PDF",
		"application/pdf; charset=utf-8",
	}
	for _, ct := range allowed {
		if err := s.ValidateContentType(ct); err != nil {
			t.Fatalf("expected %q allowed: %v", ct, err)
		}
	}

	rejected := []string{
		"video/mp4",
		"application/x-msdownload",
		"text/html",
		"",
	}
	for _, ct := range rejected {
		if err := s.ValidateContentType(ct); err == nil {
			t.Fatalf("expected %q rejected", ct)
		}
	}
}

func TestValidateFileSize(t *testing.T) {
	s := newValidationService()

	if err := s.ValidateFileSize(1024); err != nil {
		t.Fatalf("expected valid size accepted: %v", err)
	}
	if err := s.ValidateFileSize(0); err == nil {
		t.Fatalf("expected zero size rejected")
	}
	if err := s.ValidateFileSize(-1); err == nil {
		t.Fatalf("expected negative size rejected")
	}
	if err := s.ValidateFileSize(26 << 20); err == nil {
		t.Fatalf("expected oversize rejected")
	}
}

func TestIsImageContentType(t *testing.T) {
	if !IsImageContentType("image/png") || !IsImageContentType("IMAGE/JPEG") {
		t.Fatalf("expected image types recognized")
	}
	if IsImageContentType("application/pdf") {
		t.Fatalf("pdf is not an image")
	}
}

func TestUniqueFileKey(t *testing.T) {
	key1 := uniqueFileKey("leads/42", "statement.pdf")
	key2 := uniqueFileKey("leads/42", "statement.pdf")

	if key1 == key2 {
		t.Fatalf("repeat uploads must get distinct keys")
	}
	if !strings.HasPrefix(key1, "leads/42/statement_") || !strings.HasSuffix(key1, ".pdf") {
		t.Fatalf("unexpected key shape %q", key1)
	}
}
