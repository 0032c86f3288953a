package phone

import "testing"

func TestNormalizeE164(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"already e164", "+12025550142", "+12025550142"},
		{"national format", "(202) 555-0142", "+12025550142"},
		{"dashed", "202-555-0142", "+12025550142"},
		{"whitespace trimmed", "  +12025550142  ", "+12025550142"},
		{"empty", "", ""},
		{"unparseable kept", "not-a-number", "not-a-number"},
		{"invalid kept", "12345", "12345"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeE164(tt.input); got != tt.want {
				t.Fatalf("NormalizeE164(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestIsDialable(t *testing.T) {
	if !IsDialable("+12025550142") {
		t.Fatalf("expected valid US number to be dialable")
	}
	if !IsDialable("(202) 555-0142") {
		t.Fatalf("expected national format to be dialable")
	}
	if IsDialable("") || IsDialable("not-a-number") || IsDialable("12345") {
		t.Fatalf("expected invalid inputs to be undialable")
	}
}
