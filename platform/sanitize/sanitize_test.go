package sanitize

import "testing"

func TestStripHTML(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain text", "John Smith", "John Smith"},
		{"simple tag", "<b>John</b>", "John"},
		{"script tag", `<script>alert("x")</script>hello`, `alert("x")hello`},
		{"encoded tag", "&lt;img src=x&gt;name", "name"},
		{"entities", "Smith &amp; Sons", "Smith & Sons"},
		{"surrounding space", "  John  ", "John"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StripHTML(tt.input); got != tt.want {
				t.Fatalf("StripHTML(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestTextPtr(t *testing.T) {
	if TextPtr(nil) != nil {
		t.Fatalf("expected nil passthrough")
	}
	input := "<i>note</i>"
	got := TextPtr(&input)
	if got == nil || *got != "note" {
		t.Fatalf("TextPtr = %v", got)
	}
}
