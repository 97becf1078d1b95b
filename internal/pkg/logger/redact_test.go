package logger

import "testing"

func TestRedactEmail(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"john.doe@example.com", "jo***@example.com"},
		{"ab@example.com", "***@example.com"},
		{"a@example.com", "***@example.com"},
		{"not-an-email", "***@***"},
		{"", "***@***"},
	}
	for _, tt := range tests {
		if got := RedactEmail(tt.in); got != tt.want {
			t.Errorf("RedactEmail(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestRedactProfileURL(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"https://linkedin.com/in/jane-doe-123", "https://linkedin.com/in/ja***"},
		{"https://www.linkedin.com/in/jd/", "https://www.linkedin.com/in/***"},
		{"https://example.com/profile", "***"},
		{"", "***"},
	}
	for _, tt := range tests {
		if got := RedactProfileURL(tt.in); got != tt.want {
			t.Errorf("RedactProfileURL(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestRedactPIIValueRoutesByKey(t *testing.T) {
	if got := redactPIIValue("email", "pat@acme.io"); got != "pa***@acme.io" {
		t.Errorf("email field not redacted: %q", got)
	}
	if got := redactPIIValue("profile_url", "https://linkedin.com/in/patdoe"); got != "https://linkedin.com/in/pa***" {
		t.Errorf("profile field not redacted: %q", got)
	}
	// Emails embedded in generic fields are still masked.
	if got := redactPIIValue("note", "reached pat.doe@acme.io by mail"); got != "reached pa***@acme.io by mail" {
		t.Errorf("embedded email not redacted: %q", got)
	}
	if got := redactPIIValue("campaign_id", "c-123"); got != "c-123" {
		t.Errorf("non-PII field must pass through: %q", got)
	}
}
