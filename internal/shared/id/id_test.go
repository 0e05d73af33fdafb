package id

import (
	"strings"
	"testing"
)

func TestNewRequestID(t *testing.T) {
	rid := NewRequestID()
	if !strings.HasPrefix(rid.String(), "req_") {
		t.Errorf("expected req_ prefix, got %s", rid)
	}
	if !IsValid(rid.String()) {
		t.Errorf("generated ID should be valid: %s", rid)
	}
}

func TestUniqueness(t *testing.T) {
	seen := make(map[RequestID]bool)
	for i := 0; i < 1000; i++ {
		rid := NewRequestID()
		if seen[rid] {
			t.Fatalf("duplicate ID generated: %s", rid)
		}
		seen[rid] = true
	}
}

func TestIsValid(t *testing.T) {
	cases := []struct {
		id    string
		valid bool
	}{
		{NewRequestID().String(), true},
		{"req_", false},
		{"req_not-a-ulid", false},
		{"sess_01ARZ3NDEKTSV4RRFFQ69G5FAV", false},
		{"", false},
	}
	for _, tc := range cases {
		if got := IsValid(tc.id); got != tc.valid {
			t.Errorf("IsValid(%q) = %v, want %v", tc.id, got, tc.valid)
		}
	}
}
