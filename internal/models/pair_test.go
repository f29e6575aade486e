package models

import "testing"

func TestCanonicalPair(t *testing.T) {
	cases := []struct {
		a, b   string
		lo, hi string
	}{
		{"u1", "u2", "u1", "u2"},
		{"u2", "u1", "u1", "u2"},
		{"abc", "abd", "abc", "abd"},
		{"same", "same", "same", "same"},
		{"", "x", "", "x"},
	}

	for _, tc := range cases {
		lo, hi := CanonicalPair(tc.a, tc.b)
		if lo != tc.lo || hi != tc.hi {
			t.Fatalf("CanonicalPair(%q, %q) = (%q, %q), want (%q, %q)", tc.a, tc.b, lo, hi, tc.lo, tc.hi)
		}
		if lo > hi {
			t.Fatalf("canonical order violated: %q > %q", lo, hi)
		}
	}
}

func TestRelationshipParticipants(t *testing.T) {
	rel := Relationship{UserA: "u1", UserB: "u2"}

	if !rel.HasParticipant("u1") || !rel.HasParticipant("u2") {
		t.Fatal("expected both participants to match")
	}
	if rel.HasParticipant("u3") {
		t.Fatal("expected non-participant to be rejected")
	}
	if got := rel.OtherParticipant("u1"); got != "u2" {
		t.Fatalf("expected other participant u2, got %q", got)
	}
	if got := rel.OtherParticipant("u2"); got != "u1" {
		t.Fatalf("expected other participant u1, got %q", got)
	}
}
