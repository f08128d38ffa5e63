package readertoken

import (
	"testing"
	"time"
)

func TestIssueAndVerifyRoundTrip(t *testing.T) {
	m, err := New(Options{Secret: "test-secret"})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}

	id := Identity{UserID: "user-a", Name: "Alma", Color: "#e91e63"}
	signed, err := m.Issue(id)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	got, err := m.Verify(signed)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if got != id {
		t.Fatalf("identity mismatch: got %+v want %+v", got, id)
	}
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	issuer, err := New(Options{Secret: "secret-a"})
	if err != nil {
		t.Fatalf("new issuer: %v", err)
	}
	verifier, err := New(Options{Secret: "secret-b"})
	if err != nil {
		t.Fatalf("new verifier: %v", err)
	}

	signed, err := issuer.Issue(Identity{UserID: "user-a"})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := verifier.Verify(signed); err == nil {
		t.Fatal("expected verification to fail with wrong secret")
	}
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	m, err := New(Options{Secret: "test-secret", TTL: time.Nanosecond, Leeway: time.Nanosecond})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}

	signed, err := m.Issue(Identity{UserID: "user-a"})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	time.Sleep(10 * time.Millisecond)
	if _, err := m.Verify(signed); err == nil {
		t.Fatal("expected expired token to fail verification")
	}
}

func TestVerifyRejectsWrongIssuer(t *testing.T) {
	issuer, err := New(Options{Secret: "test-secret", Issuer: "other-service"})
	if err != nil {
		t.Fatalf("new issuer: %v", err)
	}
	verifier, err := New(Options{Secret: "test-secret"})
	if err != nil {
		t.Fatalf("new verifier: %v", err)
	}

	signed, err := issuer.Issue(Identity{UserID: "user-a"})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := verifier.Verify(signed); err == nil {
		t.Fatal("expected verification to fail for wrong issuer")
	}
}

func TestNewRequiresSecret(t *testing.T) {
	if _, err := New(Options{}); err == nil {
		t.Fatal("expected missing secret to fail")
	}
}

func TestIssueRequiresSubject(t *testing.T) {
	m, err := New(Options{Secret: "test-secret"})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	if _, err := m.Issue(Identity{Name: "Alma"}); err == nil {
		t.Fatal("expected missing subject to fail")
	}
}
