package auth

import (
	"strings"
	"testing"
	"time"
)

func TestHashPasswordAndCheckPassword(t *testing.T) {
	hash, err := HashPassword("s3cret")
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	if hash == "" || hash == "s3cret" {
		t.Fatalf("expected hashed value, got %q", hash)
	}
	if !CheckPassword("s3cret", hash) {
		t.Fatalf("expected password check to pass")
	}
	if CheckPassword("wrong", hash) {
		t.Fatalf("expected password check to fail")
	}
}

func TestTokensIssueAndVerify(t *testing.T) {
	tokens, err := NewTokens(TokensOptions{Secret: "test-secret"})
	if err != nil {
		t.Fatalf("new tokens: %v", err)
	}
	signed, err := tokens.Issue(42)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	userID, err := tokens.Verify(signed)
	if err != nil {
		t.Fatalf("verify token: %v", err)
	}
	if userID != 42 {
		t.Fatalf("expected user 42, got %d", userID)
	}
}

func TestTokensRejectsWrongSecret(t *testing.T) {
	issuing, _ := NewTokens(TokensOptions{Secret: "secret-a"})
	verifying, _ := NewTokens(TokensOptions{Secret: "secret-b"})
	signed, err := issuing.Issue(7)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	if _, err := verifying.Verify(signed); err == nil {
		t.Fatalf("expected verification to fail across secrets")
	}
}

func TestTokensRejectsExpired(t *testing.T) {
	tokens, err := NewTokens(TokensOptions{
		Secret: "test-secret",
		TTL:    time.Millisecond,
		Leeway: time.Millisecond,
	})
	if err != nil {
		t.Fatalf("new tokens: %v", err)
	}
	signed, err := tokens.Issue(7)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	time.Sleep(20 * time.Millisecond)
	if _, err := tokens.Verify(signed); err == nil {
		t.Fatalf("expected expired token to fail verification")
	}
}

func TestTokensRejectsGarbage(t *testing.T) {
	tokens, _ := NewTokens(TokensOptions{Secret: "test-secret"})
	if _, err := tokens.Verify("not-a-token"); err == nil {
		t.Fatalf("expected malformed token to fail verification")
	}
}

func TestNewResetToken(t *testing.T) {
	first, err := NewResetToken()
	if err != nil {
		t.Fatalf("new reset token: %v", err)
	}
	second, err := NewResetToken()
	if err != nil {
		t.Fatalf("new reset token: %v", err)
	}
	if len(first) != 64 || strings.ContainsAny(first, " \t\n") {
		t.Fatalf("unexpected token shape: %q", first)
	}
	if first == second {
		t.Fatalf("expected distinct tokens")
	}
}
