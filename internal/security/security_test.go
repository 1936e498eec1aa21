package security

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

func TestHashPassword_RoundTrip(t *testing.T) {
	hash, err := HashPassword("s3cret")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if hash == "s3cret" {
		t.Fatalf("expected hashed value")
	}
	if !CheckPassword(hash, "s3cret") {
		t.Fatalf("expected password to match")
	}
	if CheckPassword(hash, "wrong") {
		t.Fatalf("expected mismatch for wrong password")
	}
	if CheckPassword("", "s3cret") {
		t.Fatalf("expected mismatch for empty hash")
	}
}

func TestGenerateRandomString(t *testing.T) {
	a, err := GenerateRandomString(32)
	if err != nil {
		t.Fatalf("GenerateRandomString: %v", err)
	}
	if len(a) != 64 {
		t.Fatalf("expected 64 hex chars, got %d", len(a))
	}
	b, _ := GenerateRandomString(32)
	if a == b {
		t.Fatalf("expected distinct values")
	}
}

func TestSessionToken_RoundTrip(t *testing.T) {
	id := uuid.New()
	now := time.Now()
	raw, err := NewSessionToken("secret", id, time.Hour, now)
	if err != nil {
		t.Fatalf("NewSessionToken: %v", err)
	}
	got, err := ParseSessionToken("secret", raw)
	if err != nil {
		t.Fatalf("ParseSessionToken: %v", err)
	}
	if got != id {
		t.Fatalf("expected subject %s, got %s", id, got)
	}
}

func TestSessionToken_RejectsNonUUIDSubject(t *testing.T) {
	now := time.Now()
	claims := SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    sessionIssuer,
			Subject:   "not-a-user-id",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		},
	}
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	got, errParse := ParseSessionToken("secret", raw)
	if !errors.Is(errParse, ErrInvalidSession) {
		t.Fatalf("expected ErrInvalidSession, got %v", errParse)
	}
	if got != uuid.Nil {
		t.Fatalf("expected nil id, got %s", got)
	}
}

func TestSessionToken_Rejects(t *testing.T) {
	id := uuid.New()
	raw, err := NewSessionToken("secret", id, time.Hour, time.Now())
	if err != nil {
		t.Fatalf("NewSessionToken: %v", err)
	}
	if _, errParse := ParseSessionToken("other", raw); errParse == nil {
		t.Fatalf("expected wrong secret to fail")
	}

	expired, err := NewSessionToken("secret", id, time.Minute, time.Now().Add(-time.Hour))
	if err != nil {
		t.Fatalf("NewSessionToken: %v", err)
	}
	if _, errParse := ParseSessionToken("secret", expired); errParse == nil {
		t.Fatalf("expected expired token to fail")
	}
	if _, errParse := ParseSessionToken("secret", "garbage"); errParse == nil {
		t.Fatalf("expected garbage to fail")
	}
}
