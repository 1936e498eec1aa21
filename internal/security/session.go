package security

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// sessionIssuer is stamped into every session token.
const sessionIssuer = "budgetwise"

// ErrInvalidSession reports a session token that failed verification.
var ErrInvalidSession = errors.New("invalid session token")

// SessionClaims carries only the user identifier as the subject.
type SessionClaims struct {
	jwt.RegisteredClaims
}

// NewSessionToken signs a session token for userID.
func NewSessionToken(secret string, userID uuid.UUID, expiry time.Duration, now time.Time) (string, error) {
	if strings.TrimSpace(secret) == "" {
		return "", fmt.Errorf("session: empty secret")
	}
	claims := SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    sessionIssuer,
			Subject:   userID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(expiry)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// ParseSessionToken verifies raw and returns the user id in its subject.
func ParseSessionToken(secret, raw string) (uuid.UUID, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || strings.TrimSpace(secret) == "" {
		return uuid.Nil, ErrInvalidSession
	}
	claims := &SessionClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(token *jwt.Token) (any, error) {
		return []byte(secret), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(sessionIssuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !token.Valid {
		return uuid.Nil, ErrInvalidSession
	}
	userID, errID := uuid.Parse(claims.Subject)
	if errID != nil {
		return uuid.Nil, ErrInvalidSession
	}
	return userID, nil
}
