package security

import (
	"crypto/rand"
	"encoding/hex"
)

// GenerateRandomString returns n random bytes encoded as hex.
func GenerateRandomString(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
