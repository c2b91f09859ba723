package auth

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// NewResetToken returns a random token for password-reset links. The token is
// single-use: it is cleared once the password changes.
func NewResetToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate reset token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
