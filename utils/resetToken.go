package utils

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
)

// Reset tokens travel to the user by email in the clear; only the SHA-256
// digest is persisted, so a leaked users table cannot redeem them.

func GenerateResetToken() (raw string, hashed string, err error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", "", err
	}
	raw = hex.EncodeToString(b)
	return raw, HashResetToken(raw), nil
}

func HashResetToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
