package random

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

const alphanumeric = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// Code generates a cryptographically random alphanumeric code of length n.
// Used for profile identifiers (9), artwork codes (14) and unlock passwords (6).
func Code(n int) (string, error) {
	buf := make([]byte, n)
	for i := range buf {
		idx, err := rand.Int(rand.Reader, big.NewInt(int64(len(alphanumeric))))
		if err != nil {
			return "", fmt.Errorf("failed to generate random number: %w", err)
		}
		buf[i] = alphanumeric[idx.Int64()]
	}
	return string(buf), nil
}

// MustCode is Code but panics on entropy failure. Entropy exhaustion is not
// a recoverable condition for code generation.
func MustCode(n int) string {
	code, err := Code(n)
	if err != nil {
		panic(err)
	}
	return code
}
