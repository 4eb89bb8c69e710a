package shortener

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// Base62 character set (0-9, A-Z, a-z) - 62 characters total
const base62Chars = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

const (
	// DefaultLength is the length of generated codes on the normal path
	DefaultLength = 6

	// FallbackLength is used once the bounded uniqueness check is exhausted
	// - 6 chars = 62^6 = ~56 billion combinations
	// - 8 chars = 62^8 = ~218 trillion combinations
	FallbackLength = 8

	// MinCodeLength and MaxCodeLength bound both generated codes and custom aliases
	MinCodeLength = 3
	MaxCodeLength = 20
)

var alphabetSize = big.NewInt(int64(len(base62Chars)))

// Generate creates a random short code of the given length using crypto/rand.
// Every character is drawn independently and uniformly from the base62 alphabet.
func Generate(length int) (string, error) {
	if length <= 0 {
		length = DefaultLength
	}

	result := make([]byte, length)
	for i := range result {
		num, err := rand.Int(rand.Reader, alphabetSize)
		if err != nil {
			return "", fmt.Errorf("read random source: %w", err)
		}
		result[i] = base62Chars[num.Int64()]
	}

	return string(result), nil
}

// IsValidFormat checks length bounds and that every character is base62.
// Used for custom aliases before any store access.
func IsValidFormat(code string) bool {
	if len(code) < MinCodeLength || len(code) > MaxCodeLength {
		return false
	}

	for i := 0; i < len(code); i++ {
		if !isBase62(code[i]) {
			return false
		}
	}

	return true
}

func isBase62(c byte) bool {
	switch {
	case c >= '0' && c <= '9':
		return true
	case c >= 'A' && c <= 'Z':
		return true
	case c >= 'a' && c <= 'z':
		return true
	}
	return false
}
