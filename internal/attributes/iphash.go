package attributes

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

const dayLayout = "2006-01-02"

// IPHasher produces a salted one-way digest of a client IP that rotates every UTC day,
// so the same visitor cannot be correlated across days from stored events.
type IPHasher struct {
	salt string
	now  func() time.Time
}

// NewIPHasher creates a hasher using the given secret salt
func NewIPHasher(salt string) *IPHasher {
	return &IPHasher{
		salt: salt,
		now:  time.Now,
	}
}

// Hash digests ip for the current UTC date
func (h *IPHasher) Hash(ip string) string {
	return h.HashOn(ip, h.now())
}

// HashOn digests ip for the UTC calendar day containing day
func (h *IPHasher) HashOn(ip string, day time.Time) string {
	sum := sha256.Sum256([]byte(ip + day.UTC().Format(dayLayout) + h.salt))
	return hex.EncodeToString(sum[:])
}
