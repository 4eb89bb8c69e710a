package attributes

import (
	"crypto/sha256"
	"encoding/hex"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestIPHasher_HashOn(t *testing.T) {
	h := NewIPHasher("pepper")
	day := time.Date(2024, 5, 1, 23, 59, 0, 0, time.UTC)

	sum := sha256.Sum256([]byte("203.0.113.7" + "2024-05-01" + "pepper"))
	assert.Equal(t, hex.EncodeToString(sum[:]), h.HashOn("203.0.113.7", day))
}

func TestIPHasher_StableWithinDay(t *testing.T) {
	h := NewIPHasher("pepper")
	morning := time.Date(2024, 5, 1, 0, 0, 1, 0, time.UTC)
	night := time.Date(2024, 5, 1, 23, 59, 59, 0, time.UTC)

	assert.Equal(t, h.HashOn("203.0.113.7", morning), h.HashOn("203.0.113.7", night))
}

func TestIPHasher_RotatesAcrossDays(t *testing.T) {
	h := NewIPHasher("pepper")
	day1 := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	day2 := day1.AddDate(0, 0, 1)

	assert.NotEqual(t, h.HashOn("203.0.113.7", day1), h.HashOn("203.0.113.7", day2))
}

func TestIPHasher_UsesUTCDate(t *testing.T) {
	h := NewIPHasher("pepper")
	tz := time.FixedZone("UTC+10", 10*60*60)
	// 2024-05-02 08:00 in UTC+10 is still 2024-05-01 in UTC
	local := time.Date(2024, 5, 2, 8, 0, 0, 0, tz)

	assert.Equal(t, h.HashOn("1.2.3.4", time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)), h.HashOn("1.2.3.4", local))
}

func TestIPHasher_SaltMatters(t *testing.T) {
	day := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	assert.NotEqual(t, NewIPHasher("a").HashOn("1.2.3.4", day), NewIPHasher("b").HashOn("1.2.3.4", day))
}

func TestIPHasher_HashUsesClock(t *testing.T) {
	h := NewIPHasher("pepper")
	fixed := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	h.now = func() time.Time { return fixed }

	assert.Equal(t, h.HashOn("1.2.3.4", fixed), h.Hash("1.2.3.4"))
	assert.Len(t, h.Hash("1.2.3.4"), 64)
}
