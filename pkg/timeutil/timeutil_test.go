package timeutil

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNow(t *testing.T) {
	before := time.Now().UnixMilli()
	now := Now()
	after := time.Now().UnixMilli()

	assert.GreaterOrEqual(t, now, before)
	assert.LessOrEqual(t, now, after)
}

func TestAddSeconds(t *testing.T) {
	assert.Equal(t, int64(1_000_000+3_600_000), AddSeconds(1_000_000, 3600))
	assert.Equal(t, int64(1_000_000), AddSeconds(1_000_000, 0))
}

func TestMaxSecondsAfter(t *testing.T) {
	ts := int64(1_700_000_000_000)
	limit := MaxSecondsAfter(ts)

	assert.Positive(t, AddSeconds(ts, limit))
	assert.Greater(t, AddSeconds(ts, limit), ts)
	assert.Equal(t, int64(math.MaxInt64/1000), MaxSecondsAfter(0))
}

func TestAddDays(t *testing.T) {
	ts := int64(1_700_000_000_000)
	assert.Equal(t, ts+15*24*60*60*1000, AddDays(ts, 15))
}

func TestHourBoundary(t *testing.T) {
	ts := time.Date(2024, 3, 10, 14, 37, 12, 0, time.UTC).UnixMilli()
	want := time.Date(2024, 3, 10, 14, 0, 0, 0, time.UTC).UnixMilli()

	assert.Equal(t, want, HourBoundary(ts))
	assert.Equal(t, want, HourBoundary(want))
}

func TestFromMillis(t *testing.T) {
	want := time.Date(2024, 3, 10, 14, 37, 12, 0, time.UTC)
	assert.True(t, want.Equal(FromMillis(want.UnixMilli())))
	assert.Equal(t, time.UTC, FromMillis(0).Location())
}
