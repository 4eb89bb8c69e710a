// Package timeutil holds the millisecond-epoch arithmetic shared by links and click events.
package timeutil

import (
	"math"
	"time"
)

const (
	millisPerSecond = int64(1000)
	millisPerHour   = 60 * 60 * millisPerSecond
	millisPerDay    = 24 * millisPerHour
)

// Now returns the current UTC time as milliseconds since the epoch
func Now() int64 {
	return time.Now().UTC().UnixMilli()
}

// AddSeconds shifts a millisecond timestamp by whole seconds
func AddSeconds(ts int64, seconds int64) int64 {
	return ts + seconds*millisPerSecond
}

// MaxSecondsAfter is the largest second count AddSeconds can add to ts
// without overflowing
func MaxSecondsAfter(ts int64) int64 {
	return (math.MaxInt64 - ts) / millisPerSecond
}

// AddDays shifts a millisecond timestamp by whole days
func AddDays(ts int64, days int) int64 {
	return ts + int64(days)*millisPerDay
}

// HourBoundary rounds a millisecond timestamp down to the start of its hour
func HourBoundary(ts int64) int64 {
	return (ts / millisPerHour) * millisPerHour
}

// FromMillis converts a millisecond timestamp back to a UTC time.Time
func FromMillis(ts int64) time.Time {
	return time.UnixMilli(ts).UTC()
}
