package utils

import (
	"time"
)

// Version from source control, set at link time.
var Version string = "unknown"

// IdPtr is the pointer version of id: 'a->'a
func IdPtr[T any](value T) *T {
	return &value
}

// MakeTimestamp converts a time to milliseconds since the Unix epoch.
func MakeTimestamp(t time.Time) uint64 {
	return uint64(t.UnixNano() / int64(time.Millisecond))
}

// If is the ternary operator (eager evaluation)
func If[T any](cond bool, t, f T) T {
	if cond {
		return t
	} else {
		return f
	}
}
