package timeutil

import "time"

// Normalize converts t to UTC and strips any sub-second component.
// All scheduling comparisons go through this so that two instants are
// equal iff their normalized forms are equal.
func Normalize(t time.Time) time.Time {
	return t.UTC().Truncate(time.Second)
}

// SameInstant reports whether a and b refer to the same normalized instant.
func SameInstant(a, b time.Time) bool {
	return Normalize(a).Equal(Normalize(b))
}
