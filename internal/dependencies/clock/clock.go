// Package clock supplies the time that registration windows and admin
// session expiry are evaluated against.
package clock

import "time"

// Clock reports the current time
type Clock interface {
	Now() time.Time
}

// Func adapts a plain function to Clock
type Func func() time.Time

// Now calls f
func (f Func) Now() time.Time {
	return f()
}

// New returns the system clock. Times are UTC so stored session windows
// compare the same across every storage backend.
func New() Clock {
	return Func(func() time.Time { return time.Now().UTC() })
}
