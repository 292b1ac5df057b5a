// Package timeutil provides a testable abstraction over the current time.
package timeutil

import "time"

// Clock supplies the current time, abstracted so tests can pin upload
// timestamps.
type Clock interface {
	// Now returns the current time.
	Now() time.Time
}

// RealClock implements Clock using the standard time package.
type RealClock struct{}

// Now returns the current time.
func (RealClock) Now() time.Time { return time.Now() }

// MockClock is a Clock pinned to a fixed instant for testing.
type MockClock struct {
	now time.Time
}

// NewMockClock creates a MockClock pinned to t.
func NewMockClock(t time.Time) *MockClock {
	return &MockClock{now: t}
}

// Now returns the pinned time.
func (c *MockClock) Now() time.Time { return c.now }
