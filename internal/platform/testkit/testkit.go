// Package testkit holds small helpers shared by package tests
package testkit

import (
	"math"
	"strings"
	"testing"
	"time"
)

// MustPanic fails unless fn panics
func MustPanic(t *testing.T, fn func()) {
	t.Helper()
	defer func() {
		if r := recover(); r == nil {
			t.Fatalf("expected panic, got none")
		}
	}()
	fn()
}

// MustNotPanic fails if fn panics
func MustNotPanic(t *testing.T, fn func()) {
	t.Helper()
	defer func() {
		if r := recover(); r != nil {
			t.Fatalf("unexpected panic: %v", r)
		}
	}()
	fn()
}

// MustContain fails unless haystack contains needle
func MustContain(t *testing.T, haystack, needle string) {
	t.Helper()
	if !strings.Contains(haystack, needle) {
		t.Fatalf("expected output to contain %q\n\nfull output:\n%s", needle, haystack)
	}
}

// MustTime parses an RFC3339 or "2006-01-02T15:04" instant in UTC
func MustTime(t *testing.T, s string) time.Time {
	t.Helper()
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02T15:04", "2006-01-02"} {
		if ts, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return ts
		}
	}
	t.Fatalf("unparseable time %q", s)
	return time.Time{}
}

// Float compares two floats within 1e-9, treating NaN as equal to NaN
func Float(got, want float64) bool {
	if math.IsNaN(want) {
		return math.IsNaN(got)
	}
	return math.Abs(got-want) <= 1e-9
}

// Clock is a settable time source for code that takes a func() time.Time
type Clock struct{ now time.Time }

// NewClock starts a clock at t
func NewClock(t time.Time) *Clock { return &Clock{now: t} }

// Now returns the current instant
func (c *Clock) Now() time.Time { return c.now }

// Advance moves the clock forward by d
func (c *Clock) Advance(d time.Duration) { c.now = c.now.Add(d) }

// Set jumps the clock to t
func (c *Clock) Set(t time.Time) { c.now = t }
