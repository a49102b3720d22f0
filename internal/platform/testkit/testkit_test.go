package testkit

import (
	"math"
	"testing"
	"time"
)

func TestPanicHelpers(t *testing.T) {
	MustPanic(t, func() { panic("boom") })
	MustNotPanic(t, func() {})
}

func TestMustContain(t *testing.T) {
	MustContain(t, "metric=sales period=2020-02", "sales")
}

func TestMustTime(t *testing.T) {
	got := MustTime(t, "2020-02-15T10:30")
	want := time.Date(2020, 2, 15, 10, 30, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("MustTime = %v, want %v", got, want)
	}
	if d := MustTime(t, "2020-02-15"); d.Hour() != 0 || d.Day() != 15 {
		t.Fatalf("MustTime date = %v", d)
	}
}

func TestFloat(t *testing.T) {
	if !Float(math.NaN(), math.NaN()) {
		t.Fatalf("NaN should equal NaN")
	}
	if Float(1, math.NaN()) || !Float(0.1+0.2, 0.3) || Float(1, 2) {
		t.Fatalf("Float mismatch")
	}
}

func TestClock(t *testing.T) {
	start := time.Date(2020, 3, 1, 5, 0, 0, 0, time.UTC)
	c := NewClock(start)
	c.Advance(50 * time.Minute)
	if got := c.Now(); !got.Equal(start.Add(50 * time.Minute)) {
		t.Fatalf("Advance = %v", got)
	}
	c.Set(start)
	if !c.Now().Equal(start) {
		t.Fatalf("Set = %v", c.Now())
	}
}

var seamTarget = func() int { return 1 }

func TestSwap(t *testing.T) {
	Serial(t)
	t.Run("swapped", func(t *testing.T) {
		Swap(t, &seamTarget, func() int { return 2 })
		if seamTarget() != 2 {
			t.Fatalf("Swap did not apply")
		}
	})
	if seamTarget() != 1 {
		t.Fatalf("Swap did not restore")
	}
}
