// Package period defines the calendar buckets facts are keyed by
package period

import (
	"fmt"
	"strings"
	"time"
)

// Type is a bucket granularity
type Type string

// Bucket types, each with its own width rule
const (
	FiveMin Type = "five_min"
	Hour    Type = "hour"
	Day     Type = "day"
	Month   Type = "month"
	Quarter Type = "quarter"
	Year    Type = "year"
)

// Types lists every bucket type
var Types = []Type{FiveMin, Hour, Day, Month, Quarter, Year}

// ParseType accepts the canonical lower case names and upper case aliases such as FIVEMIN
func ParseType(s string) (Type, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "five_min", "fivemin", "5m":
		return FiveMin, nil
	case "hour":
		return Hour, nil
	case "day":
		return Day, nil
	case "month":
		return Month, nil
	case "quarter":
		return Quarter, nil
	case "year":
		return Year, nil
	}
	return "", fmt.Errorf("unknown period type %q", s)
}

// Valid reports whether t is one of Types
func (t Type) Valid() bool {
	_, err := ParseType(string(t))
	return err == nil && t != ""
}

// Period is one bucket, unique by (Type, Start)
// ID is the warehouse surrogate key and stays zero until persisted
type Period struct {
	ID    int64     `json:"period_id,omitempty"`
	Type  Type      `json:"type"`
	Start time.Time `json:"start"`
}

// Floor returns the bucket of type typ containing t
// buckets are cut on the UTC calendar, the start is always in UTC
func Floor(t time.Time, typ Type) Period {
	t = t.UTC()
	loc := time.UTC
	y, m, d := t.Date()
	var start time.Time
	switch typ {
	case FiveMin:
		start = time.Date(y, m, d, t.Hour(), t.Minute()-t.Minute()%5, 0, 0, loc)
	case Hour:
		start = time.Date(y, m, d, t.Hour(), 0, 0, 0, loc)
	case Day:
		start = time.Date(y, m, d, 0, 0, 0, 0, loc)
	case Month:
		start = time.Date(y, m, 1, 0, 0, 0, 0, loc)
	case Quarter:
		start = time.Date(y, QuarterStartMonth(m), 1, 0, 0, 0, 0, loc)
	case Year:
		start = time.Date(y, time.January, 1, 0, 0, 0, 0, loc)
	default:
		panic(fmt.Sprintf("period: unsupported type %q", typ))
	}
	return Period{Type: typ, Start: start}
}

// QuarterStartMonth maps a month onto 1, 4, 7 or 10
func QuarterStartMonth(m time.Month) time.Month {
	return time.Month(3*((int(m)-1)/3) + 1)
}

// End is the last instant strictly before the next bucket starts
// a Start outside UTC is read as its UTC instant
func (p Period) End() time.Time {
	start := p.Start.UTC()
	loc := time.UTC
	y, m, _ := start.Date()
	var last time.Time
	switch p.Type {
	case FiveMin:
		return start.Add(5*time.Minute - time.Nanosecond)
	case Hour:
		return start.Add(time.Hour - time.Nanosecond)
	case Day:
		last = start
	case Month:
		last = time.Date(y, m, LastDayOfMonth(y, m), 0, 0, 0, 0, loc)
	case Quarter:
		qm := QuarterStartMonth(m) + 2
		last = time.Date(y, qm, LastDayOfMonth(y, qm), 0, 0, 0, 0, loc)
	case Year:
		last = time.Date(y, time.December, 31, 0, 0, 0, 0, loc)
	default:
		panic(fmt.Sprintf("period: unsupported type %q", p.Type))
	}
	return endOfDay(last)
}

func endOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 23, 59, 59, int(time.Second-time.Nanosecond), t.Location())
}

// Next returns the bucket that follows p
func (p Period) Next() Period { return Floor(p.End().Add(time.Nanosecond), p.Type) }

// Days is the inclusive day count between start and end, (end-start).days + 1
// End is on the UTC calendar so every day spans exactly 24h
func (p Period) Days() int {
	return int(p.End().Sub(p.Start.UTC())/(24*time.Hour)) + 1
}

// Contains reports whether t falls inside the bucket
func (p Period) Contains(t time.Time) bool {
	return !t.Before(p.Start) && !t.After(p.End())
}

// Same reports whether two periods are the same bucket, ignoring ID
func (p Period) Same(o Period) bool { return p.Type == o.Type && p.Start.Equal(o.Start) }

func (p Period) String() string {
	switch p.Type {
	case FiveMin, Hour:
		return fmt.Sprintf("%s %s", p.Type, p.Start.Format("2006-01-02T15:04"))
	case Month:
		return fmt.Sprintf("%s %s", p.Type, p.Start.Format("2006-01"))
	case Quarter:
		return fmt.Sprintf("%s %dQ%d", p.Type, p.Start.Year(), (int(p.Start.Month())-1)/3+1)
	case Year:
		return fmt.Sprintf("%s %d", p.Type, p.Start.Year())
	}
	return fmt.Sprintf("%s %s", p.Type, p.Start.Format("2006-01-02"))
}

// Between enumerates every bucket whose start lies in [Floor(start).Start, stop], in order
// a start and stop inside the same bucket yield that one bucket
func Between(start, stop time.Time, typ Type) []Period {
	var out []Period
	for p := Floor(start, typ); !p.Start.After(stop); p = p.Next() {
		out = append(out, p)
	}
	return out
}

// LastDayOfMonth returns 28 to 31 for the given month
func LastDayOfMonth(year int, m time.Month) int {
	return time.Date(year, m+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// NextMonth returns the first instant of the month after t
func NextMonth(t time.Time) time.Time {
	y, m, _ := t.Date()
	return time.Date(y, m+1, 1, 0, 0, 0, 0, t.Location())
}

// DaysInMonth is the length of t's month
func DaysInMonth(t time.Time) int { return LastDayOfMonth(t.Year(), t.Month()) }
