package period

import (
	"testing"
	"time"
)

func at(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestFloor(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		typ  Type
		want string
	}{
		{"2020-03-15T10:37:12Z", FiveMin, "2020-03-15T10:35:00Z"},
		{"2020-03-15T10:37:12Z", Hour, "2020-03-15T10:00:00Z"},
		{"2020-03-15T10:37:12Z", Day, "2020-03-15T00:00:00Z"},
		{"2020-03-15T10:37:12Z", Month, "2020-03-01T00:00:00Z"},
		{"2020-03-15T10:37:12Z", Quarter, "2020-01-01T00:00:00Z"},
		{"2020-11-30T23:59:59Z", Quarter, "2020-10-01T00:00:00Z"},
		{"2020-03-15T10:37:12Z", Year, "2020-01-01T00:00:00Z"},
		{"2020-03-15T10:00:00Z", Hour, "2020-03-15T10:00:00Z"},
	}
	for _, c := range cases {
		got := Floor(at(c.in), c.typ)
		if !got.Start.Equal(at(c.want)) || got.Type != c.typ {
			t.Fatalf("Floor(%s, %s) = %v, want %s", c.in, c.typ, got.Start, c.want)
		}
	}
}

func TestEnd(t *testing.T) {
	t.Parallel()

	cases := []struct {
		start string
		typ   Type
		want  string
	}{
		{"2020-02-01T00:00:00Z", Month, "2020-02-29T23:59:59.999999999Z"},
		{"2021-02-01T00:00:00Z", Month, "2021-02-28T23:59:59.999999999Z"},
		{"2020-10-01T00:00:00Z", Quarter, "2020-12-31T23:59:59.999999999Z"},
		{"2020-04-01T00:00:00Z", Quarter, "2020-06-30T23:59:59.999999999Z"},
		{"2020-01-01T00:00:00Z", Year, "2020-12-31T23:59:59.999999999Z"},
		{"2020-03-01T05:00:00Z", Hour, "2020-03-01T05:59:59.999999999Z"},
		{"2020-03-01T05:55:00Z", FiveMin, "2020-03-01T05:59:59.999999999Z"},
		{"2020-12-31T00:00:00Z", Day, "2020-12-31T23:59:59.999999999Z"},
	}
	for _, c := range cases {
		p := Floor(at(c.start), c.typ)
		if got := p.End(); !got.Equal(at(c.want)) {
			t.Fatalf("%s End = %v, want %s", p, got, c.want)
		}
		if !p.Next().Start.Equal(p.End().Add(time.Nanosecond)) {
			t.Fatalf("%s next start %v is not end+1ns", p, p.Next().Start)
		}
	}
}

func TestDays(t *testing.T) {
	t.Parallel()

	cases := []struct {
		start string
		typ   Type
		want  int
	}{
		{"2020-02-01T00:00:00Z", Month, 29},
		{"2019-02-01T00:00:00Z", Month, 28},
		{"2020-01-01T00:00:00Z", Month, 31},
		{"2020-01-01T00:00:00Z", Quarter, 91},
		{"2020-01-01T00:00:00Z", Year, 366},
		{"2020-03-04T00:00:00Z", Day, 1},
		{"2020-03-04T07:00:00Z", Hour, 1},
		{"2020-03-04T07:05:00Z", FiveMin, 1},
	}
	for _, c := range cases {
		if got := Floor(at(c.start), c.typ).Days(); got != c.want {
			t.Fatalf("%s %s Days = %d, want %d", c.typ, c.start, got, c.want)
		}
	}
}

func TestTiling(t *testing.T) {
	t.Parallel()

	instants := []string{
		"2020-02-29T23:59:59.999Z",
		"2020-03-01T00:00:00Z",
		"2019-12-31T23:04:59Z",
		"2021-07-15T12:30:00.5Z",
	}
	for _, typ := range Types {
		for _, s := range instants {
			ts := at(s)
			p := Floor(ts, typ)
			if !p.Contains(ts) {
				t.Fatalf("Floor(%s, %s) = [%v, %v] does not contain it", s, typ, p.Start, p.End())
			}
			if !Floor(p.Start, typ).Same(p) || !Floor(p.End(), typ).Same(p) {
				t.Fatalf("%s: bounds fall into another bucket", p)
			}
		}
	}
}

func TestTiling_OutsideUTC(t *testing.T) {
	t.Parallel()

	locs := []string{"America/Montreal", "Asia/Kathmandu", "Australia/Lord_Howe"}
	for _, name := range locs {
		loc, err := time.LoadLocation(name)
		if err != nil {
			t.Skipf("no tzdata for %s: %v", name, err)
		}
		// walk across the Montreal fall-back night, 01:00-02:00 repeats
		from := at("2020-11-01T04:00:00Z")
		for ts := from; ts.Before(from.Add(4 * time.Hour)); ts = ts.Add(7*time.Minute + 13*time.Second) {
			local := ts.In(loc)
			for _, typ := range Types {
				p := Floor(local, typ)
				if !p.Contains(local) {
					t.Fatalf("%s: Floor(%v, %s) = [%v, %v] does not contain it", name, local, typ, p.Start, p.End())
				}
				if !p.Same(Floor(ts, typ)) {
					t.Fatalf("%s: Floor(%v, %s) = %v, want the UTC bucket %v", name, local, typ, p, Floor(ts, typ))
				}
				if p.Start.Location() != time.UTC {
					t.Fatalf("%s: start %v is not UTC", name, p.Start)
				}
			}
		}
	}
}

func TestDays_LocalStart(t *testing.T) {
	t.Parallel()

	loc, err := time.LoadLocation("America/Montreal")
	if err != nil {
		t.Skipf("no tzdata: %v", err)
	}
	// March 2020 has the spring-forward day in Montreal
	p := Period{Type: Month, Start: at("2020-03-01T00:00:00Z").In(loc)}
	if got := p.Days(); got != 31 {
		t.Fatalf("Days = %d, want 31", got)
	}
	if !p.End().Equal(at("2020-03-31T23:59:59.999999999Z")) {
		t.Fatalf("End = %v", p.End())
	}
}

func TestBetween(t *testing.T) {
	t.Parallel()

	got := Between(at("2020-01-01T00:00:00Z"), at("2020-01-03T00:00:00Z"), Day)
	want := []string{"2020-01-01T00:00:00Z", "2020-01-02T00:00:00Z", "2020-01-03T00:00:00Z"}
	if len(got) != len(want) {
		t.Fatalf("Between days = %d periods, want %d", len(got), len(want))
	}
	for i := range want {
		if !got[i].Start.Equal(at(want[i])) {
			t.Fatalf("Between[%d] = %v, want %s", i, got[i].Start, want[i])
		}
	}

	months := Between(at("2019-11-20T00:00:00Z"), at("2020-02-10T00:00:00Z"), Month)
	if len(months) != 4 || !months[0].Start.Equal(at("2019-11-01T00:00:00Z")) {
		t.Fatalf("Between months = %v", months)
	}
	for i := 1; i < len(months); i++ {
		if !months[i].Start.Equal(months[i-1].End().Add(time.Nanosecond)) {
			t.Fatalf("gap between %s and %s", months[i-1], months[i])
		}
	}

	same := Between(at("2020-03-01T10:30:00Z"), at("2020-03-01T10:45:00Z"), Hour)
	if len(same) != 1 {
		t.Fatalf("start and stop in one bucket = %d periods, want 1", len(same))
	}

	if got := Between(at("2020-03-02T00:00:00Z"), at("2020-03-01T00:00:00Z"), Day); got != nil {
		t.Fatalf("stop before start = %v, want nil", got)
	}

	fives := Between(at("2020-03-01T00:00:00Z"), at("2020-03-01T00:59:59Z"), FiveMin)
	if len(fives) != 12 {
		t.Fatalf("five minute buckets in an hour = %d, want 12", len(fives))
	}
}

func TestParseType(t *testing.T) {
	t.Parallel()

	for in, want := range map[string]Type{
		"MONTH":    Month,
		"five_min": FiveMin,
		"FIVEMIN":  FiveMin,
		" hour ":   Hour,
		"Quarter":  Quarter,
	} {
		got, err := ParseType(in)
		if err != nil || got != want {
			t.Fatalf("ParseType(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
	if _, err := ParseType("week"); err == nil {
		t.Fatalf("ParseType(week) should fail")
	}
	if Type("").Valid() || !Day.Valid() {
		t.Fatalf("Valid misreports")
	}
}

func TestFloorPanicsOnUnknownType(t *testing.T) {
	t.Parallel()
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic")
		}
	}()
	Floor(time.Now(), Type("week"))
}

func TestHelpers(t *testing.T) {
	t.Parallel()

	if LastDayOfMonth(2020, time.February) != 29 || LastDayOfMonth(2100, time.February) != 28 {
		t.Fatalf("LastDayOfMonth leap handling wrong")
	}
	if LastDayOfMonth(2020, time.December) != 31 || DaysInMonth(at("2021-04-09T00:00:00Z")) != 30 {
		t.Fatalf("LastDayOfMonth(December) wrong")
	}
	if got := NextMonth(at("2020-12-15T08:00:00Z")); !got.Equal(at("2021-01-01T00:00:00Z")) {
		t.Fatalf("NextMonth = %v", got)
	}
	if QuarterStartMonth(time.June) != time.April {
		t.Fatalf("QuarterStartMonth(June) = %v", QuarterStartMonth(time.June))
	}
	if s := Floor(at("2020-05-02T00:00:00Z"), Quarter).String(); s != "quarter 2020Q2" {
		t.Fatalf("String = %q", s)
	}
}
