package grid

import (
	"bytes"
	"math"
	"strings"
	"testing"

	perr "github.com/30blay/biz-stats/internal/platform/errors"
	"github.com/30blay/biz-stats/internal/platform/testkit"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

func TestPivot(t *testing.T) {
	t.Parallel()

	cells := []Cell{
		{Row: "stm", Col: "2020-02-01", Value: 3},
		{Row: "ttc", Col: "2020-01-01", Value: 2},
		{Row: "stm", Col: "2020-01-01", Value: 1},
	}
	g, err := Pivot("feed_code", cells, nil)
	if err != nil {
		t.Fatalf("Pivot: %v", err)
	}
	if strings.Join(g.Rows, ",") != "stm,ttc" || strings.Join(g.Columns, ",") != "2020-01-01,2020-02-01" {
		t.Fatalf("labels rows=%v cols=%v", g.Rows, g.Columns)
	}
	if v, _ := g.Get("stm", "2020-02-01"); v != 3 {
		t.Fatalf("stm/feb = %v, want 3", v)
	}
	if v, ok := g.Get("ttc", "2020-02-01"); !ok || !math.IsNaN(v) {
		t.Fatalf("missing cell = %v, %v; want NaN", v, ok)
	}
	if _, ok := g.Get("nope", "2020-02-01"); ok {
		t.Fatalf("unknown row reported ok")
	}
}

func TestPivotColumnOrderAndNumericRows(t *testing.T) {
	t.Parallel()

	cells := []Cell{
		{Row: "10", Col: "users", Value: 5},
		{Row: "9", Col: "sessions", Value: 7},
	}
	g, err := Pivot("global_route_id", cells, []string{"users", "sessions", "downloads"})
	if err != nil {
		t.Fatalf("Pivot: %v", err)
	}
	if strings.Join(g.Rows, ",") != "9,10" {
		t.Fatalf("numeric rows sorted as %v", g.Rows)
	}
	if strings.Join(g.Columns, ",") != "users,sessions,downloads" {
		t.Fatalf("columns = %v", g.Columns)
	}
	if !math.IsNaN(g.Column("downloads")[0]) {
		t.Fatalf("absent column should be NaN")
	}
}

func TestPivotErrors(t *testing.T) {
	t.Parallel()

	if _, err := Pivot("x", nil, nil); !perr.IsCode(err, perr.ErrorCodeNoData) {
		t.Fatalf("empty pivot = %v, want no data", err)
	}
	dup := []Cell{{Row: "a", Col: "b", Value: 1}, {Row: "a", Col: "b", Value: 2}}
	if _, err := Pivot("x", dup, nil); err == nil {
		t.Fatalf("duplicate cell not reported")
	}
}

func TestDeriveAndSelect(t *testing.T) {
	t.Parallel()

	g, err := Pivot("feed_code", []Cell{
		{Row: "a", Col: "downloads", Value: 10},
		{Row: "a", Col: "users", Value: 4},
		{Row: "b", Col: "downloads", Value: 0},
		{Row: "b", Col: "users", Value: 3},
		{Row: "c", Col: "users", Value: 3},
	}, nil)
	if err != nil {
		t.Fatalf("Pivot: %v", err)
	}
	if err := g.Derive("users_per_download", "users", "downloads"); err != nil {
		t.Fatalf("Derive: %v", err)
	}
	r := g.Column("users_per_download")
	if !testkit.Float(r[0], 0.4) || !math.IsNaN(r[1]) || !math.IsNaN(r[2]) {
		t.Fatalf("ratio = %v, want [0.4 NaN NaN]", r)
	}
	if err := g.Derive("x", "users", "absent"); err == nil {
		t.Fatalf("Derive with missing operand should fail")
	}

	s := g.Select([]string{"users_per_download", "users"})
	if strings.Join(s.Columns, ",") != "users_per_download,users" || s.Values[0][1] != 4 {
		t.Fatalf("Select = %+v", s)
	}
	if err := s.SetColumn("users", []float64{1}); err == nil {
		t.Fatalf("SetColumn with wrong length should fail")
	}

	tr := s.Transpose("metric")
	if tr.Index != "metric" || len(tr.Rows) != 2 || len(tr.Columns) != 3 || tr.Values[1][0] != 4 {
		t.Fatalf("Transpose = %+v", tr)
	}
}

func TestDivide(t *testing.T) {
	t.Parallel()

	if Divide(6, 3) != 2 {
		t.Fatalf("6/3 != 2")
	}
	for _, c := range [][2]float64{{1, 0}, {math.NaN(), 1}, {1, math.NaN()}} {
		if !math.IsNaN(Divide(c[0], c[1])) {
			t.Fatalf("Divide(%v, %v) should be NaN", c[0], c[1])
		}
	}
}

func TestRender(t *testing.T) {
	t.Parallel()

	g := New("feed_code", []string{"stm"}, []string{"users", "sessions"})
	g.Values[0][0] = 1234567.891
	var buf bytes.Buffer
	if err := Render(&buf, g, RenderOptions{Missing: "-"}); err != nil {
		t.Fatalf("Render: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"1,234,567.89", "stm", "-"} {
		if !strings.Contains(out, want) {
			t.Fatalf("render output missing %q:\n%s", want, out)
		}
	}
	if got := FormatValue(message.NewPrinter(language.French), 1500.5, 1, ""); got == "1500.5" {
		t.Fatalf("french grouping not applied: %q", got)
	}
}
