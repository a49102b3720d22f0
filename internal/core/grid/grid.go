// Package grid pivots long fact rows into a dense row x column table of float64
package grid

import (
	"cmp"
	"math"
	"slices"
	"strconv"
	"strings"

	perr "github.com/30blay/biz-stats/internal/platform/errors"
)

// Cell is one long-form value
type Cell struct {
	Row   string
	Col   string
	Value float64
}

// Grid is a dense table, missing cells hold NaN
type Grid struct {
	Index   string      `json:"index"`
	Rows    []string    `json:"rows"`
	Columns []string    `json:"columns"`
	Values  [][]float64 `json:"values"`
}

// Pivot builds a grid from cells
// rows come out in key order; columns follow cols when given, key order otherwise
// an empty input is NoData and a repeated (row, col) pair is an error
func Pivot(index string, cells []Cell, cols []string) (Grid, error) {
	if len(cells) == 0 {
		return Grid{}, perr.NoDataf("no rows to pivot")
	}

	rowSet := map[string]struct{}{}
	colSet := map[string]struct{}{}
	for _, c := range cells {
		rowSet[c.Row] = struct{}{}
		colSet[c.Col] = struct{}{}
	}
	rows := sortedKeys(rowSet)
	if cols == nil {
		cols = sortedKeys(colSet)
	}

	g := New(index, rows, cols)
	rowIdx := indexOf(rows)
	colIdx := indexOf(cols)
	seen := make(map[[2]int]struct{}, len(cells))
	for _, c := range cells {
		j, ok := colIdx[c.Col]
		if !ok {
			continue
		}
		i := rowIdx[c.Row]
		k := [2]int{i, j}
		if _, dup := seen[k]; dup {
			return Grid{}, perr.Newf(perr.ErrorCodeInvalidArgument, "duplicate cell (%s, %s)", c.Row, c.Col)
		}
		seen[k] = struct{}{}
		g.Values[i][j] = c.Value
	}
	return g, nil
}

// New returns a grid of the given shape filled with NaN
func New(index string, rows, cols []string) Grid {
	vals := make([][]float64, len(rows))
	for i := range vals {
		vals[i] = nanRow(len(cols))
	}
	return Grid{
		Index:   index,
		Rows:    slices.Clone(rows),
		Columns: slices.Clone(cols),
		Values:  vals,
	}
}

// Empty reports a grid with no rows or no columns
func (g Grid) Empty() bool { return len(g.Rows) == 0 || len(g.Columns) == 0 }

// Get returns the value at (row, col), ok is false for unknown labels
func (g Grid) Get(row, col string) (float64, bool) {
	i := slices.Index(g.Rows, row)
	j := slices.Index(g.Columns, col)
	if i < 0 || j < 0 {
		return math.NaN(), false
	}
	return g.Values[i][j], true
}

// Column copies one column, nil when absent
func (g Grid) Column(col string) []float64 {
	j := slices.Index(g.Columns, col)
	if j < 0 {
		return nil
	}
	out := make([]float64, len(g.Rows))
	for i := range g.Rows {
		out[i] = g.Values[i][j]
	}
	return out
}

// SetColumn replaces col or appends it on the right
func (g *Grid) SetColumn(col string, vals []float64) error {
	if len(vals) != len(g.Rows) {
		return perr.Newf(perr.ErrorCodeInvalidArgument, "column %s has %d values for %d rows", col, len(vals), len(g.Rows))
	}
	j := slices.Index(g.Columns, col)
	if j < 0 {
		g.Columns = append(g.Columns, col)
		for i := range g.Values {
			g.Values[i] = append(g.Values[i], vals[i])
		}
		return nil
	}
	for i := range g.Values {
		g.Values[i][j] = vals[i]
	}
	return nil
}

// Derive adds col as num / den per row
func (g *Grid) Derive(col, num, den string) error {
	n, d := g.Column(num), g.Column(den)
	if n == nil || d == nil {
		return perr.Newf(perr.ErrorCodeInvalidArgument, "ratio %s needs columns %s and %s", col, num, den)
	}
	return g.SetColumn(col, Ratio(n, d))
}

// Select returns a grid with exactly cols in that order, unknown columns come back as NaN
func (g Grid) Select(cols []string) Grid {
	out := New(g.Index, g.Rows, cols)
	for j, c := range cols {
		src := slices.Index(g.Columns, c)
		if src < 0 {
			continue
		}
		for i := range g.Rows {
			out.Values[i][j] = g.Values[i][src]
		}
	}
	return out
}

// Transpose swaps rows and columns
func (g Grid) Transpose(index string) Grid {
	out := New(index, g.Columns, g.Rows)
	for i := range g.Rows {
		for j := range g.Columns {
			out.Values[j][i] = g.Values[i][j]
		}
	}
	return out
}

// Ratio divides element-wise, a zero or missing operand yields NaN
func Ratio(num, den []float64) []float64 {
	out := make([]float64, len(num))
	for i := range num {
		out[i] = Divide(num[i], den[i])
	}
	return out
}

// Divide returns a/b, NaN when b is zero or either side is NaN
func Divide(a, b float64) float64 {
	if b == 0 || math.IsNaN(a) || math.IsNaN(b) {
		return math.NaN()
	}
	return a / b
}

func nanRow(n int) []float64 {
	r := make([]float64, n)
	for i := range r {
		r[i] = math.NaN()
	}
	return r
}

func indexOf(keys []string) map[string]int {
	m := make(map[string]int, len(keys))
	for i, k := range keys {
		m[k] = i
	}
	return m
}

// sortedKeys orders integer labels numerically and everything else lexically
func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	slices.SortFunc(out, compareKeys)
	return out
}

func compareKeys(a, b string) int {
	ai, aerr := strconv.ParseInt(a, 10, 64)
	bi, berr := strconv.ParseInt(b, 10, 64)
	switch {
	case aerr == nil && berr == nil:
		return cmp.Compare(ai, bi)
	case aerr == nil:
		return -1
	case berr == nil:
		return 1
	}
	return strings.Compare(a, b)
}
