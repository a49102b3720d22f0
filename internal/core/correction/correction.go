// Package correction scales values read back from the warehouse to offset analytics reporting lag
package correction

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type key struct {
	metric string
	hours  int64
}

// Table maps (metric, whole hours of delay) to a multiplicative factor
// lookups that miss return 1
type Table struct {
	factors map[key]float64
}

// Entry is one row of the table
type Entry struct {
	Delay  int64   `yaml:"delay"`
	Metric string  `yaml:"metric"`
	Factor float64 `yaml:"factor"`
}

// New builds a table from entries, a later entry for the same key wins
func New(entries ...Entry) *Table {
	t := &Table{factors: make(map[key]float64, len(entries))}
	for _, e := range entries {
		t.factors[key{metric: e.Metric, hours: e.Delay}] = e.Factor
	}
	return t
}

// Len is the number of distinct keys
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.factors)
}

// DelayHours floors max(0, lastUpdate - periodStart) to whole hours
func DelayHours(periodStart, lastUpdate time.Time) int64 {
	d := lastUpdate.Sub(periodStart)
	if d < 0 {
		return 0
	}
	return int64(d / time.Hour)
}

// Factor returns the factor for metric at a delay in whole hours, 1 when unknown
func (t *Table) Factor(metric string, hours int64) float64 {
	if t == nil {
		return 1
	}
	if f, ok := t.factors[key{metric: metric, hours: hours}]; ok {
		return f
	}
	return 1
}

// Apply corrects one stored value
func (t *Table) Apply(metric string, periodStart, lastUpdate time.Time, value float64) float64 {
	return value * t.Factor(metric, DelayHours(periodStart, lastUpdate))
}

// Load reads a .csv, .yaml or .yml file; an empty path yields the identity table
func Load(path string) (*Table, error) {
	if strings.TrimSpace(path) == "" {
		return New(), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return LoadYAML(f)
	case ".csv":
		return LoadCSV(f)
	}
	return nil, fmt.Errorf("correction: unsupported file type %q", filepath.Ext(path))
}

// LoadCSV reads a headed delay,metric,factor file, columns may come in any order
func LoadCSV(r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("correction: read header: %w", err)
	}
	col := map[string]int{}
	for i, h := range header {
		col[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, need := range []string{"delay", "metric", "factor"} {
		if _, ok := col[need]; !ok {
			return nil, fmt.Errorf("correction: missing column %q", need)
		}
	}

	var entries []Entry
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("correction: line %d: %w", line, err)
		}
		delay, err := parseDelay(rec[col["delay"]])
		if err != nil {
			return nil, fmt.Errorf("correction: line %d delay: %w", line, err)
		}
		factor, err := strconv.ParseFloat(strings.TrimSpace(rec[col["factor"]]), 64)
		if err != nil {
			return nil, fmt.Errorf("correction: line %d factor: %w", line, err)
		}
		entries = append(entries, Entry{Delay: delay, Metric: strings.TrimSpace(rec[col["metric"]]), Factor: factor})
	}
	return New(entries...), nil
}

// LoadYAML reads a list of {delay, metric, factor} entries
func LoadYAML(r io.Reader) (*Table, error) {
	var doc struct {
		Factors []Entry `yaml:"factors"`
	}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("correction: decode yaml: %w", err)
	}
	return New(doc.Factors...), nil
}

// parseDelay accepts whole hours, with an optional fractional part that is floored
func parseDelay(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if h, err := strconv.ParseInt(s, 10, 64); err == nil {
		return h, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	return int64(f), nil
}
