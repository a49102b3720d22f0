// Package metrics builds the metric catalog from a YAML file
// each entry names a source strategy: events, billing, manual or ratio
package metrics

import (
	"errors"
	"io"
	"os"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	perr "github.com/30blay/biz-stats/internal/platform/errors"
	"github.com/30blay/biz-stats/internal/platform/store"
	"github.com/30blay/biz-stats/internal/services/warehouse/domain"
)

// Source kinds
const (
	SourceEvents  = "events"
	SourceBilling = "billing"
	SourceManual  = "manual"
	SourceRatio   = "ratio"
)

// Backends are the query seams sources may need, nil when not configured
type Backends struct {
	Events  store.Querier
	Billing store.Querier
}

// Spec is one catalog entry as written in the file
type Spec struct {
	Name    string            `yaml:"name"`
	Type    domain.MetricType `yaml:"type"`
	Source  string            `yaml:"source"`
	Events  *EventsSpec       `yaml:"events,omitempty"`
	Billing *BillingSpec      `yaml:"billing,omitempty"`
	Manual  map[string]Values `yaml:"manual,omitempty"`
	Ratio   *RatioSpec        `yaml:"ratio,omitempty"`
}

// Values maps an entity key to a value
type Values map[string]float64

// RatioSpec names the two stored operands of a ratio
type RatioSpec struct {
	Numerator   string `yaml:"numerator"`
	Denominator string `yaml:"denominator"`
}

// Catalog implements domain.Catalog over a fixed set of metrics
type Catalog struct {
	byName map[string]domain.Metric
	names  []string
}

// Load reads a catalog file; an empty path gives an empty catalog
func Load(path string, b Backends) (*Catalog, error) {
	if strings.TrimSpace(path) == "" {
		return &Catalog{byName: map[string]domain.Metric{}}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, perr.WithField(perr.Wrap(err, perr.ErrorCodeConfiguration, "open metric catalog"), path)
	}
	defer f.Close()
	return Decode(f, b)
}

// Decode parses and builds a catalog
func Decode(r io.Reader, b Backends) (*Catalog, error) {
	var doc struct {
		Metrics []Spec `yaml:"metrics"`
	}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
		return nil, perr.Wrap(err, perr.ErrorCodeConfiguration, "decode metric catalog")
	}
	return Build(doc.Metrics, b)
}

// Build resolves specs in order; a ratio may only reference metrics declared before it
func Build(specs []Spec, b Backends) (*Catalog, error) {
	c := &Catalog{byName: make(map[string]domain.Metric, len(specs))}
	for _, s := range specs {
		s.Name = strings.TrimSpace(s.Name)
		if s.Name == "" {
			return nil, perr.Configurationf("metric catalog entry without a name")
		}
		if _, dup := c.byName[s.Name]; dup {
			return nil, perr.WithField(perr.Configurationf("metric %s declared twice", s.Name), s.Name)
		}
		m, err := c.build(s, b)
		if err != nil {
			return nil, perr.WithField(err, s.Name)
		}
		c.byName[s.Name] = m
		c.names = append(c.names, s.Name)
	}
	return c, nil
}

func (c *Catalog) build(s Spec, b Backends) (domain.Metric, error) {
	if s.Source != SourceRatio {
		if _, err := domain.TableFor(s.Type); err != nil {
			return nil, err
		}
	}
	switch s.Source {
	case SourceEvents:
		if s.Events == nil {
			return nil, perr.Configurationf("metric %s: events block missing", s.Name)
		}
		if b.Events == nil {
			return nil, perr.Configurationf("metric %s needs the clickhouse backend", s.Name)
		}
		return NewEvents(s.Name, s.Type, *s.Events, b.Events)
	case SourceBilling:
		if s.Billing == nil {
			return nil, perr.Configurationf("metric %s: billing block missing", s.Name)
		}
		if b.Billing == nil {
			return nil, perr.Configurationf("metric %s needs the billing backend", s.Name)
		}
		return NewBilling(s.Name, s.Type, *s.Billing, b.Billing)
	case SourceManual:
		return NewManual(s.Name, s.Type, s.Manual)
	case SourceRatio:
		if s.Ratio == nil {
			return nil, perr.Configurationf("metric %s: ratio block missing", s.Name)
		}
		num, err := c.Lookup(s.Ratio.Numerator)
		if err != nil {
			return nil, err
		}
		den, err := c.Lookup(s.Ratio.Denominator)
		if err != nil {
			return nil, err
		}
		return NewRatio(s.Name, num, den)
	}
	return nil, perr.Configurationf("metric %s: unknown source %q", s.Name, s.Source)
}

// Lookup implements domain.Catalog
func (c *Catalog) Lookup(name string) (domain.Metric, error) {
	if m, ok := c.byName[name]; ok {
		return m, nil
	}
	return nil, perr.WithField(perr.NotFoundf("unknown metric %q", name), "metric")
}

// LookupAll resolves names in order, stopping at the first unknown one
func (c *Catalog) LookupAll(names []string) ([]domain.Metric, error) {
	out := make([]domain.Metric, 0, len(names))
	for _, n := range names {
		m, err := c.Lookup(n)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}

// Names implements domain.Catalog, in declaration order
func (c *Catalog) Names() []string { return slices.Clone(c.names) }

var _ domain.Catalog = (*Catalog)(nil)
