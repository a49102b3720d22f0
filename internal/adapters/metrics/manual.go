package metrics

import (
	"context"
	"maps"
	"time"

	"github.com/30blay/biz-stats/internal/core/period"
	perr "github.com/30blay/biz-stats/internal/platform/errors"
	"github.com/30blay/biz-stats/internal/services/warehouse/domain"
)

const minuteLayout = "2006-01-02T15:04"

// Manual serves hand entered values keyed by period start, 2006-01-02 or 2006-01-02T15:04
type Manual struct {
	name   string
	typ    domain.MetricType
	values map[string]Values
}

// NewManual validates the date keys up front
func NewManual(name string, typ domain.MetricType, values map[string]Values) (*Manual, error) {
	norm := make(map[string]Values, len(values))
	for k, v := range values {
		t, err := time.Parse(minuteLayout, k)
		if err != nil {
			if t, err = time.Parse(time.DateOnly, k); err != nil {
				return nil, perr.Configurationf("metric %s: bad period start %q", name, k)
			}
		}
		norm[t.Format(minuteLayout)] = v
	}
	return &Manual{name: name, typ: typ, values: norm}, nil
}

// Name implements domain.Metric
func (m *Manual) Name() string { return m.name }

// Type implements domain.Metric
func (m *Manual) Type() domain.MetricType { return m.typ }

// Fetch returns a copy of the values entered for p's start, empty when none
func (m *Manual) Fetch(_ context.Context, p period.Period, group []string) (map[string]float64, error) {
	if group != nil {
		return nil, domain.ErrGroupingUnsupported
	}
	v := m.values[p.Start.Format(minuteLayout)]
	out := make(map[string]float64, len(v))
	maps.Copy(out, v)
	return out, nil
}
