package metrics

import (
	"context"

	"github.com/30blay/biz-stats/internal/core/period"
	perr "github.com/30blay/biz-stats/internal/platform/errors"
	"github.com/30blay/biz-stats/internal/services/warehouse/domain"
)

// Ratio is derived at read time from two stored metrics
type Ratio struct {
	name     string
	num, den domain.Metric
}

// NewRatio requires both operands to be stored metrics of the same type
func NewRatio(name string, num, den domain.Metric) (*Ratio, error) {
	for _, op := range []domain.Metric{num, den} {
		if _, nested := op.(domain.RatioMetric); nested {
			return nil, perr.Configurationf("ratio %s: operand %s is itself a ratio", name, op.Name())
		}
	}
	if num.Type() != den.Type() {
		return nil, perr.Configurationf("ratio %s mixes %s and %s metrics", name, num.Type(), den.Type())
	}
	return &Ratio{name: name, num: num, den: den}, nil
}

// Name implements domain.Metric
func (r *Ratio) Name() string { return r.name }

// Type is the operands' type
func (r *Ratio) Type() domain.MetricType { return r.num.Type() }

// Operands implements domain.RatioMetric
func (r *Ratio) Operands() (domain.Metric, domain.Metric) { return r.num, r.den }

// Fetch divides the operands key by key, keys missing on either side are dropped
func (r *Ratio) Fetch(ctx context.Context, p period.Period, group []string) (map[string]float64, error) {
	if group != nil {
		return nil, domain.ErrGroupingUnsupported
	}
	n, err := r.num.Fetch(ctx, p, nil)
	if err != nil {
		return nil, err
	}
	d, err := r.den.Fetch(ctx, p, nil)
	if err != nil {
		return nil, err
	}
	out := make(map[string]float64, len(n))
	for k, nv := range n {
		dv, ok := d[k]
		if !ok || dv == 0 {
			continue
		}
		out[k] = nv / dv
	}
	return out, nil
}

var _ domain.RatioMetric = (*Ratio)(nil)
