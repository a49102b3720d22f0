package metrics

import (
	"context"
	"strings"

	"github.com/30blay/biz-stats/internal/core/period"
	perr "github.com/30blay/biz-stats/internal/platform/errors"
	"github.com/30blay/biz-stats/internal/platform/store"
	"github.com/30blay/biz-stats/internal/services/warehouse/domain"
)

// BillingSpec is a query against the sales database
// it must select (key, value) and take the window start and end as its two placeholders
type BillingSpec struct {
	Query string `yaml:"query"`
}

// Billing runs a configured sales query per period
type Billing struct {
	name string
	typ  domain.MetricType
	sql  string
	q    store.Querier
}

// NewBilling checks the query has exactly two placeholders
func NewBilling(name string, typ domain.MetricType, s BillingSpec, q store.Querier) (*Billing, error) {
	sql := strings.TrimSpace(s.Query)
	if sql == "" {
		return nil, perr.Configurationf("metric %s: billing query is empty", name)
	}
	if n := strings.Count(sql, "?"); n != 2 {
		return nil, perr.Configurationf("metric %s: billing query has %d placeholders, want 2", name, n)
	}
	return &Billing{name: name, typ: typ, sql: sql, q: q}, nil
}

// Name implements domain.Metric
func (b *Billing) Name() string { return b.name }

// Type implements domain.Metric
func (b *Billing) Type() domain.MetricType { return b.typ }

// Fetch implements domain.Metric over the half open window [start, next start)
func (b *Billing) Fetch(ctx context.Context, p period.Period, group []string) (map[string]float64, error) {
	if group != nil {
		return nil, domain.ErrGroupingUnsupported
	}
	return scanKeyed(ctx, b.q, b.name, b.sql, p.Start, p.Next().Start)
}
