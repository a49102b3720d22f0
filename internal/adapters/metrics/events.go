package metrics

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/30blay/biz-stats/internal/core/period"
	perr "github.com/30blay/biz-stats/internal/platform/errors"
	"github.com/30blay/biz-stats/internal/platform/store"
	"github.com/30blay/biz-stats/internal/services/warehouse/domain"
)

// EventsSpec describes an aggregate over the event analytics table
type EventsSpec struct {
	Table      string `yaml:"table"`
	Key        string `yaml:"key"`
	TimeColumn string `yaml:"time_column"`
	Event      string `yaml:"event"`
	Aggregate  string `yaml:"aggregate"`
	Column     string `yaml:"column"`
}

var ident = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

// Events counts or sums event rows per key over the period window
type Events struct {
	name string
	typ  domain.MetricType
	sql  string
	args func(p period.Period) []any
	q    store.Querier
}

// NewEvents validates identifiers and renders the query once
func NewEvents(name string, typ domain.MetricType, s EventsSpec, q store.Querier) (*Events, error) {
	if s.TimeColumn == "" {
		s.TimeColumn = "event_time"
	}
	if s.Aggregate == "" {
		s.Aggregate = "count"
	}
	for _, id := range []string{s.Table, s.Key, s.TimeColumn} {
		if !ident.MatchString(id) {
			return nil, perr.Configurationf("metric %s: bad identifier %q", name, id)
		}
	}

	var agg string
	switch strings.ToLower(s.Aggregate) {
	case "count":
		agg = "count()"
	case "uniq", "sum":
		if !ident.MatchString(s.Column) {
			return nil, perr.Configurationf("metric %s: %s needs a column", name, s.Aggregate)
		}
		if strings.EqualFold(s.Aggregate, "uniq") {
			agg = "uniqExact(" + s.Column + ")"
		} else {
			agg = "sum(" + s.Column + ")"
		}
	default:
		return nil, perr.Configurationf("metric %s: unknown aggregate %q", name, s.Aggregate)
	}

	where := fmt.Sprintf("%s >= ? AND %s < ?", s.TimeColumn, s.TimeColumn)
	if s.Event != "" {
		where += " AND event = ?"
	}
	sql := fmt.Sprintf("SELECT toString(%s) AS k, toFloat64(%s) AS v FROM %s WHERE %s GROUP BY k",
		s.Key, agg, s.Table, where)
	e := &Events{name: name, typ: typ, sql: sql, q: q}
	event := s.Event
	e.args = func(p period.Period) []any {
		args := []any{p.Start, p.Next().Start}
		if event != "" {
			args = append(args, event)
		}
		return args
	}
	return e, nil
}

// Name implements domain.Metric
func (e *Events) Name() string { return e.name }

// Type implements domain.Metric
func (e *Events) Type() domain.MetricType { return e.typ }

// Fetch implements domain.Metric
func (e *Events) Fetch(ctx context.Context, p period.Period, group []string) (map[string]float64, error) {
	if group != nil {
		return nil, domain.ErrGroupingUnsupported
	}
	return scanKeyed(ctx, e.q, e.name, e.sql, e.args(p)...)
}

// scanKeyed reads (key, value) rows into a map, a repeated key is summed
func scanKeyed(ctx context.Context, q store.Querier, name, sql string, args ...any) (map[string]float64, error) {
	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return nil, perr.Wrapf(err, perr.ErrorCodeUpstream, "fetch %s", name)
	}
	defer rows.Close()

	out := map[string]float64{}
	for rows.Next() {
		var (
			k string
			v float64
		)
		if err := rows.Scan(&k, &v); err != nil {
			return nil, perr.Wrapf(err, perr.ErrorCodeUpstream, "scan %s", name)
		}
		out[k] += v
	}
	if err := rows.Err(); err != nil {
		return nil, perr.Wrapf(err, perr.ErrorCodeUpstream, "fetch %s", name)
	}
	return out, nil
}
