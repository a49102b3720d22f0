package service

import (
	"context"
	"strconv"
	"time"

	"github.com/30blay/biz-stats/internal/core/grid"
	"github.com/30blay/biz-stats/internal/core/period"
	perr "github.com/30blay/biz-stats/internal/platform/errors"
	"github.com/30blay/biz-stats/internal/services/warehouse/domain"
)

// row and column labels for period starts
const startLayout = time.RFC3339

// SliceFeed implements domain.SlicerPort
// rows are period starts in [start, stop], columns are metrics in request order
func (s *Svc) SliceFeed(ctx context.Context, feedCode string, metrics []domain.Metric, start, stop time.Time, typ period.Type) (grid.Grid, error) {
	defer observeSlice("feed", time.Now())
	if err := checkWindow(start, stop, typ); err != nil {
		return grid.Grid{}, err
	}
	stored, err := s.agencyShape(metrics)
	if err != nil {
		return grid.Grid{}, err
	}

	feed, err := s.feedByCode(ctx, feedCode)
	if err != nil {
		return grid.Grid{}, err
	}
	if s.cfg.LoadBeforePull {
		if _, err := s.LoadBetween(ctx, start, stop, typ, metrics); err != nil {
			return grid.Grid{}, err
		}
	}
	entityID, err := s.Resolve(ctx, feed.ID)
	if err != nil {
		return grid.Grid{}, err
	}

	rows, err := s.binder.Bind(s.db).QueryAgencyFacts(ctx, domain.FactFilter{
		EntityIDs: []int64{entityID},
		Metrics:   names(stored),
		Type:      typ,
		From:      start,
		To:        stop,
	})
	if err != nil {
		return grid.Grid{}, err
	}
	if len(rows) == 0 {
		return grid.Grid{}, perr.NoDataf("no data for feed %s between %s and %s", feedCode, start.Format(startLayout), stop.Format(startLayout))
	}

	cells := make([]grid.Cell, 0, len(rows))
	for _, r := range rows {
		cells = append(cells, grid.Cell{Row: r.PeriodStart.Format(startLayout), Col: r.Metric, Value: s.corrected(r)})
	}
	g, err := grid.Pivot("start", cells, names(stored))
	if err != nil {
		return grid.Grid{}, err
	}
	return deriveRatios(g, metrics)
}

// SliceMetric implements domain.SlicerPort
// rows are entity keys, columns are period starts
func (s *Svc) SliceMetric(ctx context.Context, start, stop time.Time, typ period.Type, m domain.Metric) (grid.Grid, error) {
	defer observeSlice("metric", time.Now())
	if err := checkWindow(start, stop, typ); err != nil {
		return grid.Grid{}, err
	}
	if m == nil {
		return grid.Grid{}, perr.InvalidArgf("metric is required")
	}
	if _, ok := m.(domain.RatioMetric); ok {
		return grid.Grid{}, perr.InvalidArgf("ratio metric %s cannot be sliced across entities", m.Name())
	}
	if _, err := domain.TableFor(m.Type()); err != nil {
		return grid.Grid{}, err
	}
	if s.cfg.LoadBeforePull {
		if _, err := s.LoadBetween(ctx, start, stop, typ, []domain.Metric{m}); err != nil {
			return grid.Grid{}, err
		}
	}

	f := domain.FactFilter{Metrics: []string{m.Name()}, Type: typ, From: start, To: stop}
	var (
		rows  []domain.FactRow
		err   error
		index string
		label func(domain.FactRow) string
	)
	switch m.Type() {
	case domain.MetricRoute:
		index = "global_route_id"
		rows, err = s.binder.Bind(s.db).QueryRouteFacts(ctx, f)
		label = func(r domain.FactRow) string { return strconv.FormatInt(r.Ref, 10) }
	default:
		index = "feed_code"
		if m.Type() == domain.MetricSharingService {
			index = "system_name"
		}
		rows, err = s.binder.Bind(s.db).QueryAgencyFacts(ctx, f)
		if err == nil {
			label, err = s.entityLabels(ctx)
		}
	}
	if err != nil {
		return grid.Grid{}, err
	}
	if len(rows) == 0 {
		return grid.Grid{}, perr.NoDataf("no data for metric %s between %s and %s", m.Name(), start.Format(startLayout), stop.Format(startLayout))
	}

	cells := make([]grid.Cell, 0, len(rows))
	for _, r := range rows {
		cells = append(cells, grid.Cell{Row: label(r), Col: r.PeriodStart.Format(startLayout), Value: s.corrected(r)})
	}
	return grid.Pivot(index, cells, nil)
}

// SlicePeriod implements domain.SlicerPort
// rows are entity keys, columns are metrics in request order with ratios computed per row
func (s *Svc) SlicePeriod(ctx context.Context, p period.Period, metrics []domain.Metric) (grid.Grid, error) {
	defer observeSlice("period", time.Now())
	if !p.Type.Valid() {
		return grid.Grid{}, perr.InvalidArgf("unknown period type %q", p.Type)
	}
	stored, err := s.agencyShape(metrics)
	if err != nil {
		return grid.Grid{}, err
	}

	p, err = s.ensurePeriod(ctx, period.Floor(p.Start, p.Type))
	if err != nil {
		return grid.Grid{}, err
	}
	if s.cfg.LoadBeforePull {
		if _, err := s.Load(ctx, []period.Period{p}, metrics); err != nil {
			return grid.Grid{}, err
		}
	}

	rows, err := s.binder.Bind(s.db).QueryAgencyFacts(ctx, domain.FactFilter{
		PeriodID: p.ID,
		Metrics:  names(stored),
	})
	if err != nil {
		return grid.Grid{}, err
	}
	if len(rows) == 0 {
		return grid.Grid{}, perr.NoDataf("no data for metrics %v at %s", names(metrics), p)
	}
	label, err := s.entityLabels(ctx)
	if err != nil {
		return grid.Grid{}, err
	}

	cells := make([]grid.Cell, 0, len(rows))
	for _, r := range rows {
		cells = append(cells, grid.Cell{Row: label(r), Col: r.Metric, Value: s.corrected(r)})
	}
	g, err := grid.Pivot("entity", cells, names(stored))
	if err != nil {
		return grid.Grid{}, err
	}
	return deriveRatios(g, metrics)
}

// corrected applies the delayed reporting factor to one stored value
func (s *Svc) corrected(r domain.FactRow) float64 {
	return s.cfg.Correction.Apply(r.Metric, r.PeriodStart, r.LastUpdate, r.Value)
}

// agencyShape checks metrics for an entity keyed read and returns what must be read from storage
func (s *Svc) agencyShape(metrics []domain.Metric) ([]domain.Metric, error) {
	if len(metrics) == 0 {
		return nil, perr.InvalidArgf("at least one metric is required")
	}
	stored, err := storedMetrics(metrics)
	if err != nil {
		return nil, err
	}
	for _, m := range stored {
		if m.Type() == domain.MetricRoute {
			return nil, perr.WithField(perr.InvalidArgf("route metric %s cannot be read per entity", m.Name()), m.Name())
		}
	}
	return stored, nil
}

// deriveRatios adds every requested ratio column then orders columns as requested
func deriveRatios(g grid.Grid, metrics []domain.Metric) (grid.Grid, error) {
	for _, m := range metrics {
		r, ok := m.(domain.RatioMetric)
		if !ok {
			continue
		}
		num, den := r.Operands()
		if err := g.Derive(r.Name(), num.Name(), den.Name()); err != nil {
			return grid.Grid{}, err
		}
	}
	return g.Select(names(metrics)), nil
}

// entityLabels names agency rows by feed code or system name, falling back to the raw id
func (s *Svc) entityLabels(ctx context.Context) (func(domain.FactRow) string, error) {
	feeds, err := s.dir.Feeds(ctx)
	if err != nil {
		return nil, err
	}
	systems, err := s.dir.SharingSystems(ctx)
	if err != nil {
		return nil, err
	}
	codes := make(map[int64]string, len(feeds))
	for _, f := range feeds {
		codes[f.ID] = f.Code
	}
	sysNames := make(map[int64]string, len(systems))
	for _, sys := range systems {
		sysNames[sys.ID] = sys.Name
	}
	return func(r domain.FactRow) string {
		var (
			v  string
			ok bool
		)
		switch r.EntityType {
		case domain.EntityFeed:
			v, ok = codes[r.Ref]
		case domain.EntitySharingSystem:
			v, ok = sysNames[r.Ref]
		}
		if !ok {
			return strconv.FormatInt(r.Ref, 10)
		}
		return v
	}, nil
}

func (s *Svc) feedByCode(ctx context.Context, code string) (domain.Feed, error) {
	feeds, err := s.dir.Feeds(ctx)
	if err != nil {
		return domain.Feed{}, err
	}
	for _, f := range feeds {
		if f.Code == code {
			return f, nil
		}
	}
	return domain.Feed{}, perr.WithField(perr.NotFoundf("unknown feed code %q", code), "feed_code")
}

func checkWindow(start, stop time.Time, typ period.Type) error {
	if !typ.Valid() {
		return perr.InvalidArgf("unknown period type %q", typ)
	}
	if stop.Before(start) {
		return perr.InvalidArgf("stop %s precedes start %s", stop.Format(startLayout), start.Format(startLayout))
	}
	return nil
}

func names(ms []domain.Metric) []string {
	out := make([]string, len(ms))
	for i, m := range ms {
		out[i] = m.Name()
	}
	return out
}

func observeSlice(kind string, began time.Time) {
	sliceDuration.WithLabelValues(kind).Observe(time.Since(began).Seconds())
}
