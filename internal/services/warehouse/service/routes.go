package service

import (
	"cmp"
	"context"
	"slices"
	"time"

	"github.com/30blay/biz-stats/internal/core/period"
	perr "github.com/30blay/biz-stats/internal/platform/errors"
	"github.com/30blay/biz-stats/internal/services/warehouse/domain"
)

// RouteHits implements domain.RoutesPort, sorted by hits descending
func (s *Svc) RouteHits(ctx context.Context, at time.Time, typ period.Type) ([]domain.RouteHit, error) {
	defer observeSlice("route_hits", time.Now())
	if !typ.Valid() {
		return nil, perr.InvalidArgf("unknown period type %q", typ)
	}
	p, err := s.ensurePeriod(ctx, period.Floor(at, typ))
	if err != nil {
		return nil, err
	}
	if s.cfg.LoadBeforePull && s.catalog != nil {
		m, err := s.catalog.Lookup(s.cfg.RouteHitsMetric)
		if err != nil {
			return nil, err
		}
		if _, err := s.Load(ctx, []period.Period{p}, []domain.Metric{m}); err != nil {
			return nil, err
		}
	}

	rows, err := s.binder.Bind(s.db).QueryRouteFacts(ctx, domain.FactFilter{
		PeriodID: p.ID,
		Metrics:  []string{s.cfg.RouteHitsMetric},
	})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, perr.NoDataf("no %s at %s", s.cfg.RouteHitsMetric, p)
	}

	codes, err := s.feedCodes(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]domain.RouteHit, 0, len(rows))
	for _, r := range rows {
		out = append(out, domain.RouteHit{
			FeedID:        r.FeedID,
			FeedCode:      codes[r.FeedID],
			GlobalRouteID: r.Ref,
			Hits:          s.corrected(r),
		})
	}
	slices.SortStableFunc(out, func(a, b domain.RouteHit) int {
		if c := cmp.Compare(b.Hits, a.Hits); c != 0 {
			return c
		}
		return cmp.Compare(a.GlobalRouteID, b.GlobalRouteID)
	})
	return out, nil
}

// TopRoutes implements domain.RoutesPort
// monthly only; the n busiest routes of every feed, ranked from 1
func (s *Svc) TopRoutes(ctx context.Context, at time.Time, typ period.Type, n int) ([]domain.TopRoute, error) {
	if typ != period.Month {
		return nil, perr.InvalidArgf("top routes are computed for month periods only, got %s", typ)
	}
	if n <= 0 {
		return nil, perr.InvalidArgf("n must be positive, got %d", n)
	}
	hits, err := s.RouteHits(ctx, at, typ)
	if err != nil {
		return nil, err
	}
	routes, err := s.dir.Routes(ctx)
	if err != nil {
		return nil, err
	}
	routeName := make(map[int64]string, len(routes))
	for _, r := range routes {
		name := r.ShortName
		if name == "" {
			name = r.LongName
		}
		routeName[r.GlobalRouteID] = name
	}

	start := period.Floor(at, typ).Start
	rank := map[int64]int{}
	var out []domain.TopRoute
	for _, h := range hits {
		if rank[h.FeedID] >= n {
			continue
		}
		rank[h.FeedID]++
		out = append(out, domain.TopRoute{
			PeriodStart:   start,
			FeedID:        h.FeedID,
			FeedCode:      h.FeedCode,
			Rank:          rank[h.FeedID],
			GlobalRouteID: h.GlobalRouteID,
			RouteName:     routeName[h.GlobalRouteID],
			Hits:          h.Hits,
		})
	}
	slices.SortStableFunc(out, func(a, b domain.TopRoute) int {
		if c := cmp.Compare(a.FeedID, b.FeedID); c != 0 {
			return c
		}
		return cmp.Compare(a.Rank, b.Rank)
	})
	return out, nil
}

// TopRoutesForFeed implements domain.RoutesPort, one block of ranks per month in [start, stop]
// months without hits are left out
func (s *Svc) TopRoutesForFeed(ctx context.Context, feedID int64, start, stop time.Time, n int) ([]domain.TopRoute, error) {
	if err := checkWindow(start, stop, period.Month); err != nil {
		return nil, err
	}
	var out []domain.TopRoute
	for _, p := range period.Between(start, stop, period.Month) {
		month, err := s.TopRoutes(ctx, p.Start, period.Month, n)
		if perr.IsCode(err, perr.ErrorCodeNoData) {
			continue
		}
		if err != nil {
			return nil, err
		}
		for _, r := range month {
			if r.FeedID == feedID {
				out = append(out, r)
			}
		}
	}
	if len(out) == 0 {
		return nil, perr.NoDataf("no top routes for feed %d between %s and %s", feedID, start.Format(startLayout), stop.Format(startLayout))
	}
	return out, nil
}

func (s *Svc) feedCodes(ctx context.Context) (map[int64]string, error) {
	feeds, err := s.dir.Feeds(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[int64]string, len(feeds))
	for _, f := range feeds {
		out[f.ID] = f.Code
	}
	return out, nil
}
