package service

import (
	"context"
	"time"

	"github.com/30blay/biz-stats/internal/core/period"
	"github.com/30blay/biz-stats/internal/services/warehouse/domain"
	"github.com/30blay/biz-stats/internal/services/warehouse/repo"
)

// NeedsRecompute decides whether (p, metric) should be fetched again
// p must carry its stored id
func (s *Svc) NeedsRecompute(ctx context.Context, st repo.Storage, p period.Period, m domain.Metric, groups []string) (bool, error) {
	if groups != nil {
		return false, domain.ErrGroupingUnsupported
	}
	table, err := domain.TableFor(m.Type())
	if err != nil {
		return false, err
	}
	last, ok, err := st.LatestUpdate(ctx, table, p.ID, m.Name())
	if err != nil {
		return false, err
	}
	if !ok {
		return true, nil
	}
	limit, hasLimit := s.cfg.Recency[p.Type]
	return recompute(p, last, s.now(), limit, hasLimit, s.cfg.RevisionHorizon), nil
}

// recompute applies the recency rule then the revision horizon rule to an existing fact
func recompute(p period.Period, last, now time.Time, limit time.Duration, hasLimit bool, horizon time.Duration) bool {
	if hasLimit && now.Sub(last) < limit {
		return false
	}
	return last.Sub(p.Start) < horizon
}
