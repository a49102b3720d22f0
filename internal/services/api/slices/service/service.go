// Package service translates slices API requests into warehouse calls
package service

import (
	"context"
	"time"

	"github.com/30blay/biz-stats/internal/core/period"
	perr "github.com/30blay/biz-stats/internal/platform/errors"
	"github.com/30blay/biz-stats/internal/platform/logger"
	"github.com/30blay/biz-stats/internal/platform/net/http/bind"
	"github.com/30blay/biz-stats/internal/services/api/slices/domain"
	whdom "github.com/30blay/biz-stats/internal/services/warehouse/domain"
)

// Service is the slices service contract
type Service = domain.ServicePort

// Warehouse is the set of warehouse ports the API reads through
type Warehouse struct {
	Loader  whdom.LoaderPort
	Slicer  whdom.SlicerPort
	Routes  whdom.RoutesPort
	Catalog whdom.Catalog
}

type svc struct {
	wh Warehouse
}

// New constructs the slices service
func New(wh Warehouse) Service {
	if wh.Loader == nil || wh.Slicer == nil || wh.Routes == nil {
		panic("slices.Service requires warehouse loader, slicer and routes ports")
	}
	return &svc{wh: wh}
}

func (s *svc) Metrics(context.Context) ([]domain.MetricInfo, error) {
	if s.wh.Catalog == nil {
		return []domain.MetricInfo{}, nil
	}
	names := s.wh.Catalog.Names()
	out := make([]domain.MetricInfo, 0, len(names))
	for _, n := range names {
		m, err := s.wh.Catalog.Lookup(n)
		if err != nil {
			return nil, err
		}
		_, ratio := m.(whdom.RatioMetric)
		out = append(out, domain.MetricInfo{Name: m.Name(), Type: string(m.Type()), Ratio: ratio})
	}
	return out, nil
}

func (s *svc) SliceFeed(ctx context.Context, in domain.FeedSliceInput) (domain.GridView, error) {
	start, stop, typ, err := window(in.Window)
	if err != nil {
		return domain.GridView{}, err
	}
	metrics, err := s.metrics(in.Metrics)
	if err != nil {
		return domain.GridView{}, err
	}
	g, err := s.wh.Slicer.SliceFeed(ctx, in.FeedCode, metrics, start, stop, typ)
	if err != nil {
		return domain.GridView{}, err
	}
	return domain.ViewOf(g), nil
}

func (s *svc) SliceMetric(ctx context.Context, in domain.MetricSliceInput) (domain.GridView, error) {
	start, stop, typ, err := window(in.Window)
	if err != nil {
		return domain.GridView{}, err
	}
	metrics, err := s.metrics([]string{in.Metric})
	if err != nil {
		return domain.GridView{}, err
	}
	g, err := s.wh.Slicer.SliceMetric(ctx, start, stop, typ, metrics[0])
	if err != nil {
		return domain.GridView{}, err
	}
	return domain.ViewOf(g), nil
}

func (s *svc) SlicePeriod(ctx context.Context, in domain.PeriodSliceInput) (domain.GridView, error) {
	at, typ, err := instant(in.At, in.Type)
	if err != nil {
		return domain.GridView{}, err
	}
	metrics, err := s.metrics(in.Metrics)
	if err != nil {
		return domain.GridView{}, err
	}
	g, err := s.wh.Slicer.SlicePeriod(ctx, period.Floor(at, typ), metrics)
	if err != nil {
		return domain.GridView{}, err
	}
	return domain.ViewOf(g), nil
}

func (s *svc) RouteHits(ctx context.Context, in domain.RouteHitsInput) ([]whdom.RouteHit, error) {
	at, typ, err := instant(in.At, in.Type)
	if err != nil {
		return nil, err
	}
	return s.wh.Routes.RouteHits(ctx, at, typ)
}

func (s *svc) TopRoutes(ctx context.Context, in domain.TopRoutesInput) ([]whdom.TopRoute, error) {
	at, typ, err := instant(in.At, in.Type)
	if err != nil {
		return nil, err
	}
	return s.wh.Routes.TopRoutes(ctx, at, typ, topN(in.N))
}

func (s *svc) TopRoutesForFeed(ctx context.Context, in domain.FeedTopRoutesInput) ([]whdom.TopRoute, error) {
	start, stop, _, err := window(domain.Window{Start: in.Start, Stop: in.Stop, Type: string(period.Month)})
	if err != nil {
		return nil, err
	}
	return s.wh.Routes.TopRoutesForFeed(ctx, in.FeedID, start, stop, topN(in.N))
}

func (s *svc) Load(ctx context.Context, in domain.LoadInput) (whdom.LoadReport, error) {
	start, stop, typ, err := window(in.Window)
	if err != nil {
		return whdom.LoadReport{}, err
	}
	metrics, err := s.metrics(in.Metrics)
	if err != nil {
		return whdom.LoadReport{}, err
	}
	rep, err := s.wh.Loader.LoadBetween(ctx, start, stop, typ, metrics)
	if err != nil {
		return rep, err
	}
	logger.C(ctx).Info().
		Str("run_id", rep.RunID).
		Int("periods", rep.Periods).
		Int("written", rep.Written).
		Int("skipped", len(rep.Skipped)).
		Msg("api load finished")
	return rep, nil
}

// metrics resolves names in order, the first unknown name fails the request
func (s *svc) metrics(names []string) ([]whdom.Metric, error) {
	if s.wh.Catalog == nil {
		return nil, perr.WithField(perr.Configurationf("no metric catalog configured"), "CORE_WAREHOUSE_CATALOG_FILE")
	}
	out := make([]whdom.Metric, 0, len(names))
	for _, n := range names {
		m, err := s.wh.Catalog.Lookup(n)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}

func window(w domain.Window) (start, stop time.Time, typ period.Type, err error) {
	if start, err = parseInstant(w.Start, "start"); err != nil {
		return
	}
	if stop, err = parseInstant(w.Stop, "stop"); err != nil {
		return
	}
	if typ, err = parseType(w.Type); err != nil {
		return
	}
	if stop.Before(start) {
		err = perr.WithField(perr.InvalidArgf("stop %s is before start %s", w.Stop, w.Start), "stop")
	}
	return
}

func instant(at, typ string) (time.Time, period.Type, error) {
	t, err := parseInstant(at, "at")
	if err != nil {
		return time.Time{}, "", err
	}
	pt, err := parseType(typ)
	return t, pt, err
}

func parseInstant(s, field string) (time.Time, error) {
	t, err := bind.ParseInstant(s)
	if err != nil {
		return time.Time{}, perr.WithField(perr.Wrapf(err, perr.ErrorCodeInvalidArgument, "bad %s %q", field, s), field)
	}
	return t.UTC(), nil
}

func parseType(s string) (period.Type, error) {
	t, err := period.ParseType(s)
	if err != nil {
		return "", perr.WithField(perr.Wrap(err, perr.ErrorCodeInvalidArgument, "bad period type"), "type")
	}
	return t, nil
}

func topN(n int) int {
	if n <= 0 {
		return domain.DefaultTopN
	}
	return n
}
