package service

import (
	"context"
	"testing"

	"github.com/30blay/biz-stats/internal/core/period"
	perr "github.com/30blay/biz-stats/internal/platform/errors"
	"github.com/30blay/biz-stats/internal/platform/testkit"
	"github.com/30blay/biz-stats/internal/services/warehouse/domain"
)

func newRoutesRig(t *testing.T) rig {
	t.Helper()
	r := newRig(Config{}, testkit.MustTime(t, "2020-04-10T00:00:00Z"))
	hits := &fakeMetric{name: "route_hits", typ: domain.MetricRoute, vals: map[string]float64{
		"100": 5, "101": 9, "102": 7, "200": 2,
	}}
	feb := testkit.MustTime(t, "2020-02-01T00:00:00Z")
	mar := testkit.MustTime(t, "2020-03-01T00:00:00Z")
	if _, err := r.svc.LoadBetween(context.Background(), feb, mar, period.Month, []domain.Metric{hits}); err != nil {
		t.Fatalf("LoadBetween: %v", err)
	}
	return r
}

func TestRouteHits(t *testing.T) {
	t.Parallel()
	r := newRoutesRig(t)

	hits, err := r.svc.RouteHits(context.Background(), testkit.MustTime(t, "2020-03-15T12:00:00Z"), period.Month)
	if err != nil {
		t.Fatalf("RouteHits: %v", err)
	}
	if len(hits) != 4 || hits[0].GlobalRouteID != 101 || hits[3].GlobalRouteID != 200 {
		t.Fatalf("hits = %+v", hits)
	}
	if hits[0].FeedCode != "feedA" || hits[3].FeedCode != "feedB" {
		t.Fatalf("feed codes = %q %q", hits[0].FeedCode, hits[3].FeedCode)
	}

	_, err = r.svc.RouteHits(context.Background(), testkit.MustTime(t, "2019-03-15T12:00:00Z"), period.Month)
	if !perr.IsCode(err, perr.ErrorCodeNoData) {
		t.Fatalf("RouteHits(2019) = %v, want NoData", err)
	}
}

func TestTopRoutes(t *testing.T) {
	t.Parallel()
	r := newRoutesRig(t)
	ctx := context.Background()
	at := testkit.MustTime(t, "2020-03-15T00:00:00Z")

	top, err := r.svc.TopRoutes(ctx, at, period.Month, 2)
	if err != nil {
		t.Fatalf("TopRoutes: %v", err)
	}
	want := []struct {
		feed  int64
		rank  int
		route int64
		name  string
	}{
		{1, 1, 101, "11"},
		{1, 2, 102, "Crosstown"},
		{2, 1, 200, "A"},
	}
	if len(top) != len(want) {
		t.Fatalf("TopRoutes = %+v", top)
	}
	for i, w := range want {
		got := top[i]
		if got.FeedID != w.feed || got.Rank != w.rank || got.GlobalRouteID != w.route || got.RouteName != w.name {
			t.Fatalf("TopRoutes[%d] = %+v, want %+v", i, got, w)
		}
		if !got.PeriodStart.Equal(testkit.MustTime(t, "2020-03-01T00:00:00Z")) {
			t.Fatalf("PeriodStart = %v", got.PeriodStart)
		}
	}

	if _, err := r.svc.TopRoutes(ctx, at, period.Hour, 2); !perr.IsCode(err, perr.ErrorCodeInvalidArgument) {
		t.Fatalf("hourly TopRoutes = %v, want InvalidArgument", err)
	}
	if _, err := r.svc.TopRoutes(ctx, at, period.Month, 0); !perr.IsCode(err, perr.ErrorCodeInvalidArgument) {
		t.Fatalf("TopRoutes(n=0) = %v, want InvalidArgument", err)
	}
}

func TestTopRoutesForFeed(t *testing.T) {
	t.Parallel()
	r := newRoutesRig(t)
	ctx := context.Background()
	from := testkit.MustTime(t, "2020-02-01T00:00:00Z")
	to := testkit.MustTime(t, "2020-04-01T00:00:00Z")

	top, err := r.svc.TopRoutesForFeed(ctx, 2, from, to, 1)
	if err != nil {
		t.Fatalf("TopRoutesForFeed: %v", err)
	}
	if len(top) != 2 || !top[0].PeriodStart.Equal(from) || top[1].GlobalRouteID != 200 {
		t.Fatalf("TopRoutesForFeed = %+v", top)
	}

	if _, err := r.svc.TopRoutesForFeed(ctx, 99, from, to, 1); !perr.IsCode(err, perr.ErrorCodeNoData) {
		t.Fatalf("unknown feed = %v, want NoData", err)
	}
}

func TestSliceMetric_Routes(t *testing.T) {
	t.Parallel()
	r := newRoutesRig(t)

	g, err := r.svc.SliceMetric(context.Background(),
		testkit.MustTime(t, "2020-02-01T00:00:00Z"), testkit.MustTime(t, "2020-03-01T00:00:00Z"),
		period.Month, &fakeMetric{name: "route_hits", typ: domain.MetricRoute})
	if err != nil {
		t.Fatalf("SliceMetric: %v", err)
	}
	if g.Index != "global_route_id" || len(g.Rows) != 4 || g.Rows[0] != "100" || len(g.Columns) != 2 {
		t.Fatalf("shape = %s %v %v", g.Index, g.Rows, g.Columns)
	}
	mustCell(t, g, "102", "2020-03-01T00:00:00Z", 7)
}
