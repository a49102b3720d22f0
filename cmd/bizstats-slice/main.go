package main

import (
	"context"
	"encoding/json"
	"flag"
	"os"
	"strings"
	"time"

	"github.com/30blay/biz-stats/internal/core/grid"
	"github.com/30blay/biz-stats/internal/core/period"
	"github.com/30blay/biz-stats/internal/platform/logger"
	"github.com/30blay/biz-stats/internal/platform/net/http/bind"
	slicedom "github.com/30blay/biz-stats/internal/services/api/slices/domain"
	"github.com/30blay/biz-stats/internal/services/warehouse/bootstrap"
	whdom "github.com/30blay/biz-stats/internal/services/warehouse/domain"
	whmod "github.com/30blay/biz-stats/internal/services/warehouse/module"
)

func main() {
	var (
		fKind    = flag.String("kind", "feed", "feed | metric | period | route-hits | top-routes | top-routes-feed")
		fFeed    = flag.String("feed", "", "feed code, for -kind feed")
		fFeedID  = flag.Int64("feed-id", 0, "feed id, for -kind top-routes-feed")
		fMetrics = flag.String("metrics", "", "comma separated metric names; -kind metric uses the first")
		fStart   = flag.String("start", "", "first instant, 2006-01-02 or RFC3339")
		fEnd     = flag.String("end", "", "last instant inclusive, defaults to -start")
		fAt      = flag.String("at", "", "instant inside the period, for period, route-hits and top-routes")
		fType    = flag.String("type", "month", "period type")
		fN       = flag.Int("n", slicedom.DefaultTopN, "routes kept per feed")
		fLoad    = flag.Bool("load", false, "load before reading")
		fJSON    = flag.Bool("json", false, "print JSON instead of a table")
		fDecs    = flag.Int("decimals", 2, "decimals printed per value")
	)
	flag.Parse()

	l := logger.Get()
	typ, err := period.ParseType(*fType)
	if err != nil {
		l.Panic().Err(err).Msg("bad -type")
	}
	instant := func(name, s string) time.Time {
		t, err := bind.ParseInstant(s)
		if err != nil {
			l.Panic().Err(err).Str("flag", name).Msg("bad instant")
		}
		return t.UTC()
	}
	if *fEnd == "" {
		*fEnd = *fStart
	}
	if *fAt == "" {
		*fAt = *fStart
	}

	ctx := context.Background()
	env, err := bootstrap.Open(ctx, "slice", whmod.Options{LoadBeforePull: *fLoad})
	if err != nil {
		l.Panic().Err(err).Msg("bootstrap failed")
	}
	defer func() {
		if err := env.Close(context.Background()); err != nil {
			l.Error().Err(err).Msg("failed to close store")
		}
	}()

	ports := env.Warehouse.Typed()
	var names []string
	for _, n := range strings.Split(*fMetrics, ",") {
		if n = strings.TrimSpace(n); n != "" {
			names = append(names, n)
		}
	}
	metrics, err := env.Catalog.LookupAll(names)
	if err != nil {
		l.Panic().Err(err).Msg("unknown metric")
	}
	needMetrics := func() {
		if len(metrics) == 0 {
			l.Panic().Str("kind", *fKind).Msg("-metrics is required")
		}
	}

	var (
		g   grid.Grid
		out any
	)
	switch *fKind {
	case "feed":
		needMetrics()
		g, err = ports.Slicer.SliceFeed(ctx, *fFeed, metrics, instant("start", *fStart), instant("end", *fEnd), typ)
	case "metric":
		needMetrics()
		g, err = ports.Slicer.SliceMetric(ctx, instant("start", *fStart), instant("end", *fEnd), typ, metrics[0])
	case "period":
		needMetrics()
		g, err = ports.Slicer.SlicePeriod(ctx, period.Floor(instant("at", *fAt), typ), metrics)
	case "route-hits":
		out, err = ports.Routes.RouteHits(ctx, instant("at", *fAt), typ)
	case "top-routes":
		out, err = ports.Routes.TopRoutes(ctx, instant("at", *fAt), typ, *fN)
	case "top-routes-feed":
		out, err = ports.Routes.TopRoutesForFeed(ctx, *fFeedID, instant("start", *fStart), instant("end", *fEnd), *fN)
	default:
		l.Panic().Str("kind", *fKind).Msg("unknown -kind")
	}
	if err != nil {
		l.Fatal().Err(err).Str("kind", *fKind).Msg("slice failed")
	}

	if out == nil {
		out = slicedom.ViewOf(g)
	}
	if *fJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		err = enc.Encode(out)
	} else {
		switch v := out.(type) {
		case slicedom.GridView:
			err = grid.Render(os.Stdout, g, grid.RenderOptions{Decimals: *fDecs, Missing: "-"})
		case []whdom.RouteHit:
			err = bootstrap.RenderRouteHits(os.Stdout, v)
		case []whdom.TopRoute:
			err = bootstrap.RenderTopRoutes(os.Stdout, v)
		}
	}
	if err != nil {
		l.Error().Err(err).Msg("print failed")
	}
}
