package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/google/uuid"

	"github.com/30blay/biz-stats/internal/core/period"
	"github.com/30blay/biz-stats/internal/modkit/repokit"
	"github.com/30blay/biz-stats/internal/platform/logger"
	"github.com/30blay/biz-stats/internal/platform/net/http/bind"
	"github.com/30blay/biz-stats/internal/services/warehouse/bootstrap"
	whmod "github.com/30blay/biz-stats/internal/services/warehouse/module"
)

func main() {
	var (
		fStart   = flag.String("start", "", "first instant, 2006-01-02 or RFC3339 (UTC)")
		fEnd     = flag.String("end", "", "last instant inclusive, defaults to -start")
		fType    = flag.String("type", "day", "period type: five_min hour day month quarter year")
		fMetrics = flag.String("metrics", "", "comma separated metric names, empty for the whole catalog")
		fWorkers = flag.Int("workers", 0, "periods of one metric loaded concurrently, 0 keeps CORE_WAREHOUSE_WORKERS")
		fCatalog = flag.String("catalog", "", "metric catalog file, overrides CORE_WAREHOUSE_CATALOG_FILE")
		fMigrate = flag.Bool("migrate", false, "apply pending schema migrations first")
	)
	flag.Parse()

	l := logger.Get()
	if *fStart == "" {
		l.Panic().Msg("-start is required")
	}
	if *fEnd == "" {
		*fEnd = *fStart
	}
	start, err := bind.ParseInstant(*fStart)
	if err != nil {
		l.Panic().Err(err).Msg("bad -start")
	}
	end, err := bind.ParseInstant(*fEnd)
	if err != nil {
		l.Panic().Err(err).Msg("bad -end")
	}
	if end.Before(start) {
		l.Panic().Time("start", start).Time("end", end).Msg("-end before -start")
	}
	typ, err := period.ParseType(*fType)
	if err != nil {
		l.Panic().Err(err).Msg("bad -type")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logger.WithRun(ctx, uuid.NewString())

	env, err := bootstrap.Open(ctx, "load", whmod.Options{Workers: *fWorkers, CatalogFile: *fCatalog})
	if err != nil {
		l.Panic().Err(err).Msg("bootstrap failed")
	}
	defer func() {
		if err := env.Close(context.Background()); err != nil {
			l.Error().Err(err).Msg("failed to close store")
		}
	}()
	repokit.MustGuard(ctx, env.Store)

	if *fMigrate {
		res, err := env.Store.Migrate(ctx, -1)
		if err != nil {
			l.Panic().Err(err).Msg("migrate failed")
		}
		l.Info().Uint("from", res.From).Uint("to", res.To).Msg("schema ready")
	}

	names := env.Catalog.Names()
	if s := strings.TrimSpace(*fMetrics); s != "" {
		names = strings.Split(s, ",")
		for i := range names {
			names[i] = strings.TrimSpace(names[i])
		}
	}
	metrics, err := env.Catalog.LookupAll(names)
	if err != nil {
		l.Panic().Err(err).Msg("unknown metric")
	}
	if len(metrics) == 0 {
		l.Warn().Msg("catalog is empty, nothing to load")
		return
	}

	rep, err := env.Warehouse.Typed().Loader.LoadBetween(ctx, start.UTC(), end.UTC(), typ, metrics)
	if err != nil {
		l.Fatal().Err(err).Msg("load failed")
	}
	if err := bootstrap.RenderReport(os.Stdout, rep); err != nil {
		l.Error().Err(err).Msg("render report")
	}
}
