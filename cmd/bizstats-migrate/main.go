package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/30blay/biz-stats/internal/platform/config"
	"github.com/30blay/biz-stats/internal/platform/logger"
	"github.com/30blay/biz-stats/internal/platform/store"
)

const usage = `usage: bizstats-migrate [-to N] up|down|version

  up       apply pending migrations, or move to -to N
  down     roll back every migration, requires -yes
  version  print the applied schema version
`

func main() {
	var (
		fTo  = flag.Int("to", -1, "target version for up, -1 for latest")
		fYes = flag.Bool("yes", false, "confirm down")
	)
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()
	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}

	l := logger.Get()
	cfg := store.FromConfig(config.New(), "migrate")
	cfg.CH.Enabled, cfg.Billing.Enabled = false, false

	ctx := context.Background()
	st, err := store.Open(ctx, cfg, store.WithLogger(*l))
	if err != nil {
		l.Panic().Err(err).Msg("store.Open failed")
	}
	defer func() {
		if err := st.Close(ctx); err != nil {
			l.Error().Err(err).Msg("failed to close store")
		}
	}()

	switch flag.Arg(0) {
	case "up":
		if *fTo == 0 {
			l.Fatal().Msg("-to 0 is a full rollback, use down")
		}
		res, err := st.Migrate(ctx, *fTo)
		if err != nil {
			l.Fatal().Err(err).Msg("migrate up failed")
		}
		fmt.Printf("schema %d -> %d\n", res.From, res.To)
	case "down":
		if !*fYes {
			l.Fatal().Msg("down drops every warehouse table, pass -yes to confirm")
		}
		res, err := st.Migrate(ctx, 0)
		if err != nil {
			l.Fatal().Err(err).Msg("migrate down failed")
		}
		fmt.Printf("schema %d -> %d\n", res.From, res.To)
	case "version":
		v, dirty, err := st.SchemaVersion()
		if err != nil {
			l.Fatal().Err(err).Msg("read version failed")
		}
		fmt.Printf("version %d dirty=%t\n", v, dirty)
	default:
		flag.Usage()
		os.Exit(2)
	}
}
