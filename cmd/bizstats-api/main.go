package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/30blay/biz-stats/internal/modkit/repokit"
	"github.com/30blay/biz-stats/internal/platform/logger"
	phttp "github.com/30blay/biz-stats/internal/platform/net/http"
	"github.com/30blay/biz-stats/internal/services/api"
	"github.com/30blay/biz-stats/internal/services/warehouse/bootstrap"
	whmod "github.com/30blay/biz-stats/internal/services/warehouse/module"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	l := logger.Get()
	env, err := bootstrap.Open(ctx, "api", whmod.Options{})
	if err != nil {
		l.Panic().Err(err).Msg("bootstrap failed")
	}
	defer func() {
		if err := env.Close(context.Background()); err != nil {
			l.Error().Err(err).Msg("failed to close store")
		}
	}()
	repokit.MustGuard(ctx, env.Store)

	// reads CORE_API_ADDR, CORE_API_SHUTDOWN_GRACE, CORE_API_WRITE_TIMEOUT
	srv := phttp.NewServer(env.Cfg.Prefix("CORE_API_"))
	api.Mount(srv.Router(), api.FromConfig(env.Deps, env.Warehouse))

	l.Info().Str("addr", srv.Addr()).Msg("api listening")
	if err := srv.Run(ctx); err != nil {
		l.Panic().Err(err).Msg("http server stopped")
	}
}
