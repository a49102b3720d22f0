// Package bootstrap opens everything a warehouse process needs from env config
package bootstrap

import (
	"context"

	"github.com/30blay/biz-stats/internal/adapters/directory"
	"github.com/30blay/biz-stats/internal/adapters/metrics"
	"github.com/30blay/biz-stats/internal/modkit"
	"github.com/30blay/biz-stats/internal/platform/config"
	"github.com/30blay/biz-stats/internal/platform/logger"
	"github.com/30blay/biz-stats/internal/platform/store"
	"github.com/30blay/biz-stats/internal/services/warehouse/domain"
	whmod "github.com/30blay/biz-stats/internal/services/warehouse/module"
)

// Env is a wired warehouse process
type Env struct {
	Cfg       config.Conf
	Store     *store.Store
	Deps      modkit.Deps
	Directory domain.Directory
	Catalog   *metrics.Catalog
	Warehouse *whmod.Module
}

// seams for tests
var (
	openStore     = store.Open
	openDirectory = func() (domain.Directory, error) { return directory.Open() }
)

// Open wires stores, directory, metric catalog and the warehouse module
// role is the binary suffix, for example load or api
func Open(ctx context.Context, role string, overrides whmod.Options) (*Env, error) {
	cfg := config.New()
	log := logger.Named(role)

	st, err := openStore(ctx, store.FromConfig(cfg, role), store.WithLogger(*log))
	if err != nil {
		return nil, err
	}
	env := &Env{Cfg: cfg, Store: st}
	fail := func(err error) (*Env, error) {
		_ = st.Close(ctx)
		return nil, err
	}

	env.Deps = modkit.Deps{Log: *log, Cfg: cfg, PG: st.PG, CH: st.CH, Billing: st.Billing}

	if env.Directory, err = openDirectory(); err != nil {
		return fail(err)
	}

	path := overrides.CatalogFile
	if path == "" {
		path = whmod.FromConfig(cfg).CatalogFile
	}
	if env.Catalog, err = metrics.Load(path, Backends(st)); err != nil {
		return fail(err)
	}

	if env.Warehouse, err = whmod.New(env.Deps, env.Directory, env.Catalog, overrides); err != nil {
		return fail(err)
	}
	log.Info().
		Int("metrics", len(env.Catalog.Names())).
		Bool("clickhouse", st.CH != nil).
		Bool("billing", st.Billing != nil).
		Msg("warehouse bootstrapped")
	return env, nil
}

// Backends exposes the stores metric sources query
func Backends(st *store.Store) metrics.Backends {
	var b metrics.Backends
	if st.CH != nil {
		b.Events = st.CH
	}
	if st.Billing != nil {
		b.Billing = store.SQLQuerier(st.Billing)
	}
	return b
}

// Close releases the stores
func (e *Env) Close(ctx context.Context) error { return e.Store.Close(ctx) }
