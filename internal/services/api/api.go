// Package api composes the HTTP API from its modules
package api

import (
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/30blay/biz-stats/internal/modkit"
	"github.com/30blay/biz-stats/internal/modkit/httpkit"
	"github.com/30blay/biz-stats/internal/modkit/module"
	"github.com/30blay/biz-stats/internal/modkit/swaggerkit"
	"github.com/30blay/biz-stats/internal/platform/logger"
	phttp "github.com/30blay/biz-stats/internal/platform/net/http"
	metamod "github.com/30blay/biz-stats/internal/services/api/meta/module"
	slicesmod "github.com/30blay/biz-stats/internal/services/api/slices/module"
)

// Options are the API options
type Options struct {
	Deps modkit.Deps
	// Warehouse is the module whose ports the slices endpoints serve
	Warehouse module.Module

	EnableSwagger  bool
	EnableProfiler bool
	// EnableMetrics serves the prometheus registry at /metrics
	EnableMetrics bool
}

// FromConfig reads the CORE_API_ toggles, everything defaults on
func FromConfig(deps modkit.Deps, wh module.Module) Options {
	c := deps.Cfg.Prefix("CORE_API_")
	return Options{
		Deps:           deps,
		Warehouse:      wh,
		EnableSwagger:  c.MayBool("SWAGGER", true),
		EnableProfiler: c.MayBool("PROFILER", false),
		EnableMetrics:  c.MayBool("METRICS", true),
	}
}

// Mount mounts every module under /api/v1 with the common stack
// docs, profiler and /metrics sit outside the stack
func Mount(r httpkit.Router, opt Options) {
	stack := httpkit.CommonStack(httpkit.StackFromConfig(opt.Deps.Cfg.Prefix("CORE_API_")))

	swaggerkit.Mount(r, opt.EnableSwagger)
	phttp.MountProfiler(r, "/debug", opt.EnableProfiler)
	if opt.EnableMetrics {
		r.Handle("/metrics", promhttp.Handler())
	}

	mods := []modkit.Module{
		metamod.New(opt.Deps),
		slicesmod.New(opt.Warehouse),
	}
	log := logger.Named("api")
	httpkit.MountAPIV1(r, stack, func(api httpkit.Router) {
		for _, m := range mods {
			m.MountRoutes(api)
			log.Debug().Str("module", m.Name()).Msg("module mounted")
		}
	})
}
