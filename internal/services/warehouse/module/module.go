// Package module wires the warehouse service and exposes its ports
package module

import (
	"github.com/30blay/biz-stats/internal/core/correction"
	"github.com/30blay/biz-stats/internal/modkit"
	"github.com/30blay/biz-stats/internal/modkit/httpkit"
	perr "github.com/30blay/biz-stats/internal/platform/errors"
	"github.com/30blay/biz-stats/internal/services/warehouse/domain"
	"github.com/30blay/biz-stats/internal/services/warehouse/service"
)

// Module defines the warehouse module
type Module struct {
	deps  modkit.Deps
	opts  Options
	svc   *service.Svc
	ports Ports
}

// New constructs the warehouse module
// overrides with non zero values win over CORE_WAREHOUSE_* config
func New(deps modkit.Deps, dir domain.Directory, cat domain.Catalog, overrides Options, svcOpts ...service.Option) (*Module, error) {
	opts := FromConfig(deps.Cfg)
	if overrides.Workers != 0 {
		opts.Workers = overrides.Workers
	}
	if overrides.LoadBeforePull {
		opts.LoadBeforePull = true
	}
	if overrides.CorrectionFile != "" {
		opts.CorrectionFile = overrides.CorrectionFile
	}
	if overrides.RevisionHorizon != 0 {
		opts.RevisionHorizon = overrides.RevisionHorizon
	}
	if overrides.Recency != nil {
		opts.Recency = overrides.Recency
	}
	if overrides.StatementTimeout != 0 {
		opts.StatementTimeout = overrides.StatementTimeout
	}

	table, err := correction.Load(opts.CorrectionFile)
	if err != nil {
		return nil, perr.WithField(perr.Wrapf(err, perr.ErrorCodeConfiguration, "load correction table %q", opts.CorrectionFile), "CORE_WAREHOUSE_CORRECTION_FILE")
	}

	if cat != nil {
		svcOpts = append(svcOpts, service.WithCatalog(cat))
	}
	svc := service.New(deps, dir, service.Config{
		Recency:          opts.Recency,
		RevisionHorizon:  opts.RevisionHorizon,
		Workers:          opts.Workers,
		LoadBeforePull:   opts.LoadBeforePull,
		RouteHitsMetric:  opts.RouteHitsMetric,
		Correction:       table,
		StatementTimeout: opts.StatementTimeout,
	}, svcOpts...)

	deps.Log.Info().
		Int("workers", opts.Workers).
		Bool("load_before_pull", opts.LoadBeforePull).
		Int("corrections", table.Len()).
		Msg("warehouse module ready")

	return &Module{
		deps: deps,
		opts: opts,
		svc:  svc,
		ports: Ports{
			Registry: svc,
			Loader:   svc,
			Slicer:   svc,
			Routes:   svc,
			Catalog:  cat,
		},
	}, nil
}

// Name returns the module name
func (m *Module) Name() string { return "warehouse" }

// Ports returns the module ports
func (m *Module) Ports() any { return m.ports }

// Typed returns the ports without the any cast
func (m *Module) Typed() Ports { return m.ports }

// Options returns the effective options
func (m *Module) Options() Options { return m.opts }

// Prefix returns the module config prefix
func (m *Module) Prefix() string { return "CORE_WAREHOUSE_" }

// MountRoutes mounts nothing, the api slices module serves the warehouse over HTTP
func (m *Module) MountRoutes(_ httpkit.Router) {}
