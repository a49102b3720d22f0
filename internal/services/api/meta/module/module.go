// Package module wires the meta endpoints into the API
package module

import (
	"time"

	"github.com/30blay/biz-stats/internal/modkit"
	"github.com/30blay/biz-stats/internal/modkit/httpkit"
	metahttp "github.com/30blay/biz-stats/internal/services/api/meta/http"
)

// ServiceName is reported by health, version and service
const ServiceName = "bizstats-api"

// Module implements modkit.Module
type Module struct {
	b         modkit.Built
	checks    []metahttp.Check
	startedAt time.Time
}

// New constructs the meta module
// PG and CH are checked when they can Ping, Billing whenever it is set
func New(deps modkit.Deps, opts ...modkit.Option) *Module {
	b := modkit.Build(append([]modkit.Option{
		modkit.WithName("meta"),
		modkit.WithPrefix("/meta"),
	}, opts...)...)

	checks := []metahttp.Check{
		{Name: "pg", Pinger: asPinger(deps.PG)},
		{Name: "ch", Pinger: asPinger(deps.CH)},
	}
	if deps.Billing != nil {
		checks = append(checks, metahttp.Check{Name: "billing", Pinger: metahttp.PingFunc(deps.Billing.PingContext)})
	}
	return &Module{b: b, checks: checks, startedAt: time.Now()}
}

func asPinger(v any) metahttp.Pinger {
	if p, ok := v.(metahttp.Pinger); ok {
		return p
	}
	return nil
}

// MountRoutes implements modkit.Module
func (m *Module) MountRoutes(r httpkit.Router) {
	m.b.Mount(r, func(r httpkit.Router) {
		metahttp.Register(r, metahttp.Deps{
			ServiceName: ServiceName,
			StartedAt:   m.startedAt,
			Checks:      m.checks,
		})
	})
}

// Name implements modkit.Module
func (m *Module) Name() string { return m.b.Name }

// Ports implements modkit.Module, meta exposes none
func (m *Module) Ports() any { return nil }
