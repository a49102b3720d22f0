// Package module wires the slices API onto the warehouse ports
package module

import (
	"github.com/30blay/biz-stats/internal/modkit"
	"github.com/30blay/biz-stats/internal/modkit/httpkit"
	"github.com/30blay/biz-stats/internal/modkit/module"
	sliceshttp "github.com/30blay/biz-stats/internal/services/api/slices/http"
	slicessvc "github.com/30blay/biz-stats/internal/services/api/slices/service"
	whdom "github.com/30blay/biz-stats/internal/services/warehouse/domain"
)

// Module implements modkit.Module
type Module struct {
	b   modkit.Built
	svc slicessvc.Service
}

// New builds the slices module over the ports of the warehouse module wh
func New(wh module.Module, opts ...modkit.Option) *Module {
	b := modkit.Build(append([]modkit.Option{modkit.WithName("slices")}, opts...)...)
	ports := slicessvc.Warehouse{
		Loader: module.MustPortsOf[whdom.LoaderPort](wh),
		Slicer: module.MustPortsOf[whdom.SlicerPort](wh),
		Routes: module.MustPortsOf[whdom.RoutesPort](wh),
	}
	if cat, ok := module.PortsOf[whdom.Catalog](wh); ok {
		ports.Catalog = cat
	}
	return &Module{b: b, svc: slicessvc.New(ports)}
}

// NewWithService skips the warehouse lookup, for tests and alternate backends
func NewWithService(svc slicessvc.Service, opts ...modkit.Option) *Module {
	return &Module{b: modkit.Build(append([]modkit.Option{modkit.WithName("slices")}, opts...)...), svc: svc}
}

// MountRoutes implements modkit.Module
func (m *Module) MountRoutes(r httpkit.Router) {
	m.b.Mount(r, func(r httpkit.Router) { sliceshttp.Register(r, m.svc) })
}

// Ports returns the slices service
func (m *Module) Ports() any { return m.svc }

// Name returns the module name
func (m *Module) Name() string { return m.b.Name }

var _ modkit.Module = (*Module)(nil)
