package modkit

import (
	"net/http"
	"strings"

	"github.com/30blay/biz-stats/internal/modkit/httpkit"
)

// Built is the resolved option set a module keeps
type Built struct {
	Name   string
	Prefix string
	Mw     []func(http.Handler) http.Handler
	Ports  any

	// Register is nil unless WithRegister was given
	Register func(httpkit.Router)
}

// Build applies opts in order
func Build(opts ...Option) Built {
	var c buildCfg
	for _, o := range opts {
		o(&c)
	}
	return Built{
		Name:     c.name,
		Prefix:   c.prefix,
		Mw:       append([]func(http.Handler) http.Handler(nil), c.mw...),
		Ports:    c.ports,
		Register: c.register,
	}
}

// PortsAs returns the injected ports as T
func PortsAs[T any](b Built) (T, bool) {
	v, ok := b.Ports.(T)
	return v, ok
}

// Mount runs register, or the WithRegister override, on a group scoped by Prefix and Mw
func (b Built) Mount(r httpkit.Router, register func(httpkit.Router)) {
	if b.Register != nil {
		register = b.Register
	}
	if register == nil {
		return
	}
	scoped := func(sr httpkit.Router) {
		if len(b.Mw) > 0 {
			sr.Use(b.Mw...)
		}
		register(sr)
	}
	if prefix := strings.TrimRight(b.Prefix, "/"); prefix != "" {
		r.Route(prefix, scoped)
		return
	}
	r.Group(scoped)
}
