package modkit

import (
	"github.com/30blay/biz-stats/internal/modkit/httpkit"
)

// Module is the common surface for modules that mount routes and expose ports
type Module interface {
	// MountRoutes attaches the module's endpoints under r
	MountRoutes(r httpkit.Router)
	// Ports returns the module's port bundle for cross wiring
	Ports() any

	Name() string
}
