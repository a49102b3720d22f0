package module

import "github.com/30blay/biz-stats/internal/services/warehouse/domain"

// Ports defines the warehouse ports exposed to other modules
type Ports struct {
	Registry domain.RegistryPort
	Loader   domain.LoaderPort
	Slicer   domain.SlicerPort
	Routes   domain.RoutesPort
	Catalog  domain.Catalog
}
