package domain

import (
	"context"
	"time"

	"github.com/30blay/biz-stats/internal/core/grid"
	"github.com/30blay/biz-stats/internal/core/period"
)

// Directory lists the external objects entities are created for
// results are a point in time snapshot
type Directory interface {
	Feeds(ctx context.Context) ([]Feed, error)
	SharingSystems(ctx context.Context) ([]SharingSystem, error)
	Routes(ctx context.Context) ([]Route, error)
}

// Catalog resolves metric names
type Catalog interface {
	Lookup(name string) (Metric, error)
	Names() []string
}

// RegistryPort maps external ids to warehouse entities
type RegistryPort interface {
	Sync(ctx context.Context, feeds []Feed, systems []SharingSystem) (SyncReport, error)
	Resolve(ctx context.Context, feedID int64) (int64, error)
	ResolveSharing(ctx context.Context, systemID int64) (int64, error)
}

// LoaderPort fills the warehouse
type LoaderPort interface {
	Load(ctx context.Context, periods []period.Period, metrics []Metric) (LoadReport, error)
	LoadBetween(ctx context.Context, start, stop time.Time, typ period.Type, metrics []Metric) (LoadReport, error)
}

// SlicerPort reads corrected grids back out
type SlicerPort interface {
	SliceFeed(ctx context.Context, feedCode string, metrics []Metric, start, stop time.Time, typ period.Type) (grid.Grid, error)
	SliceMetric(ctx context.Context, start, stop time.Time, typ period.Type, metric Metric) (grid.Grid, error)
	SlicePeriod(ctx context.Context, p period.Period, metrics []Metric) (grid.Grid, error)
}

// RoutesPort answers route ranking questions
type RoutesPort interface {
	RouteHits(ctx context.Context, at time.Time, typ period.Type) ([]RouteHit, error)
	TopRoutes(ctx context.Context, at time.Time, typ period.Type, n int) ([]TopRoute, error)
	TopRoutesForFeed(ctx context.Context, feedID int64, start, stop time.Time, n int) ([]TopRoute, error)
}
