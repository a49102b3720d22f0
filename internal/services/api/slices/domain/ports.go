package domain

import (
	"context"

	whdom "github.com/30blay/biz-stats/internal/services/warehouse/domain"
)

// ServicePort is what the slices handlers call
type ServicePort interface {
	Metrics(ctx context.Context) ([]MetricInfo, error)
	SliceFeed(ctx context.Context, in FeedSliceInput) (GridView, error)
	SliceMetric(ctx context.Context, in MetricSliceInput) (GridView, error)
	SlicePeriod(ctx context.Context, in PeriodSliceInput) (GridView, error)
	RouteHits(ctx context.Context, in RouteHitsInput) ([]whdom.RouteHit, error)
	TopRoutes(ctx context.Context, in TopRoutesInput) ([]whdom.TopRoute, error)
	TopRoutesForFeed(ctx context.Context, in FeedTopRoutesInput) ([]whdom.TopRoute, error)
	Load(ctx context.Context, in LoadInput) (whdom.LoadReport, error)
}
