// Package http serves warehouse slices and loads over JSON
package http

import (
	stdhttp "net/http"

	"github.com/30blay/biz-stats/internal/modkit/httpkit"
	"github.com/30blay/biz-stats/internal/services/api/slices/domain"
)

// Register mounts the slices endpoints on r
func Register(r httpkit.Router, s domain.ServicePort) {
	h := &handlers{svc: s}
	httpkit.Get(r, "/metrics", h.metrics)
	httpkit.PostJSON(r, "/slices/feed", h.sliceFeed)
	httpkit.PostJSON(r, "/slices/metric", h.sliceMetric)
	httpkit.PostJSON(r, "/slices/period", h.slicePeriod)
	httpkit.PostJSON(r, "/slices/route-hits", h.routeHits)
	httpkit.PostJSON(r, "/slices/top-routes", h.topRoutes)
	httpkit.PostJSON(r, "/slices/top-routes/feed", h.topRoutesForFeed)
	httpkit.PostJSON(r, "/loads", h.load)
}

type handlers struct{ svc domain.ServicePort }

// @Summary Metric catalog
// @Tags Slices
// @Produce json
// @Success 200 {array} domain.MetricInfo
// @Router /metrics [get]
func (h *handlers) metrics(r *stdhttp.Request) (any, error) {
	return h.svc.Metrics(r.Context())
}

// @Summary Metrics of one feed, one row per period
// @Tags Slices
// @Accept json
// @Produce json
// @Param payload body domain.FeedSliceInput true "Query"
// @Success 200 {object} domain.GridView
// @Router /slices/feed [post]
func (h *handlers) sliceFeed(r *stdhttp.Request, in domain.FeedSliceInput) (any, error) {
	return h.svc.SliceFeed(r.Context(), in)
}

// @Summary One metric, one row per period and one column per entity
// @Tags Slices
// @Router /slices/metric [post]
func (h *handlers) sliceMetric(r *stdhttp.Request, in domain.MetricSliceInput) (any, error) {
	return h.svc.SliceMetric(r.Context(), in)
}

// @Summary Metrics of every entity in one period
// @Tags Slices
// @Router /slices/period [post]
func (h *handlers) slicePeriod(r *stdhttp.Request, in domain.PeriodSliceInput) (any, error) {
	return h.svc.SlicePeriod(r.Context(), in)
}

func (h *handlers) routeHits(r *stdhttp.Request, in domain.RouteHitsInput) (any, error) {
	return h.svc.RouteHits(r.Context(), in)
}

func (h *handlers) topRoutes(r *stdhttp.Request, in domain.TopRoutesInput) (any, error) {
	return h.svc.TopRoutes(r.Context(), in)
}

func (h *handlers) topRoutesForFeed(r *stdhttp.Request, in domain.FeedTopRoutesInput) (any, error) {
	return h.svc.TopRoutesForFeed(r.Context(), in)
}

// @Summary Load metrics over a window and report what was written
// @Tags Loads
// @Router /loads [post]
func (h *handlers) load(r *stdhttp.Request, in domain.LoadInput) (any, error) {
	return h.svc.Load(r.Context(), in)
}
