package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/30blay/biz-stats/internal/core/grid"
	"github.com/30blay/biz-stats/internal/core/period"
	"github.com/30blay/biz-stats/internal/modkit"
	"github.com/30blay/biz-stats/internal/modkit/httpkit"
	"github.com/30blay/biz-stats/internal/platform/config"
	phttp "github.com/30blay/biz-stats/internal/platform/net/http"
	whdom "github.com/30blay/biz-stats/internal/services/warehouse/domain"
)

type fakeWarehouse struct{}

func (fakeWarehouse) Load(context.Context, []period.Period, []whdom.Metric) (whdom.LoadReport, error) {
	return whdom.LoadReport{}, nil
}

func (fakeWarehouse) LoadBetween(context.Context, time.Time, time.Time, period.Type, []whdom.Metric) (whdom.LoadReport, error) {
	return whdom.LoadReport{}, nil
}

func (fakeWarehouse) SliceFeed(context.Context, string, []whdom.Metric, time.Time, time.Time, period.Type) (grid.Grid, error) {
	return grid.Grid{}, nil
}

func (fakeWarehouse) SliceMetric(context.Context, time.Time, time.Time, period.Type, whdom.Metric) (grid.Grid, error) {
	return grid.Grid{}, nil
}

func (fakeWarehouse) SlicePeriod(context.Context, period.Period, []whdom.Metric) (grid.Grid, error) {
	return grid.Grid{}, nil
}

func (fakeWarehouse) RouteHits(context.Context, time.Time, period.Type) ([]whdom.RouteHit, error) {
	return []whdom.RouteHit{}, nil
}

func (fakeWarehouse) TopRoutes(context.Context, time.Time, period.Type, int) ([]whdom.TopRoute, error) {
	return nil, nil
}

func (fakeWarehouse) TopRoutesForFeed(context.Context, int64, time.Time, time.Time, int) ([]whdom.TopRoute, error) {
	return nil, nil
}

type whModule struct{}

type whPorts struct {
	Loader whdom.LoaderPort
	Slicer whdom.SlicerPort
	Routes whdom.RoutesPort
}

func (whModule) MountRoutes(httpkit.Router) {}
func (whModule) Name() string               { return "warehouse" }
func (whModule) Ports() any {
	return whPorts{Loader: fakeWarehouse{}, Slicer: fakeWarehouse{}, Routes: fakeWarehouse{}}
}

func TestMount(t *testing.T) {
	deps := modkit.Deps{Cfg: config.New()}
	r := phttp.AdaptChi(chi.NewRouter())
	Mount(r, Options{Deps: deps, Warehouse: whModule{}, EnableSwagger: true, EnableMetrics: true})

	cases := []struct {
		method, path, body string
		want               int
		contains           string
	}{
		{http.MethodGet, "/api/v1/meta/health", "", http.StatusOK, `"service":"bizstats-api"`},
		{http.MethodGet, "/api/v1/metrics", "", http.StatusOK, `"data":[]`},
		{http.MethodPost, "/api/v1/slices/route-hits", `{"at":"2024-01-01","type":"day"}`, http.StatusOK, `"status_code":200`},
		{http.MethodGet, "/api/docs/doc.json", "", http.StatusOK, `"openapi"`},
		{http.MethodGet, "/metrics", "", http.StatusOK, "bizstats_http_requests_total"},
		{http.MethodGet, "/debug/pprof/", "", http.StatusNotFound, ""},
	}
	for _, c := range cases {
		rec := httptest.NewRecorder()
		r.Mux().ServeHTTP(rec, httptest.NewRequest(c.method, c.path, strings.NewReader(c.body)))
		if rec.Code != c.want {
			t.Errorf("%s %s = %d, want %d", c.method, c.path, rec.Code, c.want)
			continue
		}
		if c.contains != "" && !strings.Contains(rec.Body.String(), c.contains) {
			t.Errorf("%s %s body missing %s: %s", c.method, c.path, c.contains, rec.Body.String())
		}
	}
}

func TestFromConfig(t *testing.T) {
	t.Setenv("CORE_API_SWAGGER", "false")
	t.Setenv("CORE_API_PROFILER", "true")
	o := FromConfig(modkit.Deps{Cfg: config.New()}, whModule{})
	if o.EnableSwagger || !o.EnableProfiler || !o.EnableMetrics || o.Warehouse == nil {
		t.Fatalf("FromConfig = %+v", o)
	}
}
