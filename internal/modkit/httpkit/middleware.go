package httpkit

import (
	"compress/flate"
	"net/http"
	"strings"
	"time"

	"github.com/30blay/biz-stats/internal/platform/config"
	"github.com/30blay/biz-stats/internal/platform/net/middleware"
)

// StackOptions tunes CommonStack, read from CORE_API_*
type StackOptions struct {
	Timeout     time.Duration
	SlowRequest time.Duration
	CORSOrigins []string
}

// StackFromConfig reads TIMEOUT, SLOW_REQUEST and CORS_ORIGINS
func StackFromConfig(cfg config.Conf) StackOptions {
	return StackOptions{
		Timeout:     cfg.MayDuration("TIMEOUT", 5*time.Minute),
		SlowRequest: cfg.MayDuration("SLOW_REQUEST", 2*time.Second),
		CORSOrigins: cfg.MayCSV("CORS_ORIGINS", []string{"*"}),
	}
}

// CommonStack is the middleware every api route runs through, outermost first
func CommonStack(o StackOptions) []func(http.Handler) http.Handler {
	if o.Timeout <= 0 {
		o.Timeout = 5 * time.Minute
	}
	return []func(http.Handler) http.Handler{
		middleware.RequestID(),
		middleware.RealIP(),
		middleware.AccessLog(middleware.AccessLogOptions{Slow: o.SlowRequest}),
		middleware.RecoverJSON,
		middleware.Metrics,
		middleware.NoCache(),
		middleware.CORS(middleware.CORSOptions{AllowedOrigins: o.CORSOrigins, MaxAge: 300}),
		middleware.Compress(flate.BestSpeed),
		middleware.StripSlashes(),
		middleware.Timeout(o.Timeout),
	}
}

// MountAPI mounts mount under /api/{version} behind mw
func MountAPI(r Router, version string, mw []func(http.Handler) http.Handler, mount func(Router)) {
	r.Route("/api/"+strings.TrimPrefix(version, "/"), func(api Router) {
		api.Use(mw...)
		mount(api)
	})
}

// MountAPIV1 is MountAPI for v1
func MountAPIV1(r Router, mw []func(http.Handler) http.Handler, mount func(Router)) {
	MountAPI(r, "v1", mw, mount)
}
