// Package swaggerkit mounts Swagger UI over the embedded OpenAPI document
package swaggerkit

import (
	_ "embed"
	"net/http"

	httpSwagger "github.com/swaggo/http-swagger"

	phttp "github.com/30blay/biz-stats/internal/platform/net/http"
)

//go:embed openapi.json
var doc []byte

// Doc returns the OpenAPI document served at /api/docs/doc.json
func Doc() []byte { return doc }

// Mount the Swagger UI and JSON doc if enabled
func Mount(r phttp.Router, enabled bool) {
	if !enabled {
		return
	}
	r.Get("/api/docs", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/api/docs/", http.StatusPermanentRedirect)
	})
	r.Get("/api/docs/doc.json", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.Header().Set("Cache-Control", "no-store")
		_, _ = w.Write(doc)
	})
	r.Handle("/api/docs/*", httpSwagger.Handler(
		httpSwagger.InstanceName("bizstats"),
		httpSwagger.URL("/api/docs/doc.json"),
	))
}
