// Package httpkit is the http surface modules use, so they never import the platform router directly
package httpkit

import (
	"net/http"

	phttp "github.com/30blay/biz-stats/internal/platform/net/http"
)

type (
	// Router is the platform router seam
	Router = phttp.Router

	// Handler is the platform handler func
	Handler = phttp.Handler

	// Response lets a handler pick its status
	Response = phttp.Response

	// Envelope is the JSON body every endpoint writes
	Envelope = phttp.Envelope
)

// OK returns a 200 response
func OK(data any) Response { return phttp.OK(data) }

// Accepted returns a 202 response
func Accepted(data any) Response { return phttp.Accepted(data) }

// Error maps err to its status and envelope
func Error(err error) Response { return phttp.Error(err) }

// Get mounts a body-less handler under GET
func Get(r Router, path string, h func(*http.Request) (any, error)) {
	r.Get(path, phttp.NoBody(h))
}

// PostJSON mounts a validated JSON handler under POST
func PostJSON[T any](r Router, path string, h func(*http.Request, T) (any, error)) {
	r.Post(path, phttp.JSONHandler(h))
}
