package http

import "net/http"

// Handler is the plain handler func every route registers
type Handler = func(http.ResponseWriter, *http.Request)

// Router is the routing surface modules mount against
type Router interface {
	Get(path string, h Handler)
	Post(path string, h Handler)

	Handle(path string, h http.Handler)
	Use(mw ...func(http.Handler) http.Handler)
	Route(pattern string, fn func(Router))
	// Group shares the path space but scopes Use to fn
	Group(fn func(Router))

	// Mux is the root handler to serve
	Mux() http.Handler
}
