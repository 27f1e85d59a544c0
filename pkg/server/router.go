package server

import (
	"maps"
	"net/http"
	"slices"
	"strings"
)

// NotFoundRoute is the route label reported for unknown paths.
const NotFoundRoute = "notFound"

// NotFound answers every request with 404 {"notFound": "Path was not found"}.
var NotFound Handler = HandlerFunc(func(*Request) Response {
	return JSON(http.StatusNotFound, map[string]string{"notFound": "Path was not found"})
})

// Router maps trimmed paths to handlers. It is immutable once built and
// safe for concurrent use.
type Router struct {
	routes   map[string]Handler
	fallback Handler
}

// NewRouter builds a Router from routes. Keys are trimmed the same way
// request paths are, so "/api/users/" and "api/users" are the same route.
// A nil fallback means NotFound.
func NewRouter(routes map[string]Handler, fallback Handler) *Router {
	if fallback == nil {
		fallback = NotFound
	}
	r := &Router{
		routes:   make(map[string]Handler, len(routes)),
		fallback: fallback,
	}
	for path, h := range routes {
		r.routes[TrimPath(path)] = h
	}
	return r
}

// Resolve returns the handler for path and the route it matched.
// Unknown paths resolve to the fallback with route NotFoundRoute.
func (r *Router) Resolve(path string) (string, Handler) {
	key := TrimPath(path)
	if h, ok := r.routes[key]; ok {
		return key, h
	}
	return NotFoundRoute, r.fallback
}

// Routes returns the sorted route keys.
func (r *Router) Routes() []string {
	return slices.Sorted(maps.Keys(r.routes))
}

// TrimPath strips leading and trailing slashes.
func TrimPath(path string) string {
	return strings.Trim(path, "/")
}
