package server

import "net/http"

// Handler is business logic bound to a route.
//
// Serve must report every failure through the returned Response (see Error).
// A panic is recovered by the Dispatcher and answered with a 500.
type Handler interface {
	Serve(req *Request) Response
}

// HandlerFunc adapts an ordinary function to Handler.
type HandlerFunc func(req *Request) Response

// Serve calls f(req).
func (f HandlerFunc) Serve(req *Request) Response {
	return f(req)
}

// Methods dispatches on the lower-case request method. Methods that are not
// in the map are answered with 405.
type Methods map[string]Handler

// Serve implements Handler.
func (m Methods) Serve(req *Request) Response {
	h, ok := m[req.Method]
	if !ok {
		return Error(http.StatusMethodNotAllowed, "Method not allowed")
	}
	return h.Serve(req)
}
