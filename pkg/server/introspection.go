package server

import "github.com/aretw0/introspection"

// State is the observable state of a Server.
type State struct {
	Addr         string   `json:"addr"`
	Serving      bool     `json:"serving"`
	ShuttingDown bool     `json:"shutting_down"`
	Routes       []string `json:"routes"`
	MaxBodyBytes int64    `json:"max_body_bytes"`
	RateLimited  bool     `json:"rate_limited"`
	Clients      int      `json:"clients"`
}

// State implements introspection.Introspectable.
func (s *Server) State() any {
	clients := 0
	if s.limiter != nil {
		clients = s.limiter.len()
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	return State{
		Addr:         s.addr,
		Serving:      s.serving,
		ShuttingDown: s.shutdown,
		Routes:       s.dispatcher.Router().Routes(),
		MaxBodyBytes: s.dispatcher.maxBody,
		RateLimited:  s.limiter != nil,
		Clients:      clients,
	}
}

// ComponentType implements introspection.Component.
func (s *Server) ComponentType() string {
	return "http-server"
}

var _ introspection.Introspectable = (*Server)(nil)
var _ introspection.Component = (*Server)(nil)
