package token

import "github.com/aretw0/introspection"

// State is the observable state of an Authority.
type State struct {
	Collection string `json:"collection"`
	TTL        string `json:"ttl"`
	Issued     int64  `json:"issued"`
	Verified   int64  `json:"verified"`
	Rejected   int64  `json:"rejected"`
}

// State implements introspection.Introspectable.
func (a *Authority) State() any {
	return State{
		Collection: Collection,
		TTL:        a.ttl.String(),
		Issued:     a.issued.Load(),
		Verified:   a.verified.Load(),
		Rejected:   a.rejected.Load(),
	}
}

// ComponentType implements introspection.Component.
func (a *Authority) ComponentType() string {
	return "token-authority"
}

var _ introspection.Introspectable = (*Authority)(nil)
var _ introspection.Component = (*Authority)(nil)
