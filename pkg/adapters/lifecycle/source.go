// Package lifecycle exposes store change events as a lifecycle.Source.
package lifecycle

import (
	"context"

	"github.com/aretw0/lifecycle"

	"github.com/aretw0/hearth/pkg/core"
)

type storeSource struct {
	events      <-chan core.Event
	collections map[string]bool
	out         chan lifecycle.Event
}

// NewSource creates a lifecycle.Source emitting the record events of the store.
// With collections given, events of other collections are dropped.
func NewSource(events <-chan core.Event, collections ...string) lifecycle.Source {
	s := &storeSource{
		events: events,
		out:    make(chan lifecycle.Event),
	}
	if len(collections) > 0 {
		s.collections = make(map[string]bool, len(collections))
		for _, c := range collections {
			s.collections[c] = true
		}
	}
	return s
}

func (s *storeSource) Events() <-chan lifecycle.Event {
	return s.out
}

// Start forwards events until ctx is done or the store channel closes.
// The output channel is closed afterwards.
func (s *storeSource) Start(ctx context.Context) error {
	lifecycle.Go(ctx, func(ctx context.Context) error {
		defer close(s.out)
		for {
			select {
			case <-ctx.Done():
				return nil
			case e, ok := <-s.events:
				if !ok {
					return nil
				}
				if s.collections != nil && !s.collections[e.Collection] {
					continue
				}
				select {
				case s.out <- e:
				case <-ctx.Done():
					return nil
				}
			}
		}
	})
	return nil
}
