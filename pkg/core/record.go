// Package core defines the record model and the storage contract shared by
// the store adapters, the token authority and the HTTP handlers.
package core

import (
	"fmt"
	"time"
)

// Record is a JSON object stored under a (collection, key) pair.
// The store does not enforce a schema; collections share one by convention.
type Record map[string]any

// EventType represents the type of change observed in the store.
type EventType string

const (
	EventCreate EventType = "CREATE"
	EventModify EventType = "MODIFY"
	EventDelete EventType = "DELETE"
)

// Event represents a change to a single record.
type Event struct {
	Type       EventType
	Collection string
	Key        string
	Timestamp  int64 // Unix timestamp
}

// String implements fmt.Stringer.
func (e Event) String() string {
	return fmt.Sprintf("%s %s/%s at %s", e.Type, e.Collection, e.Key, time.Unix(e.Timestamp, 0).UTC().Format(time.RFC3339))
}
