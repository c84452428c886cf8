// Package docstore defines the contract with the remote document store: a
// schemaless, multi-writer collection store whose subscriptions push the
// complete matching result set on every change. Connectors live in
// subpackages; application layers depend only on the Store interface.
package docstore

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a referenced document does not exist.
var ErrNotFound = errors.New("docstore: document not found")

// ServerTimestamp marks a field value to be replaced with the store's own
// clock at write time. Server timestamps are monotonic per writer; clients
// never supply their own.
var ServerTimestamp = serverTimestamp{}

type serverTimestamp struct{}

// Document is one stored document: an opaque store-assigned identity plus a
// flat field map. Field values survive a JSON round trip, so numbers may come
// back as float64; use the typed accessors.
type Document struct {
	ID     string
	Fields map[string]any
}

// Snapshot is one complete push of a subscription's current result set,
// already filtered and ordered by the store.
type Snapshot struct {
	Docs []Document
}

// Subscription is a live result-set stream. Close releases it; it must be
// called exactly once per acquisition when the owning context ends, and is
// safe to call more than once.
type Subscription interface {
	Snapshots() <-chan Snapshot
	Close()
}

// Store is the document store capability consumed by the application.
type Store interface {
	// Create inserts a new document and returns its store-assigned identity.
	Create(ctx context.Context, collection string, fields map[string]any) (string, error)

	// Set idempotently writes the whole document under a caller-chosen id,
	// creating it if absent.
	Set(ctx context.Context, collection, id string, fields map[string]any) error

	// Update merges the given fields into an existing document. Fields not
	// named are left untouched; a nil value removes the field.
	Update(ctx context.Context, collection, id string, fields map[string]any) error

	// Delete permanently removes a document. No tombstone is kept.
	Delete(ctx context.Context, collection, id string) error

	// Get performs a one-shot lookup by id.
	Get(ctx context.Context, collection, id string) (Document, error)

	// List performs a one-shot query.
	List(ctx context.Context, q Query) ([]Document, error)

	// Subscribe opens a live subscription for the query. The first snapshot
	// (possibly empty) is delivered without waiting for a change.
	Subscribe(ctx context.Context, q Query) (Subscription, error)
}

// String returns a string field, "" when absent or not a string.
func (d Document) String(field string) string {
	s, _ := d.Fields[field].(string)
	return s
}

// Bool returns a boolean field, false when absent.
func (d Document) Bool(field string) bool {
	b, _ := d.Fields[field].(bool)
	return b
}

// Float returns a numeric field as float64, 0 when absent.
func (d Document) Float(field string) float64 {
	switch v := d.Fields[field].(type) {
	case float64:
		return v
	case int64:
		return float64(v)
	case int:
		return float64(v)
	}
	return 0
}

// Int64 returns a numeric field as int64, 0 when absent.
func (d Document) Int64(field string) int64 {
	switch v := d.Fields[field].(type) {
	case int64:
		return v
	case float64:
		return int64(v)
	case int:
		return int64(v)
	}
	return 0
}

// Map returns a nested map field, nil when absent.
func (d Document) Map(field string) map[string]any {
	m, _ := d.Fields[field].(map[string]any)
	return m
}

// Strings returns a string-array field, handling both []string and the
// []any shape produced by JSON decoding.
func (d Document) Strings(field string) []string {
	switch v := d.Fields[field].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, e := range v {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}
