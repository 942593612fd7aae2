// Package remote mirrors identity snapshots to a best-effort cloud document
// store. Nothing read from it is authoritative.
package remote

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Find when no document exists under a key
var ErrNotFound = errors.New("document not found")

// DocumentStore is the minimal document store contract
type DocumentStore interface {
	// Upsert replaces the document stored under (collection, key)
	Upsert(ctx context.Context, collection, key string, doc []byte) error

	// Find returns the document stored under (collection, key) or ErrNotFound
	Find(ctx context.Context, collection, key string) ([]byte, error)

	// Delete removes a document; deleting a missing document is not an error
	Delete(ctx context.Context, collection, key string) error

	// Ping performs a lightweight round trip used as the connectivity probe
	Ping(ctx context.Context) error

	Close() error
}
