// Package cache stores resolved identity documents, including explicit
// not-found results, keyed by identity without fragment.
package cache

import (
	"context"
	"time"

	"github.com/storacha/go-didauth/document"
)

// Entry is a cached resolution. A nil Document records that the identity was
// not found.
type Entry struct {
	Document *document.Document
	StoredAt time.Time
}

// Found reports whether the entry holds a document.
func (e Entry) Found() bool {
	return e.Document != nil
}

// Cache implementations must make each Put atomic per key.
type Cache interface {
	Get(ctx context.Context, id string) (Entry, bool, error)
	Put(ctx context.Context, id string, entry Entry) error
	Delete(ctx context.Context, id string) error
}
