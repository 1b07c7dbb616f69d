// Package objectstore defines the contract the backup catalog needs from a blob
// store and provides Azure Blob, S3 and in-memory implementations of it.
package objectstore

import (
	"context"
	"errors"
	"time"
)

// ErrNotExist is returned by Stat when the key does not exist.
var ErrNotExist = errors.New("object does not exist")

// Object is one entry of a listing.
type Object struct {
	Key          string
	Size         int64
	LastModified time.Time
}

// Store is a read-only view of a container or bucket.
type Store interface {
	// Name identifies the store in logs, e.g. "azure:git-backups".
	Name() string

	// List returns every object whose key starts with prefix. Implementations
	// page through the backend until the listing is exhausted; a partial
	// listing is never returned without an error.
	List(ctx context.Context, prefix string) ([]Object, error)

	// Stat returns the object stored under key or ErrNotExist.
	Stat(ctx context.Context, key string) (Object, error)

	// SignedURL returns a URL granting read access to key, and nothing else,
	// until expires.
	SignedURL(ctx context.Context, key string, expires time.Time) (string, error)

	// Ping checks that the container is reachable with the configured credentials.
	Ping(ctx context.Context) error

	// IsPermanentError reports whether retrying the failed call cannot help.
	IsPermanentError(err error) bool
}
