// Package metadata is a small key/value repository over the client's
// SQLite "metadata" table. The token store keeps its encrypted blob here when
// the sqlite backend is selected.
package metadata

import (
	"context"
)

// Repository reads and writes opaque values by key. Get returns (nil, nil)
// for a missing key.
type Repository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}
