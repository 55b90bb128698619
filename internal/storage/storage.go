package storage

import (
	"context"
	"time"
)

// ObjectInfo describes one stored object as returned by List.
type ObjectInfo struct {
	Key          string
	Size         int64
	LastModified time.Time
}

// ObjectStore is the flat object-store surface the pipeline depends on.
// Implementations must be safe for concurrent use.
type ObjectStore interface {
	Get(ctx context.Context, bucket, key string) ([]byte, error)
	Put(ctx context.Context, bucket, key string, body []byte, contentType string) error
	List(ctx context.Context, bucket, prefix string) ([]ObjectInfo, error)
}
