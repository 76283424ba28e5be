package storage

import (
	"context"
	"time"
)

// ObjectInfo describes one stored snapshot.
type ObjectInfo struct {
	Name         string
	LastModified time.Time
}

// Store is the contract for snapshot storage. Record snapshots live under
// "chats/<id>/..." and dashboard exports under "exports/<id>/...".
type Store interface {
	Put(ctx context.Context, name string, data []byte) error
	Get(ctx context.Context, name string) ([]byte, error)
	List(ctx context.Context, prefix string) ([]ObjectInfo, error)
	Delete(ctx context.Context, name string) error
}
