package storage

import (
	"context"
	"errors"

	"trust-checker/models"
)

// Well-known keys.
const (
	KeySettings    = "settings"
	KeySellerCache = "sellerCache"
	KeyStats       = "stats"
)

// ErrClosed is returned by operations on a closed store.
var ErrClosed = errors.New("storage: store is closed")

// Store is a process-wide key-value store. Values are JSON documents;
// Get decodes into dst and reports whether the key existed.
type Store interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Put(ctx context.Context, key string, value any) error
	Close() error
}

// ScanWriter is the interface for persisting completed scans.
type ScanWriter interface {
	WriteScan(record models.ScanRecord) error
	Close() error
}
