package services

import (
	"context"
	"io"
)

// StorageService stores public objects such as customer medallion artwork.
type StorageService interface {
	// Upload stores the object and returns its public URL
	Upload(ctx context.Context, key string, reader io.Reader, contentType string, size int64) (string, error)

	Delete(ctx context.Context, key string) error

	// GetURL returns the public URL an object has, or will have once uploaded.
	// It must not perform I/O.
	GetURL(key string) string

	Exists(ctx context.Context, key string) (bool, error)
}
