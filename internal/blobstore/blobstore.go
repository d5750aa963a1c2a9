// Package blobstore defines the narrow object-storage seam. The container
// constructs a Store, but no service in this repository reads or writes
// through it. A concrete S3 or Azure Blob client is out of scope
// (Non-goals); the teacher's own fsx.FileSystem abstraction is adapted
// here, narrowed to put/get/stat/delete/list by key.
package blobstore

import (
	"context"
	"net/http"
	"time"

	"github.com/giro-sh/license-server/internal/errx"
)

var ErrRegistry = errx.NewRegistry("BLOBSTORE")

var CodeNotFound = ErrRegistry.Register("NOT_FOUND", errx.TypeNotFound, http.StatusNotFound, "object not found")

func ErrNotFound() *errx.Error { return ErrRegistry.New(CodeNotFound) }

// ObjectInfo describes a stored object.
type ObjectInfo struct {
	Key         string
	Size        int64
	ModTime     time.Time
	ContentType string
}

// Store is the minimal object-storage contract: put, get, stat, delete
// and list by key prefix. Keys are opaque, slash-delimited strings (e.g.
// "licenses/<license-id>/certificate.pdf").
type Store interface {
	Put(ctx context.Context, key string, data []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
	Stat(ctx context.Context, key string) (ObjectInfo, error)
	Delete(ctx context.Context, key string) error
	List(ctx context.Context, prefix string) ([]ObjectInfo, error)
}
