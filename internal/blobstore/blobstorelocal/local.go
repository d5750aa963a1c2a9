// Package blobstorelocal implements blobstore.Store against the local
// filesystem. It is the only Store the container wires; OBJECT_STORE_ENDPOINT
// is not read by it, and no remote provider client exists here (Non-goals).
package blobstorelocal

import (
	"context"
	"os"
	"path/filepath"

	"github.com/giro-sh/license-server/internal/blobstore"
	"github.com/giro-sh/license-server/internal/errx"
)

// LocalStore implements blobstore.Store by rooting every key under
// basePath, mirroring the teacher's LocalFileSystem layout.
type LocalStore struct {
	basePath string
}

func NewLocalStore(basePath string) (*LocalStore, error) {
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, errx.Wrap(err, "failed to create blobstore base directory", errx.TypeInternal)
	}
	abs, err := filepath.Abs(basePath)
	if err != nil {
		return nil, errx.Wrap(err, "failed to resolve blobstore base path", errx.TypeInternal)
	}
	return &LocalStore{basePath: abs}, nil
}

func (s *LocalStore) Put(_ context.Context, key string, data []byte) error {
	full := s.fullPath(key)
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return errx.Wrap(err, "failed to create object directory", errx.TypeInternal)
	}
	if err := os.WriteFile(full, data, 0o644); err != nil {
		return errx.Wrap(err, "failed to write object", errx.TypeInternal)
	}
	return nil
}

func (s *LocalStore) Get(_ context.Context, key string) ([]byte, error) {
	data, err := os.ReadFile(s.fullPath(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, blobstore.ErrNotFound()
		}
		return nil, errx.Wrap(err, "failed to read object", errx.TypeInternal)
	}
	return data, nil
}

func (s *LocalStore) Stat(_ context.Context, key string) (blobstore.ObjectInfo, error) {
	full := s.fullPath(key)
	info, err := os.Stat(full)
	if err != nil {
		if os.IsNotExist(err) {
			return blobstore.ObjectInfo{}, blobstore.ErrNotFound()
		}
		return blobstore.ObjectInfo{}, errx.Wrap(err, "failed to stat object", errx.TypeInternal)
	}
	return blobstore.ObjectInfo{
		Key:         key,
		Size:        info.Size(),
		ModTime:     info.ModTime(),
		ContentType: detectContentType(full),
	}, nil
}

func (s *LocalStore) Delete(_ context.Context, key string) error {
	if err := os.Remove(s.fullPath(key)); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return errx.Wrap(err, "failed to delete object", errx.TypeInternal)
	}
	return nil
}

func (s *LocalStore) List(_ context.Context, prefix string) ([]blobstore.ObjectInfo, error) {
	root := s.fullPath(prefix)
	var out []blobstore.ObjectInfo
	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			if os.IsNotExist(err) && path == root {
				return filepath.SkipDir
			}
			return err
		}
		if info.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(s.basePath, path)
		if err != nil {
			return err
		}
		out = append(out, blobstore.ObjectInfo{
			Key:         filepath.ToSlash(rel),
			Size:        info.Size(),
			ModTime:     info.ModTime(),
			ContentType: detectContentType(path),
		})
		return nil
	})
	if err != nil {
		return nil, errx.Wrap(err, "failed to list objects", errx.TypeInternal)
	}
	return out, nil
}

func (s *LocalStore) fullPath(key string) string {
	return filepath.Join(s.basePath, filepath.FromSlash(key))
}

func detectContentType(path string) string {
	switch filepath.Ext(path) {
	case ".pdf":
		return "application/pdf"
	case ".json":
		return "application/json"
	case ".zip":
		return "application/zip"
	case ".txt":
		return "text/plain"
	default:
		return "application/octet-stream"
	}
}
