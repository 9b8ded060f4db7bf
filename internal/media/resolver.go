package media

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// Backend turns a storage path into a downloadable URL, typically a
// short-lived signed URL from the object store.
type Backend interface {
	SignedURL(ctx context.Context, storagePath string) (string, error)
}

// StaticBackend serves objects from a public bucket or CDN by joining the
// storage path onto a base URL. No signing involved.
type StaticBackend struct {
	BaseURL string
}

func (b StaticBackend) SignedURL(_ context.Context, storagePath string) (string, error) {
	base := strings.TrimRight(strings.TrimSpace(b.BaseURL), "/")
	if base == "" {
		return "", errors.New("media: base url not configured")
	}
	return base + "/" + strings.TrimLeft(storagePath, "/"), nil
}

// Resolver resolves content video and audio paths to playable URLs.
// Paths that already are absolute URLs pass through untouched; storage
// paths go through the cache and then the backend.
type Resolver struct {
	Backend Backend
	Cache   Cache // optional
	Log     *zap.Logger
}

func NewResolver(backend Backend, cache Cache, log *zap.Logger) *Resolver {
	if log == nil {
		log = zap.NewNop()
	}
	return &Resolver{Backend: backend, Cache: cache, Log: log}
}

// ResolveURL returns a playable URL for the given media path.
func (r *Resolver) ResolveURL(ctx context.Context, path string) (string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return "", errors.New("media: empty path")
	}
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path, nil
	}

	cacheKey := fmt.Sprintf("media:url:%s", path)
	if r.Cache != nil {
		var cached string
		if ok, err := r.Cache.Get(ctx, cacheKey, &cached); err == nil && ok {
			return cached, nil
		}
	}

	url, err := r.Backend.SignedURL(ctx, path)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", path, err)
	}

	if r.Cache != nil {
		if err := r.Cache.Set(ctx, cacheKey, url); err != nil {
			r.Log.Debug("media url cache write failed", zap.String("path", path), zap.Error(err))
		}
	}
	return url, nil
}
