package modelstore

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
)

// Store is the local model-artifact cache. Artifacts live under
// cacheDir/<id with slashes replaced>/<filename>.
type Store struct {
	cacheDir string
	client   *http.Client
	registry map[string]ModelSpec
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithHTTPClient sets the HTTP client used for downloads. Downloads of
// multi-gigabyte artifacts must not carry a client timeout; use context
// cancellation instead.
func WithHTTPClient(c *http.Client) StoreOption {
	return func(s *Store) {
		if c != nil {
			s.client = c
		}
	}
}

// WithModel registers an additional model spec, or overrides a default.
func WithModel(spec ModelSpec) StoreOption {
	return func(s *Store) {
		s.registry[spec.ID] = spec
	}
}

// NewStore creates a Store rooted at cacheDir with the default registry.
func NewStore(cacheDir string, opts ...StoreOption) *Store {
	s := &Store{
		cacheDir: cacheDir,
		client:   &http.Client{Timeout: 0},
		registry: make(map[string]ModelSpec, len(defaultRegistry)),
	}
	for _, spec := range defaultRegistry {
		s.registry[spec.ID] = spec
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CachePath returns the on-disk artifact path for a model id. For ids
// not in the registry, a conventional filename is derived from the id.
func (s *Store) CachePath(modelID string) string {
	entry := filepath.Join(s.cacheDir, cacheEntryName(modelID))
	if spec, ok := s.registry[modelID]; ok {
		return filepath.Join(entry, spec.Filename)
	}
	return filepath.Join(entry, "model.safetensors")
}

// IsCachedLocally reports whether the model artifact is present in the
// local cache. This is a pure disk probe: no network access, no load.
// An empty file counts as absent (an interrupted download that never
// wrote a byte).
func (s *Store) IsCachedLocally(modelID string) bool {
	info, err := os.Stat(s.CachePath(modelID))
	if err != nil {
		return false
	}
	return !info.IsDir() && info.Size() > 0
}

// Fetch ensures the model artifact is in the local cache, downloading
// it if missing, and returns the artifact path. Partial downloads are
// resumed. onProgress may be nil.
func (s *Store) Fetch(ctx context.Context, modelID string, onProgress func(ProgressInfo)) (string, error) {
	dest := s.CachePath(modelID)
	if s.IsCachedLocally(modelID) {
		return dest, nil
	}

	spec, ok := s.registry[modelID]
	if !ok {
		return "", fmt.Errorf("model %q is not in the registry and not cached locally", modelID)
	}

	_, err := downloadWithProgress(ctx, downloadOptions{
		URL:            spec.URL,
		DestPath:       dest,
		ExpectedSHA256: spec.SHA256,
		Client:         s.client,
		OnProgress:     onProgress,
		Resume:         true,
	})
	if err != nil {
		return "", fmt.Errorf("download %s: %w", modelID, err)
	}
	return dest, nil
}

// Spec returns the registry entry for a model id.
func (s *Store) Spec(modelID string) (ModelSpec, bool) {
	spec, ok := s.registry[modelID]
	return spec, ok
}
