package diffusion

import (
	"context"
	"fmt"
	"sync"
	"time"

	"localgen/device"
	"localgen/logging"
	"localgen/modelstore"
)

// State is the lifecycle state of the resident model handle.
type State string

const (
	StateUnloaded State = "unloaded"
	StateLoading  State = "loading"
	StateReady    State = "ready"
)

// Handle is one loaded model instance: identifier, placement, and the
// owned pipeline. Created on first successful load, mutated only by
// the Cache, released on unload or replacement.
type Handle struct {
	ModelID   string
	Device    device.Device
	Precision device.Precision
	State     State

	pipe Pipeline
}

// Pipeline returns the underlying inference pipeline. Read-only use by
// the dispatcher; ownership stays with the Cache.
func (h *Handle) Pipeline() Pipeline {
	return h.pipe
}

// Cache holds at most one resident model handle. The model is
// expensive to load (gigabytes, minutes on a cache miss), so the cache
// loads lazily, reuses the handle across requests, and replaces it only
// when a different model id is requested — a replacement policy with
// capacity 1, not an LRU.
//
// Cache methods are not reentrant; callers serialize loads, unloads,
// and generations through a single execution slot (see the worker
// package). The internal mutex only protects the cheap state queries
// against a concurrently running load.
type Cache struct {
	loader   Loader
	store    *modelstore.Store
	selector *device.Selector
	log      *logging.Logger

	mu      sync.Mutex
	current string
	handle  *Handle
}

// NewCache builds a Cache over a loader, the local artifact store, and
// a device selector. logger may be nil.
func NewCache(loader Loader, store *modelstore.Store, selector *device.Selector, logger *logging.Logger) *Cache {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Cache{
		loader:   loader,
		store:    store,
		selector: selector,
		log:      logger,
	}
}

// IsCachedLocally reports whether the model artifact is on disk. Pure
// probe: no network, no load.
func (c *Cache) IsCachedLocally(modelID string) bool {
	return c.store.IsCachedLocally(modelID)
}

// IsLoaded reports whether a model handle is resident and ready.
func (c *Cache) IsLoaded() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.handle != nil && c.handle.State == StateReady
}

// CurrentModel returns the resident model id, or "" when nothing is
// loaded.
func (c *Cache) CurrentModel() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// Preload makes modelID the resident model. Idempotent: when the
// resident handle already matches, it emits a single "already loaded"
// event and returns immediately without touching the network or the
// device. Otherwise it fetches the artifact on a cache miss, resolves
// device and precision, and loads the pipeline.
//
// On failure the cache reverts to unloaded; a previously resident
// handle for a different id is released and not restored.
func (c *Cache) Preload(ctx context.Context, modelID string, progress ProgressFunc) error {
	emit := func(msg string) {
		c.log.Infof("%s", msg)
		if progress != nil {
			progress(0, 0, msg)
		}
	}

	c.mu.Lock()
	if c.handle != nil && c.handle.State == StateReady && c.current == modelID {
		c.mu.Unlock()
		emit("Model already loaded")
		return nil
	}
	// Replacing or first load: release any previous handle up front so
	// its device memory is free before the new weights arrive.
	prev := c.handle
	c.handle = nil
	c.current = ""
	c.mu.Unlock()

	if prev != nil && prev.pipe != nil {
		if err := prev.pipe.Close(); err != nil {
			c.log.Warnf("releasing previous model %s: %v", prev.ModelID, err)
		}
	}

	cached := c.store.IsCachedLocally(modelID)
	if cached {
		emit(fmt.Sprintf("Loading %s from cache...", modelID))
	} else {
		emit(fmt.Sprintf("Downloading %s (%s)...", modelID, modelstore.ApproxDownloadSize(modelID)))
		emit("This may take several minutes on first run...")
	}

	start := time.Now()
	artifact, err := c.store.Fetch(ctx, modelID, func(p modelstore.ProgressInfo) {
		if progress != nil && p.Percent >= 0 {
			progress(0, 0, fmt.Sprintf("Downloading... %.0f%% (%s / %s)",
				p.Percent, p.DownloadedFormatted, p.TotalFormatted))
		}
	})
	if err != nil {
		emit(fmt.Sprintf("Error: %v", err))
		return fmt.Errorf("%w: fetch %s: %v", ErrModelLoad, modelID, err)
	}

	dev, prec := c.selector.Select(modelID)
	switch dev {
	case device.CUDA:
		emit("Using CUDA GPU")
	case device.MPS:
		emit(fmt.Sprintf("Using Apple Silicon (MPS) with %s", prec))
	default:
		emit("Using CPU (slow)")
	}

	c.mu.Lock()
	c.handle = &Handle{ModelID: modelID, Device: dev, Precision: prec, State: StateLoading}
	c.mu.Unlock()

	emit("Loading model weights...")
	pipe, err := c.loader.Load(ctx, LoadSpec{
		ModelID:      modelID,
		ArtifactPath: artifact,
		Device:       dev,
		Precision:    prec,
	})
	if err != nil {
		c.mu.Lock()
		c.handle = nil
		c.current = ""
		c.mu.Unlock()
		emit(fmt.Sprintf("Error: %v", err))
		if IsBackendUnavailable(err) {
			return err
		}
		return fmt.Errorf("%w: %s: %v", ErrModelLoad, modelID, err)
	}

	c.mu.Lock()
	c.handle.pipe = pipe
	c.handle.State = StateReady
	c.current = modelID
	c.mu.Unlock()

	c.log.Info("model ready",
		logging.ModelLoadFields(modelID, string(dev), string(prec), cached, time.Since(start))...)
	emit("Model ready!")
	return nil
}

// Ensure returns the ready handle for modelID, preloading it first if
// needed. Fails with ErrModelLoad (or ErrBackendUnavailable) when the
// model cannot be made ready.
func (c *Cache) Ensure(ctx context.Context, modelID string, progress ProgressFunc) (*Handle, error) {
	c.mu.Lock()
	if c.handle != nil && c.handle.State == StateReady && c.current == modelID {
		h := c.handle
		c.mu.Unlock()
		return h, nil
	}
	c.mu.Unlock()

	if err := c.Preload(ctx, modelID, progress); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.handle == nil || c.handle.State != StateReady {
		return nil, fmt.Errorf("%w: %s not ready after preload", ErrModelLoad, modelID)
	}
	return c.handle, nil
}

// Unload releases the resident model and its device memory. Safe to
// call when nothing is loaded. Must not run concurrently with a
// generation; the execution slot serializes the two.
func (c *Cache) Unload() {
	c.mu.Lock()
	h := c.handle
	c.handle = nil
	c.current = ""
	c.mu.Unlock()

	if h == nil {
		return
	}
	if h.pipe != nil {
		if err := h.pipe.Close(); err != nil {
			c.log.Warnf("unload %s: %v", h.ModelID, err)
		}
	}
	c.log.Infof("model %s unloaded", h.ModelID)
}
