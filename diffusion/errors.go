// Package diffusion is the local generation core: it owns the resident
// model handle, sanitizes prompts, and dispatches seeded generation
// calls against the selected compute backend.
package diffusion

import "errors"

// Sentinel errors for the generation core. Parameter normalization
// (unknown aspect ratios, missing optional fields) never produces an
// error; those fall back to documented defaults.
var (
	// ErrBackendUnavailable means the native inference runtime is not
	// linked or present; generation cannot proceed at all.
	ErrBackendUnavailable = errors.New("diffusion: inference backend unavailable")

	// ErrModelLoad means the download or load of model weights failed.
	// The cache reverts to unloaded.
	ErrModelLoad = errors.New("diffusion: model load failed")

	// ErrGeneration means the inference call failed for a ready model.
	ErrGeneration = errors.New("diffusion: image generation failed")
)

// IsBackendUnavailable reports whether err indicates a missing
// inference runtime.
func IsBackendUnavailable(err error) bool {
	return errors.Is(err, ErrBackendUnavailable)
}

// IsModelLoad reports whether err indicates a failed model load.
func IsModelLoad(err error) bool {
	return errors.Is(err, ErrModelLoad)
}

// IsGeneration reports whether err indicates a failed inference call.
func IsGeneration(err error) bool {
	return errors.Is(err, ErrGeneration)
}
