//go:build !sd

// Stub native backend for builds without the stable-diffusion.cpp
// library. The default build uses this file; build with
//
//	CGO_ENABLED=1 go build -tags sd
//
// to link the real backend.

package diffusion

import (
	"context"
	"fmt"
)

// BackendAvailable reports whether the native inference runtime is
// linked into this binary.
func BackendAvailable() bool {
	return false
}

// BackendInfo describes the compiled-in backend for status surfaces.
func BackendInfo() string {
	return "stub (stable-diffusion.cpp not linked)"
}

type nativeLoader struct{}

// NewNativeLoader returns the Loader backed by stable-diffusion.cpp.
// In a binary built without the sd tag every load fails with
// ErrBackendUnavailable.
func NewNativeLoader() Loader {
	return nativeLoader{}
}

func (nativeLoader) Load(_ context.Context, spec LoadSpec) (Pipeline, error) {
	return nil, fmt.Errorf("%w: binary built without the sd tag, cannot load %s",
		ErrBackendUnavailable, spec.ModelID)
}
