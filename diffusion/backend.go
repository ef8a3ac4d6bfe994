package diffusion

import (
	"context"
	"fmt"

	"localgen/device"
)

// Pipeline is one loaded model instance bound to a device and
// precision. It is exclusively owned by the Cache; the dispatcher only
// calls Generate on it, never mutates it.
type Pipeline interface {
	// Generate runs one inference call producing a single PNG image.
	Generate(ctx context.Context, params PipelineParams) (*Output, error)

	// Close releases the underlying device memory. The pipeline is
	// unusable afterwards.
	Close() error
}

// Loader turns a model artifact into a live Pipeline. The native
// stable-diffusion.cpp loader implements this; tests substitute fakes.
type Loader interface {
	Load(ctx context.Context, spec LoadSpec) (Pipeline, error)
}

// LoadSpec describes one model load.
type LoadSpec struct {
	ModelID      string
	ArtifactPath string
	Device       device.Device
	Precision    device.Precision
}

// PipelineParams are the arguments of a single inference call.
type PipelineParams struct {
	Prompt string
	Width  int
	Height int
	Steps  int

	// GuidanceScale below zero means the call omits guidance entirely;
	// the capability table decides that before the call is built.
	GuidanceScale float64

	// Seed for this image, drawn from the request's seed sequence.
	Seed int64

	// OnStep receives per-step denoising progress. Nil when the model
	// family does not support step callbacks.
	OnStep func(step, total int)
}

// Output is the result of one inference call.
type Output struct {
	PNG    []byte
	Width  int
	Height int
	Seed   int64
}

// Image dimension limits for pipeline calls. Dimensions must be
// multiples of 8 for the VAE.
const (
	MinImageSize      = 128
	MaxImageSize      = 2048
	imageSizeMultiple = 8
)

// ValidatePipelineParams checks a pipeline call before it reaches the
// backend, so malformed calls fail with a clear message instead of a
// native-layer crash.
func ValidatePipelineParams(p PipelineParams) error {
	if p.Prompt == "" {
		return fmt.Errorf("%w: empty prompt", ErrGeneration)
	}
	if p.Width < MinImageSize || p.Width > MaxImageSize || p.Width%imageSizeMultiple != 0 {
		return fmt.Errorf("%w: invalid width %d", ErrGeneration, p.Width)
	}
	if p.Height < MinImageSize || p.Height > MaxImageSize || p.Height%imageSizeMultiple != 0 {
		return fmt.Errorf("%w: invalid height %d", ErrGeneration, p.Height)
	}
	if p.Steps < 1 {
		return fmt.Errorf("%w: steps must be >= 1", ErrGeneration)
	}
	return nil
}
