package diffusion

import "localgen/core"

// ProgressFunc receives progress events during model loads and
// generation. step and total describe denoising progress within one
// image; load-phase events use (0, 0). Invoked synchronously from the
// worker context; consumers marshal to their own event loop.
type ProgressFunc func(step, total int, status string)

// Request describes one generation request. Immutable once submitted.
type Request struct {
	// Project receives the generated images.
	Project core.Project

	// Prompt is the raw text prompt; it is sanitized before use.
	Prompt string

	// NumOutputs is the number of images to generate. Values below 1
	// are treated as 1.
	NumOutputs int

	// AspectRatio is a label such as "9:16". Unknown labels resolve to
	// the portrait default.
	AspectRatio string

	// Seed, when non-nil, makes the whole batch reproducible. A single
	// seeded sequence is shared across the batch; later images are not
	// independently reseeded.
	Seed *int64

	// Model overrides the dispatcher's default model id.
	Model string

	// Steps overrides the default inference step count when > 0.
	Steps int

	// GuidanceScale overrides the default guidance when >= 0. Ignored
	// for families that do not support guidance.
	GuidanceScale float64

	// Progress receives progress events. May be nil.
	Progress ProgressFunc
}

// Result is the outcome of a successful generation request.
type Result struct {
	// Paths are the generated image files, ordered by output index.
	// len(Paths) == NumOutputs on success.
	Paths []string

	// Truncated reports whether the prompt was cut to the budget.
	Truncated bool

	// Seed is the seed that produced the batch (the request seed, or a
	// random one when the request had none).
	Seed int64

	// RequestID identifies the request in logs and history.
	RequestID string
}
