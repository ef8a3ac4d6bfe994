package diffusion

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"localgen/logging"
)

// Recorder receives one record per completed generation request.
// Implemented by the history store; nil disables recording.
type Recorder interface {
	Record(ctx context.Context, rec GenerationRecord) error
}

// GenerationRecord is the persisted summary of one request.
type GenerationRecord struct {
	RequestID   string
	Prompt      string
	Truncated   bool
	ModelID     string
	Device      string
	Precision   string
	AspectRatio string
	Seed        int64
	Steps       int
	NumOutputs  int
	Paths       []string
	Elapsed     time.Duration
	CreatedAt   time.Time
}

// Dispatcher turns a generation request into image files on disk. It
// owns no model state itself; the Cache holds the resident pipeline
// and the Dispatcher drives it per request.
type Dispatcher struct {
	cache    *Cache
	recorder Recorder
	log      *logging.Logger

	defaultModel string
	steps        int
	guidance     float64
	promptBudget int
	timeout      time.Duration
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithRecorder attaches a history recorder.
func WithRecorder(r Recorder) DispatcherOption {
	return func(d *Dispatcher) { d.recorder = r }
}

// WithDefaults overrides the fallback model, step count, and guidance
// scale used when a request leaves them zero.
func WithDefaults(model string, steps int, guidance float64) DispatcherOption {
	return func(d *Dispatcher) {
		d.defaultModel = model
		d.steps = steps
		d.guidance = guidance
	}
}

// WithPromptBudget overrides the prompt character budget. Values
// below 1 keep the default.
func WithPromptBudget(budget int) DispatcherOption {
	return func(d *Dispatcher) {
		if budget > 0 {
			d.promptBudget = budget
		}
	}
}

// WithTimeout bounds each request; zero means no deadline.
func WithTimeout(t time.Duration) DispatcherOption {
	return func(d *Dispatcher) { d.timeout = t }
}

// NewDispatcher builds a Dispatcher over a model cache. logger may be
// nil.
func NewDispatcher(cache *Cache, logger *logging.Logger, opts ...DispatcherOption) *Dispatcher {
	if logger == nil {
		logger = logging.Nop()
	}
	d := &Dispatcher{
		cache:        cache,
		log:          logger,
		defaultModel: "black-forest-labs/FLUX.1-schnell",
		steps:        20,
		guidance:     7.5,
		promptBudget: PromptBudget,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Generate runs one request end to end: sanitize the prompt, resolve
// dimensions, ensure the model is resident, then produce NumOutputs
// images, each written to the project's images directory before the
// next begins. Images written before a mid-batch failure stay on disk;
// the returned error wraps ErrGeneration (or the load error) and the
// partial Result lists what was produced.
func (d *Dispatcher) Generate(ctx context.Context, req Request) (*Result, error) {
	if req.Prompt == "" {
		return nil, fmt.Errorf("%w: empty prompt", ErrGeneration)
	}
	if req.NumOutputs <= 0 {
		req.NumOutputs = 1
	}
	if req.Model == "" {
		req.Model = d.defaultModel
	}
	if req.Steps <= 0 {
		req.Steps = d.steps
	}
	if req.GuidanceScale == 0 {
		req.GuidanceScale = d.guidance
	}
	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	start := time.Now()
	requestID := uuid.New().String()
	res := &Result{RequestID: requestID}

	prompt, truncated := SanitizePromptN(req.Prompt, d.promptBudget)
	res.Truncated = truncated
	if truncated {
		d.log.Infof("prompt truncated to %d chars", len(prompt))
	}

	dims := ResolveDimensions(req.AspectRatio)

	handle, err := d.cache.Ensure(ctx, req.Model, req.Progress)
	if err != nil {
		return res, err
	}

	// One seed sequence per request: an explicit seed pins the first
	// image and derives the rest deterministically, so a whole batch
	// replays from a single number.
	var seq *SeedSequence
	if req.Seed != nil {
		seq = NewSeedSequence(*req.Seed, handle.Device)
	} else {
		seq = NewSeedSequence(RandomSeed(), handle.Device)
	}
	res.Seed = seq.First()

	caps := CapabilitiesFor(req.Model)
	guidance := req.GuidanceScale
	if !caps.GuidanceScale {
		guidance = -1
	}

	if err := d.project(&req); err != nil {
		return res, err
	}

	stamp := time.Now().Format("20060102_150405")
	slug := Slug(prompt)

	for i := 0; i < req.NumOutputs; i++ {
		if req.Progress != nil {
			req.Progress(0, req.Steps, fmt.Sprintf("Generating image %d/%d...", i+1, req.NumOutputs))
		}

		params := PipelineParams{
			Prompt:        prompt,
			Width:         dims.Width,
			Height:        dims.Height,
			Steps:         req.Steps,
			GuidanceScale: guidance,
			Seed:          seq.Next(),
		}
		if caps.StepCallback {
			params.OnStep = func(step, total int) {
				if req.Progress != nil {
					req.Progress(step, total, "")
				}
			}
		} else if req.Progress != nil {
			req.Progress(0, req.Steps, "Generating... (no step progress for this model)")
		}

		out, err := handle.Pipeline().Generate(ctx, params)
		if err != nil {
			return res, fmt.Errorf("%w: image %d/%d: %v", ErrGeneration, i+1, req.NumOutputs, err)
		}

		png := out.PNG
		if req.AspectRatio == PortraitLabel && (out.Width != PortraitWidth || out.Height != PortraitHeight) {
			png, err = ResizePNG(png, PortraitWidth, PortraitHeight)
			if err != nil {
				return res, fmt.Errorf("%w: resize image %d/%d: %v", ErrGeneration, i+1, req.NumOutputs, err)
			}
		}

		path := filepath.Join(req.Project.ImagesDir(), fmt.Sprintf("%s_%s_%d.png", stamp, slug, i+1))
		if err := os.WriteFile(path, png, 0o644); err != nil {
			return res, fmt.Errorf("%w: write image %d/%d: %v", ErrGeneration, i+1, req.NumOutputs, err)
		}
		res.Paths = append(res.Paths, path)

		d.log.Info("image generated",
			logging.GenerationFields(req.Model, string(handle.Device), string(handle.Precision),
				params.Seed, req.Steps, time.Since(start))...)
	}

	if d.recorder != nil {
		rec := GenerationRecord{
			RequestID:   requestID,
			Prompt:      prompt,
			Truncated:   truncated,
			ModelID:     req.Model,
			Device:      string(handle.Device),
			Precision:   string(handle.Precision),
			AspectRatio: req.AspectRatio,
			Seed:        res.Seed,
			Steps:       req.Steps,
			NumOutputs:  req.NumOutputs,
			Paths:       res.Paths,
			Elapsed:     time.Since(start),
			CreatedAt:   start,
		}
		if err := d.recorder.Record(ctx, rec); err != nil {
			d.log.Warnf("recording generation %s: %v", requestID, err)
		}
	}

	return res, nil
}

func (d *Dispatcher) project(req *Request) error {
	if req.Project.Root == "" {
		return fmt.Errorf("%w: request has no project", ErrGeneration)
	}
	if err := req.Project.EnsureDirs(); err != nil {
		return fmt.Errorf("%w: project dirs: %v", ErrGeneration, err)
	}
	return nil
}
