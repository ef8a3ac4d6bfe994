// localgen generates images from text prompts with locally cached
// diffusion models. It manages the model cache, picks the best device
// available on the machine, and writes outputs into a project's images
// directory.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fatih/color"
	"go.uber.org/zap"

	"localgen/core"
	"localgen/device"
	"localgen/diffusion"
	"localgen/history"
	"localgen/logging"
	"localgen/metrics"
	"localgen/modelstore"
	"localgen/preview"
	"localgen/worker"
)

const (
	exitSuccess = 0
	exitError   = 1
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		return exitError
	}

	if len(os.Args) < 2 {
		usage()
		return exitError
	}
	command, args := os.Args[1], os.Args[2:]

	logger, err := logging.New(cfg.Development, cfg.LogFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		return exitError
	}
	defer logger.Sync()

	// Ctrl-C cancels the in-flight operation; partial outputs stay on
	// disk.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("interrupt received, cancelling")
		cancel()
	}()

	app, err := newApp(cfg, logger)
	if err != nil {
		color.Red("Error: %v", err)
		return exitError
	}
	defer app.Close()

	switch command {
	case "generate":
		err = app.cmdGenerate(ctx, args)
	case "preload":
		err = app.cmdPreload(ctx, args)
	case "unload":
		err = app.cmdUnload(args)
	case "status":
		err = app.cmdStatus(ctx, args)
	case "history":
		err = app.cmdHistory(ctx, args)
	case "models":
		err = app.cmdModels(args)
	case "help", "-h", "--help":
		usage()
		return exitSuccess
	default:
		color.Red("Unknown command: %s", command)
		usage()
		return exitError
	}
	if err != nil {
		logger.Error("command failed", zap.String("command", command), zap.Error(err))
		color.Red("Error: %v", err)
		return exitError
	}
	return exitSuccess
}

// loadConfig builds the runtime configuration: environment variables
// first, then a YAML overlay from the file named by LOCALGEN_CONFIG,
// or from config.yaml in the data directory when present.
func loadConfig() (core.Config, error) {
	cfg := core.LoadConfig()

	path := os.Getenv("LOCALGEN_CONFIG")
	if path == "" {
		candidate := filepath.Join(cfg.DataDir, "config.yaml")
		if _, err := os.Stat(candidate); err == nil {
			path = candidate
		}
	}
	if path == "" {
		return cfg, nil
	}
	return core.LoadConfigFile(cfg, path)
}

func usage() {
	fmt.Fprintf(os.Stderr, `Usage: localgen <command> [flags]

Commands:
  generate   Generate images from a text prompt
  preload    Download and load a model ahead of time
  unload     Release the loaded model
  status     Show device, model cache, and GPU state
  history    Show recent generation requests
  models     List known models

Run 'localgen <command> -h' for command flags.
`)
}

// app wires the long-lived pieces together: store, device selector,
// model cache, dispatcher, history, and the execution slot.
type app struct {
	cfg      core.Config
	log      *logging.Logger
	store    *modelstore.Store
	selector *device.Selector
	cache    *diffusion.Cache
	disp     *diffusion.Dispatcher
	hist     *history.Store
	slot     *worker.Slot
}

func newApp(cfg core.Config, logger *logging.Logger) (*app, error) {
	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	store := modelstore.NewStore(cfg.ModelsDir)
	selector := device.NewSelector()
	cache := diffusion.NewCache(diffusion.NewNativeLoader(), store, selector, logger)

	hist, err := history.Open(cfg.DataDir + "/history.db")
	if err != nil {
		return nil, err
	}

	disp := diffusion.NewDispatcher(cache, logger,
		diffusion.WithDefaults(cfg.Model, cfg.InferenceSteps, cfg.GuidanceScale),
		diffusion.WithPromptBudget(cfg.PromptBudget),
		diffusion.WithTimeout(cfg.GenerationTimeout),
		diffusion.WithRecorder(hist),
	)

	return &app{
		cfg:      cfg,
		log:      logger,
		store:    store,
		selector: selector,
		cache:    cache,
		disp:     disp,
		hist:     hist,
		slot:     worker.NewSlot(logger),
	}, nil
}

func (a *app) Close() {
	a.slot.Close()
	a.cache.Unload()
	a.hist.Close()
}

func (a *app) cmdGenerate(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("generate", flag.ExitOnError)
	prompt := fs.String("prompt", "", "text prompt (required)")
	n := fs.Int("n", 1, "number of images")
	aspect := fs.String("aspect", core.DefaultAspectRatio, "aspect ratio label (9:16, 16:9, 1:1, 4:3, 3:4)")
	seed := fs.Int64("seed", -1, "seed for reproducible output (-1 = random)")
	model := fs.String("model", a.cfg.Model, "model identifier")
	steps := fs.Int("steps", a.cfg.InferenceSteps, "inference steps")
	guidance := fs.Float64("guidance", a.cfg.GuidanceScale, "guidance scale")
	projectDir := fs.String("project", ".", "project directory for outputs")
	showPreview := fs.Bool("preview", false, "render inline previews (iTerm2 protocol)")
	fs.Parse(args)

	if *prompt == "" {
		return fmt.Errorf("-prompt is required")
	}

	// Progress events fire synchronously on the worker goroutine; they
	// are marshaled here over a channel so all console output happens on
	// this goroutine.
	type progressEvent struct {
		step, total int
		status      string
	}
	events := make(chan progressEvent, 16)

	req := diffusion.Request{
		Project:       core.NewProject(*projectDir),
		Prompt:        *prompt,
		NumOutputs:    *n,
		AspectRatio:   *aspect,
		Model:         *model,
		Steps:         *steps,
		GuidanceScale: *guidance,
		Progress: func(step, total int, status string) {
			events <- progressEvent{step, total, status}
		},
	}
	if *seed >= 0 {
		s := *seed
		req.Seed = &s
	}

	// The slot serializes generation: one request occupies the device
	// at a time, and a request submitted while another waits replaces
	// the waiting one.
	type outcome struct {
		res *diffusion.Result
		err error
	}
	done := make(chan outcome, 1)
	a.slot.Submit(func(jobCtx context.Context) {
		genCtx, cancel := mergeCancel(ctx, jobCtx)
		defer cancel()
		res, err := a.disp.Generate(genCtx, req)
		close(events)
		done <- outcome{res, err}
	})

	render := consoleProgress()
	for ev := range events {
		render(ev.step, ev.total, ev.status)
	}
	out := <-done
	if out.res != nil && out.res.Truncated {
		color.Yellow("Note: prompt was truncated to %d characters", a.cfg.PromptBudget)
	}
	if out.err != nil {
		if out.res != nil && len(out.res.Paths) > 0 {
			color.Yellow("Kept %d completed image(s) before the failure", len(out.res.Paths))
			for _, p := range out.res.Paths {
				fmt.Println("  " + p)
			}
		}
		return out.err
	}

	color.Green("Generated %d image(s) (seed %d):", len(out.res.Paths), out.res.Seed)
	for _, p := range out.res.Paths {
		fmt.Println("  " + p)
		if *showPreview && preview.Supported() {
			if err := preview.Fprint(os.Stdout, p, preview.DefaultWidthCols); err != nil {
				a.log.Warnf("inline preview for %s: %v", p, err)
			}
		}
	}
	return nil
}

func (a *app) cmdPreload(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("preload", flag.ExitOnError)
	model := fs.String("model", a.cfg.Model, "model identifier")
	fs.Parse(args)

	return a.cache.Preload(ctx, *model, consoleProgress())
}

func (a *app) cmdUnload(args []string) error {
	fs := flag.NewFlagSet("unload", flag.ExitOnError)
	fs.Parse(args)

	a.cache.Unload()
	color.Green("Model unloaded")
	return nil
}

func (a *app) cmdStatus(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	fs.Parse(args)

	snap := a.selector.Snapshot()
	dev, prec := a.selector.Select(a.cfg.Model)

	fmt.Println("Device:")
	if snap.CUDA {
		color.Green("  CUDA GPU: %s", snap.CUDADevice)
	} else {
		fmt.Println("  CUDA GPU: not available")
	}
	if snap.MPS {
		color.Green("  Apple Silicon (MPS): available")
	} else {
		fmt.Println("  Apple Silicon (MPS): not available")
	}
	fmt.Printf("  Selected for %s: %s (%s)\n", a.cfg.Model, dev, prec)

	fmt.Println("\nBackend:")
	if diffusion.BackendAvailable() {
		color.Green("  %s", diffusion.BackendInfo())
	} else {
		color.Yellow("  %s", diffusion.BackendInfo())
	}

	fmt.Println("\nModel cache:")
	for _, id := range modelstore.RecommendedModels() {
		if a.store.IsCachedLocally(id) {
			color.Green("  [cached] %s", id)
		} else {
			fmt.Printf("  [  -   ] %s (%s)\n", id, modelstore.ApproxDownloadSize(id))
		}
	}

	if stats, err := metrics.NewSampler().Sample(ctx); err == nil {
		fmt.Println("\nGPU:")
		fmt.Printf("  %s\n", stats)
	}
	return nil
}

func (a *app) cmdHistory(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("history", flag.ExitOnError)
	limit := fs.Int("n", 10, "number of records")
	fs.Parse(args)

	recs, err := a.hist.Recent(ctx, *limit)
	if err != nil {
		return err
	}
	if len(recs) == 0 {
		fmt.Println("No generations recorded yet.")
		return nil
	}
	for _, r := range recs {
		fmt.Printf("%s  %s  seed=%d  %dx  %s  %s\n",
			r.CreatedAt.Local().Format("2006-01-02 15:04:05"),
			r.ModelID, r.Seed, r.NumOutputs, r.Elapsed.Round(time.Millisecond), r.Prompt)
		for _, p := range r.Paths {
			fmt.Println("    " + p)
		}
	}
	return nil
}

func (a *app) cmdModels(args []string) error {
	fs := flag.NewFlagSet("models", flag.ExitOnError)
	fs.Parse(args)

	for _, id := range modelstore.RecommendedModels() {
		cached := ""
		if a.store.IsCachedLocally(id) {
			cached = color.GreenString(" [cached]")
		}
		fmt.Printf("%s (%s)%s\n", id, modelstore.ApproxDownloadSize(id), cached)
	}
	return nil
}

// consoleProgress renders progress events on one line. Status events
// print as-is; step events render as a counter.
func consoleProgress() diffusion.ProgressFunc {
	return func(step, total int, status string) {
		if status != "" {
			fmt.Println(status)
			return
		}
		if step > 0 && total > 0 {
			fmt.Printf("\r  step %d/%d", step, total)
			if step == total {
				fmt.Println()
			}
		}
	}
}

// mergeCancel returns a context cancelled when either parent is.
func mergeCancel(a, b context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(a)
	stop := context.AfterFunc(b, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}
