// Package core provides shared configuration, project layout, and
// environment parsing for the localgen generation core.
package core

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Default generation settings. The character budget approximates the
// CLIP text encoder's 77-token limit.
const (
	DefaultModel          = "black-forest-labs/FLUX.1-schnell"
	DefaultInferenceSteps = 20
	DefaultGuidanceScale  = 7.5
	DefaultPromptBudget   = 250
	DefaultAspectRatio    = "9:16"

	MinSteps = 1
	MaxSteps = 100

	MinGuidanceScale = 0.0
	MaxGuidanceScale = 30.0
)

// Config holds runtime parameters for the generation core.
type Config struct {
	// Model is the default model identifier when a request omits one.
	Model string `yaml:"model"`

	// ModelsDir is the local model-artifact cache directory.
	ModelsDir string `yaml:"models_dir"`

	// DataDir holds the generation history database.
	DataDir string `yaml:"data_dir"`

	// LogFile is the path for rotated log output.
	LogFile string `yaml:"log_file"`

	// InferenceSteps is the default number of denoising steps.
	InferenceSteps int `yaml:"inference_steps"`

	// GuidanceScale is the default classifier-free guidance scale.
	GuidanceScale float64 `yaml:"guidance_scale"`

	// PromptBudget is the maximum prompt length in characters.
	PromptBudget int `yaml:"prompt_budget"`

	// GenerationTimeout bounds a single generation request.
	GenerationTimeout time.Duration `yaml:"generation_timeout"`

	// Development switches console logging to human-readable output.
	Development bool `yaml:"development"`
}

// LoadConfig builds a Config from environment variables, applying
// validated defaults for anything unset or malformed. A .env file in
// the working directory is loaded first if present; a missing .env is
// not an error.
func LoadConfig() Config {
	// Best effort; explicit environment always wins over .env values.
	_ = godotenv.Load()

	home, _ := os.UserHomeDir()
	base := filepath.Join(home, ".localgen")

	return Config{
		Model:             GetEnvOrDefault("LOCALGEN_MODEL", DefaultModel),
		ModelsDir:         GetEnvOrDefault("LOCALGEN_MODELS_DIR", filepath.Join(base, "models")),
		DataDir:           GetEnvOrDefault("LOCALGEN_DATA_DIR", base),
		LogFile:           GetEnvOrDefault("LOCALGEN_LOG_FILE", filepath.Join(base, "localgen.log")),
		InferenceSteps:    parseSteps(os.Getenv("LOCALGEN_INFERENCE_STEPS")),
		GuidanceScale:     parseGuidance(os.Getenv("LOCALGEN_GUIDANCE_SCALE")),
		PromptBudget:      ParseIntEnv("LOCALGEN_PROMPT_BUDGET", DefaultPromptBudget),
		GenerationTimeout: ParseDurationEnv("LOCALGEN_TIMEOUT_SECONDS", 0),
		Development:       ParseBoolEnv("LOCALGEN_DEV", false),
	}
}

// LoadConfigFile overlays values from a YAML config file onto cfg.
// Zero values in the file leave the existing value untouched.
func LoadConfigFile(cfg Config, path string) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config file: %w", err)
	}

	var file Config
	if err := yaml.Unmarshal(b, &file); err != nil {
		return cfg, fmt.Errorf("parse config file %s: %w", path, err)
	}

	if file.Model != "" {
		cfg.Model = file.Model
	}
	if file.ModelsDir != "" {
		cfg.ModelsDir = file.ModelsDir
	}
	if file.DataDir != "" {
		cfg.DataDir = file.DataDir
	}
	if file.LogFile != "" {
		cfg.LogFile = file.LogFile
	}
	if file.InferenceSteps >= MinSteps && file.InferenceSteps <= MaxSteps {
		cfg.InferenceSteps = file.InferenceSteps
	}
	if file.GuidanceScale > 0 {
		cfg.GuidanceScale = file.GuidanceScale
	}
	if file.PromptBudget > 0 {
		cfg.PromptBudget = file.PromptBudget
	}
	if file.GenerationTimeout > 0 {
		cfg.GenerationTimeout = file.GenerationTimeout
	}
	if file.Development {
		cfg.Development = true
	}
	return cfg, nil
}

// parseSteps validates inference steps, falling back to the default for
// unset, unparseable, or out-of-range values.
func parseSteps(s string) int {
	if s == "" {
		return DefaultInferenceSteps
	}
	steps, err := strconv.Atoi(s)
	if err != nil || steps < MinSteps || steps > MaxSteps {
		return DefaultInferenceSteps
	}
	return steps
}

// parseGuidance validates guidance scale, falling back to the default.
// Zero is a valid value: it disables guidance for families that do not
// support it.
func parseGuidance(s string) float64 {
	if s == "" {
		return DefaultGuidanceScale
	}
	scale, err := strconv.ParseFloat(s, 64)
	if err != nil || scale < MinGuidanceScale || scale > MaxGuidanceScale {
		return DefaultGuidanceScale
	}
	return scale
}

// GetEnvOrDefault returns the value of an environment variable or a
// default when unset.
func GetEnvOrDefault(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

// ParseIntEnv parses an environment variable as an integer, returning
// the default when unset or unparseable.
func ParseIntEnv(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return defaultValue
}

// ParseBoolEnv parses an environment variable as a boolean. Accepts
// case-insensitive true/1/yes/on and false/0/no/off.
func ParseBoolEnv(key string, defaultValue bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue
	}
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "true", "1", "yes", "on":
		return true
	case "false", "0", "no", "off":
		return false
	default:
		return defaultValue
	}
}

// ParseDurationEnv parses an environment variable as a duration in
// seconds, returning the default when unset or unparseable.
func ParseDurationEnv(key string, defaultSeconds int) time.Duration {
	return time.Duration(ParseIntEnv(key, defaultSeconds)) * time.Second
}
