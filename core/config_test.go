package core

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadConfigDefaults(t *testing.T) {
	for _, key := range []string{
		"LOCALGEN_MODEL", "LOCALGEN_MODELS_DIR", "LOCALGEN_DATA_DIR",
		"LOCALGEN_LOG_FILE", "LOCALGEN_INFERENCE_STEPS",
		"LOCALGEN_GUIDANCE_SCALE", "LOCALGEN_PROMPT_BUDGET",
		"LOCALGEN_TIMEOUT_SECONDS", "LOCALGEN_DEV",
	} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}

	cfg := LoadConfig()
	if cfg.Model != DefaultModel {
		t.Fatalf("model = %q", cfg.Model)
	}
	if cfg.InferenceSteps != DefaultInferenceSteps {
		t.Fatalf("steps = %d", cfg.InferenceSteps)
	}
	if cfg.GuidanceScale != DefaultGuidanceScale {
		t.Fatalf("guidance = %v", cfg.GuidanceScale)
	}
	if cfg.PromptBudget != DefaultPromptBudget {
		t.Fatalf("budget = %d", cfg.PromptBudget)
	}
	if cfg.GenerationTimeout != 0 {
		t.Fatalf("timeout = %v", cfg.GenerationTimeout)
	}
	if cfg.Development {
		t.Fatal("development defaulted to true")
	}
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("LOCALGEN_MODEL", "stabilityai/sdxl-turbo")
	t.Setenv("LOCALGEN_INFERENCE_STEPS", "30")
	t.Setenv("LOCALGEN_GUIDANCE_SCALE", "5.0")
	t.Setenv("LOCALGEN_TIMEOUT_SECONDS", "120")
	t.Setenv("LOCALGEN_DEV", "true")

	cfg := LoadConfig()
	if cfg.Model != "stabilityai/sdxl-turbo" {
		t.Fatalf("model = %q", cfg.Model)
	}
	if cfg.InferenceSteps != 30 {
		t.Fatalf("steps = %d", cfg.InferenceSteps)
	}
	if cfg.GuidanceScale != 5.0 {
		t.Fatalf("guidance = %v", cfg.GuidanceScale)
	}
	if cfg.GenerationTimeout != 120*time.Second {
		t.Fatalf("timeout = %v", cfg.GenerationTimeout)
	}
	if !cfg.Development {
		t.Fatal("development not set")
	}
}

func TestLoadConfigRejectsOutOfRange(t *testing.T) {
	t.Setenv("LOCALGEN_INFERENCE_STEPS", "5000")
	t.Setenv("LOCALGEN_GUIDANCE_SCALE", "-3")

	cfg := LoadConfig()
	if cfg.InferenceSteps != DefaultInferenceSteps {
		t.Fatalf("out-of-range steps accepted: %d", cfg.InferenceSteps)
	}
	if cfg.GuidanceScale != DefaultGuidanceScale {
		t.Fatalf("out-of-range guidance accepted: %v", cfg.GuidanceScale)
	}
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := "model: runwayml/stable-diffusion-v1-5\ninference_steps: 12\ndevelopment: true\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	base := Config{Model: DefaultModel, InferenceSteps: 20, PromptBudget: 250}
	cfg, err := LoadConfigFile(base, path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Model != "runwayml/stable-diffusion-v1-5" {
		t.Fatalf("model = %q", cfg.Model)
	}
	if cfg.InferenceSteps != 12 {
		t.Fatalf("steps = %d", cfg.InferenceSteps)
	}
	if !cfg.Development {
		t.Fatal("development not overlaid")
	}
	// Fields absent from the file keep their values.
	if cfg.PromptBudget != 250 {
		t.Fatalf("budget = %d", cfg.PromptBudget)
	}
}

func TestLoadConfigFileMissing(t *testing.T) {
	base := Config{Model: DefaultModel}
	if _, err := LoadConfigFile(base, filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("missing file did not error")
	}
}

func TestParseBoolEnv(t *testing.T) {
	tests := []struct {
		value string
		want  bool
	}{
		{"true", true}, {"TRUE", true}, {"1", true}, {"yes", true}, {"on", true},
		{"false", false}, {"0", false}, {"no", false}, {"off", false},
		{"maybe", false},
	}
	for _, tt := range tests {
		t.Setenv("LOCALGEN_TEST_BOOL", tt.value)
		if got := ParseBoolEnv("LOCALGEN_TEST_BOOL", false); got != tt.want {
			t.Fatalf("ParseBoolEnv(%q) = %v, want %v", tt.value, got, tt.want)
		}
	}
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		n    int64
		want string
	}{
		{0, "0 B"},
		{512, "512 B"},
		{2048, "2.0 KB"},
		{5 * BytesPerMB, "5.0 MB"},
		{int64(23.5 * float64(BytesPerGB)), "23.5 GB"},
	}
	for _, tt := range tests {
		if got := FormatBytes(tt.n); got != tt.want {
			t.Fatalf("FormatBytes(%d) = %q, want %q", tt.n, got, tt.want)
		}
	}
}

func TestProjectLayout(t *testing.T) {
	dir := t.TempDir()
	p := NewProject(dir)
	if p.Name != filepath.Base(dir) {
		t.Fatalf("name = %q", p.Name)
	}
	if err := p.EnsureDirs(); err != nil {
		t.Fatal(err)
	}
	info, err := os.Stat(p.ImagesDir())
	if err != nil || !info.IsDir() {
		t.Fatalf("images dir not created: %v", err)
	}

	var empty Project
	if err := empty.EnsureDirs(); err == nil {
		t.Fatal("empty project accepted")
	}
}
