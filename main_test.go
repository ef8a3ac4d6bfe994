package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfigOverlayFromEnvPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := "model: stabilityai/sdxl-turbo\nprompt_budget: 100\ninference_steps: 8\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("LOCALGEN_CONFIG", path)
	t.Setenv("LOCALGEN_DATA_DIR", t.TempDir())

	cfg, err := loadConfig()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Model != "stabilityai/sdxl-turbo" {
		t.Fatalf("model = %q", cfg.Model)
	}
	if cfg.PromptBudget != 100 {
		t.Fatalf("prompt budget = %d, want 100 from config file", cfg.PromptBudget)
	}
	if cfg.InferenceSteps != 8 {
		t.Fatalf("steps = %d", cfg.InferenceSteps)
	}
}

func TestLoadConfigOverlayFromDataDir(t *testing.T) {
	dataDir := t.TempDir()
	content := "guidance_scale: 3.5\n"
	if err := os.WriteFile(filepath.Join(dataDir, "config.yaml"), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("LOCALGEN_CONFIG", "")
	os.Unsetenv("LOCALGEN_CONFIG")
	t.Setenv("LOCALGEN_DATA_DIR", dataDir)

	cfg, err := loadConfig()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.GuidanceScale != 3.5 {
		t.Fatalf("guidance = %v, want 3.5 from data-dir config", cfg.GuidanceScale)
	}
}

func TestLoadConfigNoOverlay(t *testing.T) {
	t.Setenv("LOCALGEN_CONFIG", "")
	os.Unsetenv("LOCALGEN_CONFIG")
	t.Setenv("LOCALGEN_DATA_DIR", t.TempDir())

	if _, err := loadConfig(); err != nil {
		t.Fatalf("load without config file: %v", err)
	}
}

func TestLoadConfigBadOverlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(":: not yaml ::"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("LOCALGEN_CONFIG", path)

	if _, err := loadConfig(); err == nil {
		t.Fatal("malformed config file accepted")
	}
}
