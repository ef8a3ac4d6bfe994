package core

import (
	"fmt"
	"os"
	"path/filepath"
)

// Project is a target location for generated artifacts. Generated
// images are written beneath the project root in a dedicated images
// directory.
type Project struct {
	// Name is the human-readable project name.
	Name string

	// Root is the project directory.
	Root string
}

// NewProject creates a Project rooted at dir. The name defaults to the
// directory base name.
func NewProject(dir string) Project {
	return Project{
		Name: filepath.Base(dir),
		Root: dir,
	}
}

// ImagesDir returns the directory generated images are written to.
func (p Project) ImagesDir() string {
	return filepath.Join(p.Root, "images")
}

// EnsureDirs creates the project directory tree if missing.
func (p Project) EnsureDirs() error {
	if p.Root == "" {
		return fmt.Errorf("project root is empty")
	}
	if err := os.MkdirAll(p.ImagesDir(), 0755); err != nil {
		return fmt.Errorf("create project dirs: %w", err)
	}
	return nil
}
