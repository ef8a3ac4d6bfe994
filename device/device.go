// Package device detects available compute backends and decides the
// numeric precision used for model weights on each of them.
package device

import (
	"runtime"
	"strings"
)

// Device identifies a compute backend.
type Device string

const (
	// CUDA is a discrete NVIDIA accelerator.
	CUDA Device = "cuda"
	// MPS is the integrated Apple Silicon accelerator (Metal).
	MPS Device = "mps"
	// CPU is the universal fallback.
	CPU Device = "cpu"
)

// Precision identifies the floating-point width used for model weights
// and activations.
type Precision string

const (
	Float16  Precision = "float16"
	BFloat16 Precision = "bfloat16"
	Float32  Precision = "float32"
)

// Capabilities is a read-only snapshot of backend availability, suitable
// for a status surface.
type Capabilities struct {
	CUDA        bool   `json:"cuda"`
	CUDADevice  string `json:"cuda_device,omitempty"`
	MPS         bool   `json:"mps"`
	CPUFallback bool   `json:"cpu"`
}

// Selector probes compute backends and chooses device plus precision
// for a given model. Probing is a pure query with no side effects on
// the probed hardware.
//
// Probe functions are injectable so tests can simulate hardware.
type Selector struct {
	probeCUDA func() (bool, string)
	probeMPS  func() bool
}

// NewSelector returns a Selector using the platform probes: NVML for
// discrete NVIDIA devices and an architecture check for Apple Silicon.
func NewSelector() *Selector {
	return &Selector{
		probeCUDA: probeCUDA,
		probeMPS:  probeMPS,
	}
}

// NewSelectorWithProbes returns a Selector with explicit probe
// functions. Used by tests.
func NewSelectorWithProbes(cuda func() (bool, string), mps func() bool) *Selector {
	return &Selector{probeCUDA: cuda, probeMPS: mps}
}

// Select chooses the device and precision for modelID. Backends are
// probed in priority order: CUDA, then MPS, then CPU.
//
// Flux-class models require bfloat16 on accelerators; float16 produces
// blank (all-black) output for that family. Other families use float16
// on accelerators. CPU always runs full float32.
func (s *Selector) Select(modelID string) (Device, Precision) {
	flux := IsFluxClass(modelID)

	if ok, _ := s.probeCUDA(); ok {
		if flux {
			return CUDA, BFloat16
		}
		return CUDA, Float16
	}
	if s.probeMPS() {
		if flux {
			return MPS, BFloat16
		}
		return MPS, Float16
	}
	return CPU, Float32
}

// Snapshot reports which backends are available. CPUFallback is always
// true: generation can run, slowly, anywhere.
func (s *Selector) Snapshot() Capabilities {
	cuda, name := s.probeCUDA()
	return Capabilities{
		CUDA:        cuda,
		CUDADevice:  name,
		MPS:         s.probeMPS(),
		CPUFallback: true,
	}
}

// IsFluxClass reports whether modelID belongs to the flux model family.
func IsFluxClass(modelID string) bool {
	return strings.Contains(strings.ToLower(modelID), "flux")
}

// probeMPS reports whether the integrated Apple Silicon accelerator is
// present. Metal is available on all arm64 Macs.
func probeMPS() bool {
	return runtime.GOOS == "darwin" && runtime.GOARCH == "arm64"
}
