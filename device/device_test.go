package device

import "testing"

func cudaOn() (bool, string)  { return true, "NVIDIA GeForce RTX 4090" }
func cudaOff() (bool, string) { return false, "" }
func mpsOn() bool             { return true }
func mpsOff() bool            { return false }

func TestSelect_PriorityOrder(t *testing.T) {
	tests := []struct {
		name       string
		cuda       func() (bool, string)
		mps        func() bool
		modelID    string
		wantDevice Device
	}{
		{"cuda beats mps", cudaOn, mpsOn, "stabilityai/sdxl-turbo", CUDA},
		{"mps when no cuda", cudaOff, mpsOn, "stabilityai/sdxl-turbo", MPS},
		{"cpu when nothing", cudaOff, mpsOff, "stabilityai/sdxl-turbo", CPU},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewSelectorWithProbes(tt.cuda, tt.mps)
			dev, _ := s.Select(tt.modelID)
			if dev != tt.wantDevice {
				t.Errorf("Select() device = %s, want %s", dev, tt.wantDevice)
			}
		})
	}
}

func TestSelect_PrecisionPolicy(t *testing.T) {
	tests := []struct {
		name          string
		cuda          func() (bool, string)
		mps           func() bool
		modelID       string
		wantPrecision Precision
	}{
		{"flux on mps uses bfloat16", cudaOff, mpsOn, "black-forest-labs/FLUX.1-schnell", BFloat16},
		{"sdxl on mps uses float16", cudaOff, mpsOn, "stabilityai/stable-diffusion-xl-base-1.0", Float16},
		{"flux on cuda uses bfloat16", cudaOn, mpsOff, "black-forest-labs/FLUX.1-dev", BFloat16},
		{"sd15 on cuda uses float16", cudaOn, mpsOff, "runwayml/stable-diffusion-v1-5", Float16},
		{"cpu always float32 for flux", cudaOff, mpsOff, "black-forest-labs/FLUX.1-schnell", Float32},
		{"cpu always float32 for sd", cudaOff, mpsOff, "runwayml/stable-diffusion-v1-5", Float32},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewSelectorWithProbes(tt.cuda, tt.mps)
			_, prec := s.Select(tt.modelID)
			if prec != tt.wantPrecision {
				t.Errorf("Select() precision = %s, want %s", prec, tt.wantPrecision)
			}
		})
	}
}

func TestIsFluxClass(t *testing.T) {
	tests := []struct {
		modelID string
		want    bool
	}{
		{"black-forest-labs/FLUX.1-schnell", true},
		{"black-forest-labs/FLUX.1-dev", true},
		{"some/Flux-Derivative", true},
		{"stabilityai/sdxl-turbo", false},
		{"runwayml/stable-diffusion-v1-5", false},
		{"", false},
	}

	for _, tt := range tests {
		if got := IsFluxClass(tt.modelID); got != tt.want {
			t.Errorf("IsFluxClass(%q) = %v, want %v", tt.modelID, got, tt.want)
		}
	}
}

func TestSnapshot(t *testing.T) {
	s := NewSelectorWithProbes(cudaOn, mpsOff)
	caps := s.Snapshot()

	if !caps.CUDA {
		t.Error("expected CUDA available")
	}
	if caps.CUDADevice == "" {
		t.Error("expected CUDA device name")
	}
	if caps.MPS {
		t.Error("expected MPS unavailable")
	}
	if !caps.CPUFallback {
		t.Error("CPU fallback must always be available")
	}
}
