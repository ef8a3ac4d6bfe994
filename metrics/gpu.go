// Package metrics samples GPU state via nvidia-smi. Generation is a
// one-shot workload here, so the sampler is on-demand rather than a
// periodic collector: the status command and pre-generation logging
// take a single snapshot each.
package metrics

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"localgen/core"
)

// GPUStats is one snapshot of GPU state.
type GPUStats struct {
	// Utilization is GPU utilization in percent.
	Utilization float64
	// Temperature is the GPU temperature in degrees Celsius.
	Temperature float64
	// MemoryUsed, MemoryTotal, MemoryFree are in bytes.
	MemoryUsed  int64
	MemoryTotal int64
	MemoryFree  int64
}

// String renders the snapshot for status output.
func (g GPUStats) String() string {
	return fmt.Sprintf("%.0f%% util, %.0f°C, %s / %s VRAM",
		g.Utilization, g.Temperature,
		core.FormatBytes(g.MemoryUsed), core.FormatBytes(g.MemoryTotal))
}

// sampleTimeout bounds a single nvidia-smi invocation.
const sampleTimeout = 5 * time.Second

// Sampler takes one-shot GPU snapshots via nvidia-smi.
type Sampler struct {
	// Path to the nvidia-smi executable; "nvidia-smi" resolves via PATH.
	Path string
}

// NewSampler returns a Sampler using nvidia-smi from PATH.
func NewSampler() *Sampler {
	return &Sampler{Path: "nvidia-smi"}
}

// Sample queries nvidia-smi once. It fails when no NVIDIA GPU or
// driver is present; callers treat that as "no GPU stats", not a fault.
func (s *Sampler) Sample(ctx context.Context) (GPUStats, error) {
	ctx, cancel := context.WithTimeout(ctx, sampleTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, s.Path,
		"--query-gpu=utilization.gpu,temperature.gpu,memory.used,memory.total",
		"--format=csv,noheader,nounits")

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return GPUStats{}, fmt.Errorf("nvidia-smi: %w (stderr: %s)", err, strings.TrimSpace(stderr.String()))
	}
	return parseSMIOutput(stdout.String())
}

// parseSMIOutput parses one CSV line of nvidia-smi query output.
func parseSMIOutput(output string) (GPUStats, error) {
	output = strings.TrimSpace(output)
	if output == "" {
		return GPUStats{}, fmt.Errorf("empty nvidia-smi output")
	}

	record, err := csv.NewReader(strings.NewReader(output)).Read()
	if err != nil {
		return GPUStats{}, fmt.Errorf("parse nvidia-smi csv: %w", err)
	}
	if len(record) < 4 {
		return GPUStats{}, fmt.Errorf("nvidia-smi returned %d fields, want 4", len(record))
	}

	fields := make([]float64, 4)
	for i, name := range []string{"utilization", "temperature", "memory.used", "memory.total"} {
		v, err := strconv.ParseFloat(strings.TrimSpace(record[i]), 64)
		if err != nil {
			return GPUStats{}, fmt.Errorf("parse %s %q: %w", name, record[i], err)
		}
		fields[i] = v
	}

	memUsed := int64(fields[2] * float64(core.BytesPerMB))
	memTotal := int64(fields[3] * float64(core.BytesPerMB))
	return GPUStats{
		Utilization: fields[0],
		Temperature: fields[1],
		MemoryUsed:  memUsed,
		MemoryTotal: memTotal,
		MemoryFree:  memTotal - memUsed,
	}, nil
}
