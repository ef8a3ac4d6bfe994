package metrics

import (
	"strings"
	"testing"
)

func TestParseSMIOutput(t *testing.T) {
	stats, err := parseSMIOutput("87, 64, 10240, 24576\n")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if stats.Utilization != 87 {
		t.Fatalf("utilization = %v", stats.Utilization)
	}
	if stats.Temperature != 64 {
		t.Fatalf("temperature = %v", stats.Temperature)
	}
	wantUsed := int64(10240) * 1024 * 1024
	wantTotal := int64(24576) * 1024 * 1024
	if stats.MemoryUsed != wantUsed || stats.MemoryTotal != wantTotal {
		t.Fatalf("memory = %d/%d, want %d/%d", stats.MemoryUsed, stats.MemoryTotal, wantUsed, wantTotal)
	}
	if stats.MemoryFree != wantTotal-wantUsed {
		t.Fatalf("free = %d", stats.MemoryFree)
	}
}

func TestParseSMIOutputErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"whitespace only", "   \n"},
		{"too few fields", "87, 64, 10240"},
		{"non-numeric", "N/A, 64, 10240, 24576"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := parseSMIOutput(tt.input); err == nil {
				t.Fatalf("parse(%q) succeeded, want error", tt.input)
			}
		})
	}
}

func TestGPUStatsString(t *testing.T) {
	s := GPUStats{
		Utilization: 50,
		Temperature: 70,
		MemoryUsed:  2 * 1024 * 1024 * 1024,
		MemoryTotal: 8 * 1024 * 1024 * 1024,
	}
	out := s.String()
	for _, want := range []string{"50% util", "70°C", "2.0 GB", "8.0 GB"} {
		if !strings.Contains(out, want) {
			t.Fatalf("String() = %q, missing %q", out, want)
		}
	}
}
