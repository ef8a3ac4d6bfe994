package diffusion

import (
	"testing"

	"localgen/device"
)

func TestSeedSequenceFirstReturnsSeed(t *testing.T) {
	seq := NewSeedSequence(42, device.CPU)
	if got := seq.Next(); got != 42 {
		t.Fatalf("first Next() = %d, want the request seed", got)
	}
	if seq.First() != 42 {
		t.Fatalf("First() = %d, want 42", seq.First())
	}
}

func TestSeedSequenceDeterministic(t *testing.T) {
	a := NewSeedSequence(42, device.CPU)
	b := NewSeedSequence(42, device.CPU)
	for i := 0; i < 5; i++ {
		sa, sb := a.Next(), b.Next()
		if sa != sb {
			t.Fatalf("sequence diverged at %d: %d != %d", i, sa, sb)
		}
	}
}

func TestSeedSequenceAdvances(t *testing.T) {
	seq := NewSeedSequence(7, device.CUDA)
	seen := map[int64]bool{}
	for i := 0; i < 10; i++ {
		s := seq.Next()
		if s < 0 {
			t.Fatalf("negative seed at %d: %d", i, s)
		}
		if seen[s] {
			t.Fatalf("seed %d repeated within batch", s)
		}
		seen[s] = true
	}
}

func TestSeedSequenceDiffersBySeed(t *testing.T) {
	a := NewSeedSequence(1, device.CPU)
	b := NewSeedSequence(2, device.CPU)
	a.Next() // skip the pinned first values
	b.Next()
	if a.Next() == b.Next() {
		t.Fatal("distinct seeds produced identical second values")
	}
}

func TestRandomSeedNonNegative(t *testing.T) {
	for i := 0; i < 100; i++ {
		if s := RandomSeed(); s < 0 {
			t.Fatalf("RandomSeed() = %d", s)
		}
	}
}
