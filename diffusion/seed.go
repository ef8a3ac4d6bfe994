package diffusion

import (
	"crypto/rand"
	"encoding/binary"

	"localgen/device"
)

// SeedSequence yields the per-image seeds for one batch. A seeded
// sequence is created once per request and shared across all outputs,
// mirroring the single-generator-object semantics of diffusion
// libraries: the first image uses the request seed and later images
// continue the sequence rather than being independently reseeded.
type SeedSequence struct {
	state  uint64
	first  int64
	issued bool
	device device.Device
}

// NewSeedSequence creates a deterministic sequence starting at seed,
// bound to the device the batch runs on.
func NewSeedSequence(seed int64, dev device.Device) *SeedSequence {
	return &SeedSequence{state: uint64(seed), first: seed, device: dev}
}

// Next returns the next seed in the sequence. The first call returns
// the original seed; subsequent calls advance the sequence with a
// splitmix64 step.
func (s *SeedSequence) Next() int64 {
	if !s.issued {
		s.issued = true
		return s.first
	}
	s.state += 0x9e3779b97f4a7c15
	z := s.state
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	z ^= z >> 31
	return int64(z &^ (1 << 63))
}

// First returns the seed the sequence started from.
func (s *SeedSequence) First() int64 {
	return s.first
}

// Device returns the device the sequence is bound to.
func (s *SeedSequence) Device() device.Device {
	return s.device
}

// RandomSeed returns a non-negative random seed from crypto/rand,
// for requests that did not pin one.
func RandomSeed() int64 {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		// crypto/rand failing is effectively unheard of; a fixed seed
		// beats panicking mid-request.
		return 42
	}
	return int64(binary.LittleEndian.Uint64(buf[:]) &^ (1 << 63))
}
