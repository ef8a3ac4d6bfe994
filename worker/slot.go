// Package worker serializes generation work onto a single execution
// slot. Image generation saturates the one accelerator the process
// owns, so at most one job runs at a time; a newly submitted job
// replaces a job that is still queued, but never interrupts one that
// has started.
package worker

import (
	"context"
	"sync"

	"localgen/logging"
)

// Job is one unit of work. The context is cancelled when the slot
// closes; long jobs should honor it.
type Job func(ctx context.Context)

// Slot runs jobs one at a time on a dedicated goroutine. Capacity is
// exactly one pending job: submitting while another job waits replaces
// the waiting job, which is dropped without running.
type Slot struct {
	log *logging.Logger

	mu      sync.Mutex
	pending Job
	running bool
	closed  bool

	wake   chan struct{}
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// NewSlot starts the slot's goroutine. logger may be nil.
func NewSlot(logger *logging.Logger) *Slot {
	if logger == nil {
		logger = logging.Nop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &Slot{
		log:    logger,
		wake:   make(chan struct{}, 1),
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	go s.run()
	return s
}

func (s *Slot) run() {
	defer close(s.done)
	for {
		select {
		case <-s.ctx.Done():
			return
		case <-s.wake:
		}

		for {
			s.mu.Lock()
			job := s.pending
			s.pending = nil
			if job == nil {
				s.mu.Unlock()
				break
			}
			s.running = true
			s.mu.Unlock()

			job(s.ctx)

			s.mu.Lock()
			s.running = false
			s.mu.Unlock()
		}
	}
}

// Submit queues job for execution. If another job is already queued
// but not yet started, it is replaced and never runs; the return value
// reports whether a queued job was dropped. A job that has started is
// never interrupted. Submitting to a closed slot is a no-op.
func (s *Slot) Submit(job Job) (replaced bool) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return false
	}
	replaced = s.pending != nil
	s.pending = job
	s.mu.Unlock()

	if replaced {
		s.log.Debug("queued job replaced by newer submission")
	}
	select {
	case s.wake <- struct{}{}:
	default:
	}
	return replaced
}

// Busy reports whether a job is currently executing.
func (s *Slot) Busy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Close stops the slot: the pending job (if any) is dropped, the
// running job's context is cancelled, and Close blocks until the
// goroutine exits. Idempotent.
func (s *Slot) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		<-s.done
		return
	}
	s.closed = true
	s.pending = nil
	s.mu.Unlock()

	s.cancel()
	<-s.done
}
