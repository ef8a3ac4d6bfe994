package worker

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestSlotRunsSubmittedJob(t *testing.T) {
	s := NewSlot(nil)
	defer s.Close()

	done := make(chan struct{})
	s.Submit(func(context.Context) { close(done) })

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("job never ran")
	}
}

func TestSlotSerializesJobs(t *testing.T) {
	s := NewSlot(nil)
	defer s.Close()

	var mu sync.Mutex
	var concurrent, peak, completed int

	release := make(chan struct{})
	started := make(chan struct{}, 2)
	finished := make(chan struct{}, 2)
	job := func(context.Context) {
		mu.Lock()
		concurrent++
		if concurrent > peak {
			peak = concurrent
		}
		mu.Unlock()
		started <- struct{}{}
		<-release
		mu.Lock()
		concurrent--
		completed++
		mu.Unlock()
		finished <- struct{}{}
	}

	s.Submit(job)
	<-started
	// The first job is running; this one queues behind it.
	s.Submit(job)
	close(release)

	for i := 0; i < 2; i++ {
		select {
		case <-finished:
		case <-time.After(2 * time.Second):
			t.Fatal("jobs did not complete")
		}
	}
	mu.Lock()
	defer mu.Unlock()
	if peak != 1 {
		t.Fatalf("peak concurrency = %d, want 1", peak)
	}
	if completed != 2 {
		t.Fatalf("completed = %d, want 2", completed)
	}
}

func TestSlotReplacesPendingJob(t *testing.T) {
	s := NewSlot(nil)
	defer s.Close()

	release := make(chan struct{})
	started := make(chan struct{})
	s.Submit(func(context.Context) {
		close(started)
		<-release
	})
	<-started

	var dropped, ran atomic.Bool
	if replaced := s.Submit(func(context.Context) { dropped.Store(true) }); replaced {
		t.Fatal("first queued job reported as replacing")
	}
	replaced := s.Submit(func(context.Context) { ran.Store(true) })
	if !replaced {
		t.Fatal("second queued job did not report replacement")
	}

	close(release)

	deadline := time.Now().Add(2 * time.Second)
	for !ran.Load() {
		if time.Now().After(deadline) {
			t.Fatal("replacement job never ran")
		}
		time.Sleep(5 * time.Millisecond)
	}
	if dropped.Load() {
		t.Fatal("replaced job ran anyway")
	}
}

func TestSlotNeverInterruptsRunningJob(t *testing.T) {
	s := NewSlot(nil)
	defer s.Close()

	started := make(chan struct{})
	finished := make(chan struct{})
	s.Submit(func(ctx context.Context) {
		close(started)
		// A replacement submission must not cancel this context.
		select {
		case <-ctx.Done():
			t.Error("running job was cancelled by a new submission")
		case <-time.After(100 * time.Millisecond):
		}
		close(finished)
	})
	<-started
	s.Submit(func(context.Context) {})
	<-finished
}

func TestSlotCloseWaitsAndDropsPending(t *testing.T) {
	s := NewSlot(nil)

	var finished atomic.Bool
	started := make(chan struct{})
	s.Submit(func(ctx context.Context) {
		close(started)
		time.Sleep(50 * time.Millisecond)
		finished.Store(true)
	})
	<-started

	var pendingRan atomic.Bool
	s.Submit(func(context.Context) { pendingRan.Store(true) })

	s.Close()
	if !finished.Load() {
		t.Fatal("Close returned before the running job finished")
	}
	if pendingRan.Load() {
		t.Fatal("pending job ran during Close")
	}

	// Submitting after Close is a no-op.
	if s.Submit(func(context.Context) { t.Error("job ran on closed slot") }) {
		t.Fatal("closed slot reported replacement")
	}
	s.Close() // idempotent
}
