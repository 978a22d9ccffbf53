package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/narendrakadam1/Allocation-Engine-PM-internship/internal/domain/model"
)

func testJob(candidateID, slotID string) Job {
	return Job{
		RoundID:   "round-1",
		Candidate: model.Candidate{ID: candidateID},
		Slot:      model.Slot{ID: slotID, Capacity: 1},
	}
}

func TestInMemoryQueue_BasicOperations(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(2))
	ctx := context.Background()

	// Test empty queue
	if l := q.Len(ctx); l != 0 {
		t.Errorf("expected length 0, got %d", l)
	}

	// Test enqueue
	if err := q.Enqueue(ctx, testJob("cand1", "slot1")); err != nil {
		t.Errorf("expected enqueue to succeed, got %v", err)
	}

	if l := q.Len(ctx); l != 1 {
		t.Errorf("expected length 1, got %d", l)
	}

	// Test dequeue
	jobChan := q.Dequeue(ctx)
	job := <-jobChan
	if job.Candidate.ID != "cand1" {
		t.Errorf("expected cand1, got %v", job.Candidate.ID)
	}
	if job.Slot.ID != "slot1" {
		t.Errorf("expected slot1, got %v", job.Slot.ID)
	}

	if l := q.Len(ctx); l != 0 {
		t.Errorf("expected length 0, got %d", l)
	}
}

func TestInMemoryQueue_Capacity(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(2))
	ctx := context.Background()

	// Fill the queue
	if err := q.Enqueue(ctx, testJob("cand1", "slot1")); err != nil {
		t.Errorf("expected enqueue to succeed, got %v", err)
	}
	if err := q.Enqueue(ctx, testJob("cand2", "slot1")); err != nil {
		t.Errorf("expected enqueue to succeed, got %v", err)
	}

	// Try to enqueue when full
	if err := q.Enqueue(ctx, testJob("cand3", "slot1")); !errors.Is(err, ErrFull) {
		t.Errorf("expected ErrFull when full, got %v", err)
	}

	if l := q.Len(ctx); l != 2 {
		t.Errorf("expected length 2, got %d", l)
	}
}

func TestInMemoryQueue_ConcurrentAccess(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(100))
	ctx := context.Background()
	numGoroutines := 10
	numJobs := 100

	// Start producer goroutines
	done := make(chan bool, numGoroutines)
	for i := 0; i < numGoroutines; i++ {
		go func(id int) {
			for j := 0; j < numJobs; j++ {
				job := testJob(fmt.Sprintf("cand%d_%d", id, j), "slot1")
				for q.Enqueue(ctx, job) != nil {
					time.Sleep(time.Millisecond)
				}
			}
			done <- true
		}(i)
	}

	// Start consumer goroutines
	consumed := make(chan string, numGoroutines*numJobs)
	for i := 0; i < numGoroutines; i++ {
		go func() {
			jobChan := q.Dequeue(ctx)
			for job := range jobChan {
				consumed <- job.Candidate.ID
			}
		}()
	}

	// Wait for producers to finish
	for i := 0; i < numGoroutines; i++ {
		<-done
	}

	// Wait a bit for consumers to process
	time.Sleep(100 * time.Millisecond)

	// Check final queue length
	if l := q.Len(ctx); l != 0 {
		t.Errorf("expected final length 0, got %d", l)
	}
}

func TestInMemoryQueue_GracefulShutdown(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(10))
	ctx := context.Background()

	// Enqueue some jobs
	if err := q.Enqueue(ctx, testJob("cand1", "slot1")); err != nil {
		t.Errorf("expected enqueue to succeed, got %v", err)
	}
	if err := q.Enqueue(ctx, testJob("cand2", "slot1")); err != nil {
		t.Errorf("expected enqueue to succeed, got %v", err)
	}

	// Check initial state
	if q.IsClosed() {
		t.Error("expected queue to be open initially")
	}

	// Close the queue
	if err := q.Close(); err != nil {
		t.Errorf("expected close to succeed, got error: %v", err)
	}

	// Check closed state
	if !q.IsClosed() {
		t.Error("expected queue to be closed after Close()")
	}

	// Try to enqueue after closing (should fail)
	if err := q.Enqueue(ctx, testJob("cand3", "slot1")); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed after closing, got %v", err)
	}

	// Dequeue channel should drain the remainder and close
	jobChan := q.Dequeue(ctx)

	timeout := time.After(100 * time.Millisecond)
	received := 0
	for {
		select {
		case _, ok := <-jobChan:
			if !ok {
				goto channelClosed
			}
			received++
		case <-timeout:
			t.Error("expected dequeue channel to be closed within timeout")
			return
		}
	}
channelClosed:
	if received != 2 {
		t.Errorf("expected 2 buffered jobs before close, got %d", received)
	}

	// Close again should not error
	if err := q.Close(); err != nil {
		t.Errorf("expected second close to succeed, got error: %v", err)
	}
}

func TestInMemoryQueue_DrainReleasesJobs(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(10))
	ctx := context.Background()

	var released int64
	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		job := testJob(fmt.Sprintf("cand%d", i), "slot1")
		job.Done = func() {
			atomic.AddInt64(&released, 1)
			wg.Done()
		}
		if err := q.Enqueue(ctx, job); err != nil {
			t.Fatalf("expected enqueue to succeed, got %v", err)
		}
	}

	q.Drain()
	wg.Wait()

	if got := atomic.LoadInt64(&released); got != 5 {
		t.Errorf("expected 5 released jobs, got %d", got)
	}
	if !q.IsClosed() {
		t.Error("expected queue to be closed after drain")
	}
}
