package orchestrator

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

type fakeExecutor struct {
	err   error
	calls int32
}

func (f *fakeExecutor) ExecuteUnit(ctx context.Context, kind UnitKind, unitID uint) error {
	atomic.AddInt32(&f.calls, 1)
	return f.err
}

func TestTryDispatchMaxRetriesExhausted(t *testing.T) {
	executor := &fakeExecutor{}
	o, _ := NewOrchestrator(1, executor)
	o.retryTicker.Stop()
	defer o.pool.Release()

	job := &Job{
		Handle:     "h-1",
		Kind:       UnitSection,
		UnitID:     1,
		RetryCount: 1,
		MaxRetries: 1,
		Timeout:    10 * time.Millisecond,
	}

	o.tryDispatch(job)

	if got := o.retryQueue.Len(); got != 0 {
		t.Fatalf("retry queue should be empty, got %d", got)
	}
	if atomic.LoadInt32(&executor.calls) != 0 {
		t.Fatalf("executor should not be called, got %d", executor.calls)
	}
	if job.RetryCount != 1 {
		t.Fatalf("retry count should remain 1, got %d", job.RetryCount)
	}
}

func TestTryDispatchExecutesJob(t *testing.T) {
	executor := &fakeExecutor{}
	o, _ := NewOrchestrator(1, executor)
	o.retryTicker.Stop()
	defer o.pool.Release()

	job := &Job{
		Handle:     "h-2",
		Kind:       UnitSection,
		UnitID:     2,
		RetryCount: 0,
		MaxRetries: 1,
		Timeout:    10 * time.Millisecond,
	}

	o.tryDispatch(job)

	deadline := time.Now().Add(200 * time.Millisecond)
	for time.Now().Before(deadline) {
		if atomic.LoadInt32(&executor.calls) > 0 {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	if got := o.retryQueue.Len(); got != 0 {
		t.Fatalf("retry queue should be empty, got %d", got)
	}
	if atomic.LoadInt32(&executor.calls) != 1 {
		t.Fatalf("executor should be called once, got %d", executor.calls)
	}
}

type slowExecutor struct {
	delay time.Duration
	calls int32
}

func (s *slowExecutor) ExecuteUnit(ctx context.Context, kind UnitKind, unitID uint) error {
	time.Sleep(s.delay)
	atomic.AddInt32(&s.calls, 1)
	return nil
}

func TestStopDrainsQueuedJobs(t *testing.T) {
	executor := &slowExecutor{delay: 10 * time.Millisecond}
	o, err := NewOrchestrator(1, executor)
	if err != nil {
		t.Fatalf("new orchestrator error: %v", err)
	}
	o.Start()

	for i := range 5 {
		job := NewUnitJob("h-drain", UnitSection, uint(i+1), 1)
		job.Timeout = time.Second
		if err := o.EnqueueJob(job); err != nil {
			t.Fatalf("enqueue %d error: %v", i, err)
		}
	}

	done := make(chan struct{})
	go func() {
		o.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatalf("Stop did not return: queue=%d, retry=%d", o.jobQueue.Len(), o.retryQueue.Len())
	}

	// 已入队的任务必须全部执行完再停
	if got := atomic.LoadInt32(&executor.calls); got != 5 {
		t.Fatalf("expected all 5 queued jobs executed before stop, got %d", got)
	}
	if err := o.EnqueueJob(NewUnitJob("h-late", UnitSection, 99, 1)); err == nil {
		t.Fatalf("expected enqueue rejected after stop")
	}
}

func TestExecuteJobStopsOnTimeout(t *testing.T) {
	executor := &fakeExecutor{err: context.DeadlineExceeded}
	o, _ := NewOrchestrator(1, executor)
	o.retryTicker.Stop()
	defer o.pool.Release()

	job := &Job{
		Handle:     "h-3",
		Kind:       UnitDiagram,
		UnitID:     3,
		RetryCount: 0,
		MaxRetries: 3,
		Timeout:    50 * time.Millisecond,
	}

	start := time.Now()
	o.executeJob(job)
	elapsed := time.Since(start)

	if atomic.LoadInt32(&executor.calls) != 1 {
		t.Fatalf("executor should be called once, got %d", executor.calls)
	}
	if elapsed > 500*time.Millisecond {
		t.Fatalf("executeJob took too long: %v", elapsed)
	}
}

func TestNewUnitJobDefaults(t *testing.T) {
	job := NewUnitJob("h-4", UnitDiagram, 7, 0)
	if job.MaxRetries != 3 {
		t.Fatalf("expected default max retries 3, got %d", job.MaxRetries)
	}
	if job.Kind != UnitDiagram || job.UnitID != 7 || job.Handle != "h-4" {
		t.Fatalf("unexpected job fields: %+v", job)
	}
}
