package sweep

import (
	"context"
	"errors"
	"testing"
	"time"
)

type stubLock struct {
	held       bool
	acquireErr error
	acquired   int
	released   int
}

func (l *stubLock) Acquire(context.Context) (bool, error) {
	if l.acquireErr != nil {
		return false, l.acquireErr
	}
	l.acquired++
	return !l.held, nil
}

func (l *stubLock) Release(context.Context) error {
	l.released++
	return nil
}

type countingJob struct {
	name string
	runs int
	err  error
}

func (j *countingJob) Name() string { return j.name }

func (j *countingJob) Run(context.Context) error {
	j.runs++
	return j.err
}

func TestRunCycleExecutesJobs(t *testing.T) {
	t.Parallel()

	lock := &stubLock{}
	first := &countingJob{name: "first"}
	second := &countingJob{name: "second"}
	svc, err := NewService(ServiceParams{
		Logger:   testLogger(),
		Registry: NewRegistry(first, second),
		Lock:     lock,
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	if err := svc.runCycle(context.Background()); err != nil {
		t.Fatalf("run cycle: %v", err)
	}
	if first.runs != 1 || second.runs != 1 {
		t.Fatalf("expected each job to run once, got %d and %d", first.runs, second.runs)
	}
	if lock.released != 1 {
		t.Fatalf("expected lock released once, got %d", lock.released)
	}
}

func TestRunCycleSkipsWhenLockHeld(t *testing.T) {
	t.Parallel()

	lock := &stubLock{held: true}
	job := &countingJob{name: "expiry"}
	svc, err := NewService(ServiceParams{
		Logger:   testLogger(),
		Registry: NewRegistry(job),
		Lock:     lock,
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	if err := svc.runCycle(context.Background()); err != nil {
		t.Fatalf("run cycle: %v", err)
	}
	if job.runs != 0 {
		t.Fatal("jobs must not run while another instance holds the lock")
	}
	if lock.released != 0 {
		t.Fatal("lock must not be released when it was never acquired")
	}
}

func TestRunCycleContinuesPastJobFailure(t *testing.T) {
	t.Parallel()

	failing := &countingJob{name: "failing", err: errors.New("boom")}
	healthy := &countingJob{name: "healthy"}
	svc, err := NewService(ServiceParams{
		Logger:   testLogger(),
		Registry: NewRegistry(failing, healthy),
		Lock:     &stubLock{},
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	if err := svc.runCycle(context.Background()); err != nil {
		t.Fatalf("run cycle: %v", err)
	}
	if healthy.runs != 1 {
		t.Fatal("later jobs must run after an earlier job fails")
	}
}

func TestRunCycleLockError(t *testing.T) {
	t.Parallel()

	svc, err := NewService(ServiceParams{
		Logger: testLogger(),
		Lock:   &stubLock{acquireErr: errors.New("redis down")},
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	if err := svc.runCycle(context.Background()); err == nil {
		t.Fatal("expected lock error")
	}
}

func TestRunStopsOnContextCancel(t *testing.T) {
	t.Parallel()

	job := &countingJob{name: "expiry"}
	svc, err := NewService(ServiceParams{
		Logger:   testLogger(),
		Registry: NewRegistry(job),
		Lock:     &stubLock{},
		Interval: 10 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 35*time.Millisecond)
	defer cancel()

	if err := svc.Run(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	if job.runs == 0 {
		t.Fatal("expected at least one run before cancellation")
	}
}

func TestNewServiceRequiresLock(t *testing.T) {
	t.Parallel()

	if _, err := NewService(ServiceParams{Logger: testLogger()}); err == nil {
		t.Fatal("expected error when lock is missing")
	}
}
