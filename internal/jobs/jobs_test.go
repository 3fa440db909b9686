package jobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestNewRejectsBadJobs(t *testing.T) {
	t.Parallel()

	if _, err := New(context.Background(), nil, Job{Name: "noop", Schedule: "@every 1m"}); err == nil {
		t.Fatalf("expected error for job without sweep")
	}
	sweep := func(context.Context) (int64, error) { return 0, nil }
	if _, err := New(context.Background(), nil, Job{Name: "bad", Schedule: "every now and then", Run: sweep}); err == nil {
		t.Fatalf("expected error for invalid schedule")
	}
}

func TestRunNowAppliesTimeout(t *testing.T) {
	t.Parallel()

	var sawDeadline atomic.Bool
	job := Job{Name: "purge", Schedule: "@every 10m", Run: func(ctx context.Context) (int64, error) {
		_, ok := ctx.Deadline()
		sawDeadline.Store(ok)
		return 3, nil
	}}
	s, err := New(context.Background(), nil, job)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if s.Len() != 1 {
		t.Fatalf("expected one scheduled job, got %d", s.Len())
	}

	s.RunNow(job, time.Second)
	if !sawDeadline.Load() {
		t.Fatalf("expected sweep context to carry a deadline")
	}

	failing := Job{Name: "fail", Run: func(context.Context) (int64, error) { return 0, errors.New("locked") }}
	s.RunNow(failing, time.Second)
}

func TestSchedulerRunsAndStops(t *testing.T) {
	t.Parallel()

	runs := make(chan struct{}, 4)
	job := Job{Name: "tick", Schedule: "@every 1s", Run: func(context.Context) (int64, error) {
		select {
		case runs <- struct{}{}:
		default:
		}
		return 0, nil
	}}
	s, err := New(context.Background(), nil, job)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	s.Start()

	select {
	case <-runs:
	case <-time.After(5 * time.Second):
		t.Fatalf("expected job to run")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.Stop(ctx); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
}
