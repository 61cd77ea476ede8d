package batch

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"scriber/internal/services"
)

func TestRunPreservesOrder(t *testing.T) {
	tasks := make([]Task[int], 8)
	for i := range tasks {
		i := i
		tasks[i] = func(ctx context.Context) (int, error) {
			// Later tasks finish first.
			time.Sleep(time.Duration(len(tasks)-i) * time.Millisecond)
			return i * 10, nil
		}
	}

	results, err := Run(context.Background(), tasks, 4)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	for i, got := range results {
		if got != i*10 {
			t.Errorf("results[%d] = %d, want %d", i, got, i*10)
		}
	}
}

func TestRunLimitOneMatchesSequential(t *testing.T) {
	var order []int
	var mu sync.Mutex
	tasks := make([]Task[int], 5)
	for i := range tasks {
		i := i
		tasks[i] = func(ctx context.Context) (int, error) {
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
			return i, nil
		}
	}

	results, err := Run(context.Background(), tasks, 1)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	for i := range tasks {
		if order[i] != i {
			t.Fatalf("execution order = %v, want sequential", order)
		}
		if results[i] != i {
			t.Fatalf("results = %v", results)
		}
	}
}

func TestRunRespectsConcurrencyCeiling(t *testing.T) {
	const limit = 3
	var inFlight, peak atomic.Int32

	tasks := make([]Task[struct{}], 12)
	for i := range tasks {
		tasks[i] = func(ctx context.Context) (struct{}, error) {
			current := inFlight.Add(1)
			for {
				observed := peak.Load()
				if current <= observed || peak.CompareAndSwap(observed, current) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			inFlight.Add(-1)
			return struct{}{}, nil
		}
	}

	if _, err := Run(context.Background(), tasks, limit); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := peak.Load(); got > limit {
		t.Errorf("peak concurrency = %d, exceeds limit %d", got, limit)
	}
}

// TestRunFailFastDeterministicError checks that with tasks [ok, ok, fails, ok]
// the reported failure is index 2 even when index 3 finishes (and fails) first.
func TestRunFailFastDeterministicError(t *testing.T) {
	errSlow := errors.New("slow failure")
	errFast := errors.New("fast failure")

	tasks := []Task[string]{
		func(ctx context.Context) (string, error) { return "a", nil },
		func(ctx context.Context) (string, error) { return "b", nil },
		func(ctx context.Context) (string, error) {
			time.Sleep(30 * time.Millisecond)
			return "", errSlow
		},
		func(ctx context.Context) (string, error) { return "", errFast },
	}

	_, err := Run(context.Background(), tasks, 4)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, errSlow) {
		t.Fatalf("expected index-2 error to win, got %v", err)
	}
	if !strings.Contains(err.Error(), "task 2") {
		t.Fatalf("expected failing index in error, got %q", err)
	}
}

func TestRunStopsLaunchingAfterFailure(t *testing.T) {
	var launched atomic.Int32
	boom := errors.New("boom")

	tasks := make([]Task[int], 20)
	tasks[0] = func(ctx context.Context) (int, error) {
		launched.Add(1)
		return 0, boom
	}
	for i := 1; i < len(tasks); i++ {
		tasks[i] = func(ctx context.Context) (int, error) {
			launched.Add(1)
			time.Sleep(time.Millisecond)
			return 0, nil
		}
	}

	_, err := Run(context.Background(), tasks, 1)
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if n := launched.Load(); n > 2 {
		t.Errorf("launched %d tasks after failure with limit 1", n)
	}
}

func TestRunInFlightSiblingsFinish(t *testing.T) {
	var finished atomic.Bool
	release := make(chan struct{})

	tasks := []Task[int]{
		func(ctx context.Context) (int, error) {
			<-release
			finished.Store(true)
			return 1, nil
		},
		func(ctx context.Context) (int, error) {
			close(release)
			return 0, fmt.Errorf("fail while sibling is running")
		},
	}

	_, err := Run(context.Background(), tasks, 2)
	if err == nil {
		t.Fatal("expected error")
	}
	if !finished.Load() {
		t.Error("expected in-flight sibling to run to completion")
	}
}

func TestRunRejectsNonPositiveLimit(t *testing.T) {
	_, err := Run(context.Background(), []Task[int]{}, 0)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation marker, got %v", err)
	}
}

func TestRunEmptyTaskList(t *testing.T) {
	results, err := Run[int](context.Background(), nil, 2)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("expected no results, got %v", results)
	}
}

func TestRunHonorsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	tasks := []Task[int]{
		func(ctx context.Context) (int, error) { return 1, nil },
	}
	if _, err := Run(ctx, tasks, 1); err == nil {
		t.Fatal("expected error for cancelled context")
	}
}
