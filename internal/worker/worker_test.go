package worker

import (
	"context"
	"errors"
	"runtime"
	"sync/atomic"
	"testing"
	"time"

	"frametask/internal/task"
)

var modes = []task.Mode{task.ModeBlocking, task.ModeSpin}

func TestNewGroup(t *testing.T) {
	g := NewGroup(4)
	if g.NumWorkers() != 4 {
		t.Errorf("expected 4 workers, got %d", g.NumWorkers())
	}

	// Zero should default to CPU count
	g2 := NewGroup(0)
	if g2.NumWorkers() != runtime.NumCPU() {
		t.Errorf("expected %d workers, got %d", runtime.NumCPU(), g2.NumWorkers())
	}
}

func TestGroupNegativeWorkers(t *testing.T) {
	// Negative workers should default to CPU count
	g := NewGroup(-5)
	if g.NumWorkers() != runtime.NumCPU() {
		t.Errorf("expected %d workers for negative input, got %d", runtime.NumCPU(), g.NumWorkers())
	}
}

func TestGroupStartStop(t *testing.T) {
	g := NewGroup(2)

	g.Start(task.ModeBlocking)
	// Double start should be no-op
	g.Start(task.ModeSpin)
	if g.Mode() != task.ModeBlocking {
		t.Errorf("expected mode blocking, got %s", g.Mode())
	}

	g.Stop()
	// Double stop should be no-op
	g.Stop()
}

func TestGroupRun(t *testing.T) {
	for _, mode := range modes {
		t.Run(mode.String(), func(t *testing.T) {
			g := NewGroup(3)
			g.Start(mode)
			defer g.Stop()

			results, err := g.Run(context.Background(), func(p any) any {
				return p.(int) * 10
			}, []any{1, 2, 3})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			for i, want := range []int{10, 20, 30} {
				if results[i] != want {
					t.Errorf("part %d: expected %d, got %v", i, want, results[i])
				}
			}

			stats := g.Stats()
			if stats.Completed != 3 {
				t.Errorf("expected 3 completed, got %d", stats.Completed)
			}
		})
	}
}

func TestGroupRunFewerParts(t *testing.T) {
	g := NewGroup(4)
	g.Start(task.ModeBlocking)
	defer g.Stop()

	results, err := g.Run(context.Background(), func(p any) any {
		return p
	}, []any{"a"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 1 || results[0] != "a" {
		t.Errorf("expected [a], got %v", results)
	}
}

func TestGroupRunTooManyParts(t *testing.T) {
	g := NewGroup(2)
	g.Start(task.ModeBlocking)
	defer g.Stop()

	_, err := g.Run(context.Background(), func(p any) any { return p }, []any{1, 2, 3})
	if !errors.Is(err, ErrTooManyParts) {
		t.Errorf("expected ErrTooManyParts, got %v", err)
	}
}

func TestGroupRunNotStarted(t *testing.T) {
	g := NewGroup(2)

	_, err := g.Run(context.Background(), func(p any) any { return p }, []any{1})
	if !errors.Is(err, ErrNotStarted) {
		t.Errorf("expected ErrNotStarted, got %v", err)
	}
}

func TestGroupRunAfterStop(t *testing.T) {
	g := NewGroup(2)
	g.Start(task.ModeSpin)
	g.Stop()

	// Run after stop should fail
	_, err := g.Run(context.Background(), func(p any) any { return p }, []any{1})
	if !errors.Is(err, ErrNotStarted) {
		t.Errorf("expected ErrNotStarted after stop, got %v", err)
	}
}

func TestGroupRunContextCancel(t *testing.T) {
	g := NewGroup(2)
	g.Start(task.ModeBlocking)
	defer g.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	_, err := g.Run(ctx, func(p any) any {
		called = true
		return p
	}, []any{1})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if called {
		t.Error("work should not run after context cancel")
	}
}

func TestGroupSplit(t *testing.T) {
	for _, mode := range modes {
		t.Run(mode.String(), func(t *testing.T) {
			g := NewGroup(4)
			g.Start(mode)
			defer g.Stop()

			const total = 103
			results, err := g.Split(context.Background(), total, func(lo, hi int) any {
				sum := 0
				for i := lo; i < hi; i++ {
					sum += i
				}
				return sum
			})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(results) != 4 {
				t.Fatalf("expected 4 parts, got %d", len(results))
			}

			sum := 0
			for _, r := range results {
				sum += r.(int)
			}
			if want := total * (total - 1) / 2; sum != want {
				t.Errorf("expected sum %d, got %d", want, sum)
			}
		})
	}
}

func TestGroupSplitSmallTotal(t *testing.T) {
	g := NewGroup(8)
	g.Start(task.ModeBlocking)
	defer g.Stop()

	results, err := g.Split(context.Background(), 3, func(lo, hi int) any {
		return hi - lo
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 3 {
		t.Errorf("expected 3 parts for 3 items, got %d", len(results))
	}

	results, err = g.Split(context.Background(), 0, func(lo, hi int) any { return nil })
	if err != nil || results != nil {
		t.Errorf("expected no parts for empty range, got %v, %v", results, err)
	}
}

func TestGroupStopWaitsForRun(t *testing.T) {
	g := NewGroup(2)
	g.Start(task.ModeBlocking)

	var finished atomic.Bool
	started := make(chan struct{})
	go func() {
		_, _ = g.Run(context.Background(), func(p any) any {
			close(started)
			time.Sleep(50 * time.Millisecond)
			finished.Store(true)
			return p
		}, []any{1})
	}()

	<-started
	g.Stop()

	if !finished.Load() {
		t.Error("Stop returned before the in-progress Run completed")
	}
}

func TestGroupCPUAssignment(t *testing.T) {
	g := NewGroupWithConfig(GroupConfig{
		NumWorkers: 3,
		PinCPUs:    true,
		FirstCPU:   1,
	})

	n := runtime.NumCPU()
	for i := range 3 {
		if got, want := g.cpuFor(i), (1+i)%n; got != want {
			t.Errorf("task %d: expected cpu %d, got %d", i, want, got)
		}
	}
	if got := len(g.taskOptions(0)); got != 1 {
		t.Errorf("expected one cpu option, got %d", got)
	}

	unpinned := NewGroup(3)
	if got := len(unpinned.taskOptions(0)); got != 0 {
		t.Errorf("expected no options without pinning, got %d", got)
	}
}
