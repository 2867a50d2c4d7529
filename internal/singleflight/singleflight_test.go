package singleflight

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestNew(t *testing.T) {
	g := New[string, string]()
	if g == nil {
		t.Fatal("New() returned nil")
	}
	if g.m == nil {
		t.Error("New() did not initialize map")
	}
}

func TestDo(t *testing.T) {
	g := New[string, string]()

	val, err, shared := g.Do(context.Background(), "key1", func(context.Context) (string, error) {
		return "hello", nil
	})

	if err != nil {
		t.Errorf("Do() returned error: %v", err)
	}
	if val != "hello" {
		t.Errorf("Do() returned %v, want hello", val)
	}
	if shared {
		t.Error("first caller should own the call")
	}
	if g.InFlight("key1") {
		t.Error("marker should be removed once the call settled")
	}
}

func TestDoError(t *testing.T) {
	g := New[string, string]()
	expectedErr := errors.New("test error")

	val, err, _ := g.Do(context.Background(), "key1", func(context.Context) (string, error) {
		return "", expectedErr
	})

	if err != expectedErr {
		t.Errorf("Do() returned error %v, want %v", err, expectedErr)
	}
	if val != "" {
		t.Errorf("Do() returned %v, want empty", val)
	}
}

func TestDoDuplicateCalls(t *testing.T) {
	g := New[string, string]()

	var callCount int32
	release := make(chan struct{})

	fn := func(context.Context) (string, error) {
		atomic.AddInt32(&callCount, 1)
		<-release
		return "result", nil
	}

	const numCalls = 10
	var wg sync.WaitGroup
	results := make([]string, numCalls)
	errs := make([]error, numCalls)

	for i := 0; i < numCalls; i++ {
		wg.Add(1)
		go func(index int) {
			defer wg.Done()
			results[index], errs[index], _ = g.Do(context.Background(), "same-key", fn)
		}(i)
	}

	// Let every goroutine attach before the call settles.
	deadline := time.Now().Add(2 * time.Second)
	for g.Waiters("same-key") < numCalls && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	close(release)
	wg.Wait()

	if n := atomic.LoadInt32(&callCount); n != 1 {
		t.Errorf("Function called %d times, want 1", n)
	}

	for i, result := range results {
		if errs[i] != nil {
			t.Errorf("Call %d returned error: %v", i, errs[i])
		}
		if result != "result" {
			t.Errorf("Call %d returned %v, want result", i, result)
		}
	}
}

func TestDoWaiterCancellationKeepsCallRunning(t *testing.T) {
	g := New[string, int]()

	started := make(chan struct{})
	release := make(chan struct{})
	var finished atomic.Bool

	ownerCtx, cancel := context.WithCancel(context.Background())

	go func() {
		_, _, _ = g.Do(ownerCtx, "key", func(ctx context.Context) (int, error) {
			close(started)
			<-release
			if ctx.Err() != nil {
				return 0, ctx.Err()
			}
			finished.Store(true)
			return 42, nil
		})
	}()

	<-started
	cancel()

	done := make(chan struct{})
	var got int
	var err error
	go func() {
		got, err, _ = g.Do(context.Background(), "key", func(context.Context) (int, error) {
			t.Error("second caller must not start a new call")
			return 0, nil
		})
		close(done)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for g.Waiters("key") < 2 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	close(release)
	<-done

	if err != nil {
		t.Fatalf("waiter got error %v", err)
	}
	if got != 42 || !finished.Load() {
		t.Errorf("call should finish for the remaining waiter, got %d", got)
	}
}

func TestDoContextDone(t *testing.T) {
	g := New[string, string]()
	release := make(chan struct{})
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err, _ := g.Do(ctx, "slow", func(context.Context) (string, error) {
		<-release
		return "late", nil
	})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Do() returned %v, want deadline exceeded", err)
	}
}

func TestDoPanicReleasesMarker(t *testing.T) {
	g := New[string, string]()

	_, err, _ := g.Do(context.Background(), "boom", func(context.Context) (string, error) {
		panic("kaboom")
	})

	var perr *PanicError
	if !errors.As(err, &perr) {
		t.Fatalf("Do() returned %v, want *PanicError", err)
	}
	if perr.Value != "kaboom" {
		t.Errorf("PanicError.Value = %v, want kaboom", perr.Value)
	}
	if g.InFlight("boom") {
		t.Error("marker must be released after a panic")
	}
}

func TestForget(t *testing.T) {
	g := New[string, string]()

	_, _, _ = g.Do(context.Background(), "key1", func(context.Context) (string, error) {
		return "value", nil
	})

	g.Forget("key1")

	val, err, _ := g.Do(context.Background(), "key1", func(context.Context) (string, error) {
		return "new-value", nil
	})

	if err != nil {
		t.Errorf("Do() after Forget returned error: %v", err)
	}
	if val != "new-value" {
		t.Errorf("Do() after Forget returned %v, want new-value", val)
	}
}

func BenchmarkDo(b *testing.B) {
	g := New[string, string]()
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _, _ = g.Do(ctx, "bench-key", func(context.Context) (string, error) {
			return "result", nil
		})
	}
}
