// Package singleflight keeps the table of in-flight calls: at most one
// execution per key runs at a time and every caller asking for that key while
// it runs receives its result.
package singleflight

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
)

// PanicError is returned to every caller when the function panicked.
type PanicError struct {
	Value interface{}
	Stack []byte
}

func (p *PanicError) Error() string {
	return fmt.Sprintf("singleflight: function panicked: %v", p.Value)
}

// NewPanicError captures a recovered value together with the current stack.
func NewPanicError(v interface{}) *PanicError {
	return &PanicError{Value: v, Stack: debug.Stack()}
}

// Group manages a set of in-flight calls to prevent duplicate work.
type Group[K comparable, V any] struct {
	mu sync.Mutex
	m  map[K]*call[V]
}

// call is the in-flight marker for one key.
type call[V any] struct {
	done    chan struct{}
	val     V
	err     error
	waiters int
}

// New creates a new singleflight Group.
func New[K comparable, V any]() *Group[K, V] {
	return &Group[K, V]{
		m: make(map[K]*call[V]),
	}
}

// Do executes and returns the results of fn, making sure that only one
// execution is in-flight for a given key at a time. If a duplicate comes in,
// the duplicate caller waits for the original to complete and receives the
// same results; shared reports whether the caller joined an existing call.
//
// fn runs on its own goroutine with a context that keeps ctx's values but not
// its cancellation, so a caller that gives up does not abort the call for the
// others. Each caller stops waiting when its own ctx is done.
//
// The marker is removed before waiters are released, so anything fn published
// before returning is visible to callers arriving after the release.
func (g *Group[K, V]) Do(ctx context.Context, key K, fn func(context.Context) (V, error)) (v V, err error, shared bool) {
	g.mu.Lock()
	c, ok := g.m[key]
	if ok {
		c.waiters++
	} else {
		c = &call[V]{done: make(chan struct{}), waiters: 1}
		g.m[key] = c
	}
	g.mu.Unlock()

	if !ok {
		go g.run(context.WithoutCancel(ctx), key, c, fn)
	}

	select {
	case <-c.done:
		return c.val, c.err, ok
	case <-ctx.Done():
		var zero V
		return zero, ctx.Err(), ok
	}
}

func (g *Group[K, V]) run(ctx context.Context, key K, c *call[V], fn func(context.Context) (V, error)) {
	defer func() {
		if r := recover(); r != nil {
			c.err = NewPanicError(r)
		}
		g.mu.Lock()
		if g.m[key] == c {
			delete(g.m, key)
		}
		g.mu.Unlock()
		close(c.done)
	}()

	c.val, c.err = fn(ctx)
}

// InFlight reports whether a call for key is currently executing.
func (g *Group[K, V]) InFlight(key K) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.m[key]
	return ok
}

// Waiters returns how many callers are attached to the in-flight call for key.
func (g *Group[K, V]) Waiters(key K) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	if c, ok := g.m[key]; ok {
		return c.waiters
	}
	return 0
}

// Forget removes the key from the group's map, effectively allowing future
// calls with the same key to execute even if a previous call is still in
// progress (though this should be used carefully).
func (g *Group[K, V]) Forget(key K) {
	g.mu.Lock()
	delete(g.m, key)
	g.mu.Unlock()
}
