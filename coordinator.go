package mypermobil

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/ambiyansyah-risyal/mypermobil/internal/singleflight"
)

const (
	// DefaultCacheTTL is how long a successful fetch is reused.
	DefaultCacheTTL = 5 * time.Minute
	// DefaultErrorTTL is how long a failed fetch is replayed instead of retried.
	DefaultErrorTTL = 10 * time.Second
)

// CoordinatorConfig configures a Coordinator. Zero values pick the defaults.
type CoordinatorConfig struct {
	// Name labels metrics and log lines.
	Name     string
	TTL      time.Duration
	ErrorTTL time.Duration
	Now      func() time.Time
	Metrics  *MetricsCollector
	Logger   Logger
}

// Coordinator memoizes the outcome of fetches per key and makes sure at most
// one fetch per key is running at any time.
//
// For a key, Do either answers from a live entry (replaying a captured
// failure as well as a value), joins the fetch already in flight, or starts
// the fetch itself. A settled fetch is committed to the store before its
// in-flight marker is released, so a caller arriving afterwards finds the
// entry rather than starting a second fetch.
type Coordinator[K comparable, V any] struct {
	name     string
	store    Store[K, V]
	flights  *singleflight.Group[K, V]
	ttl      time.Duration
	errorTTL time.Duration
	now      func() time.Time
	metrics  *MetricsCollector
	logger   Logger
}

// NewCoordinator returns a coordinator over store; a nil store gets a
// ShardedStore.
func NewCoordinator[K comparable, V any](store Store[K, V], cfg CoordinatorConfig) *Coordinator[K, V] {
	if store == nil {
		store = NewShardedStore[K, V]()
	}
	if cfg.Name == "" {
		cfg.Name = "default"
	}
	if cfg.TTL == 0 {
		cfg.TTL = DefaultCacheTTL
	}
	if cfg.ErrorTTL == 0 {
		cfg.ErrorTTL = DefaultErrorTTL
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = nopLogger{}
	}
	return &Coordinator[K, V]{
		name:     cfg.Name,
		store:    store,
		flights:  singleflight.New[K, V](),
		ttl:      cfg.TTL,
		errorTTL: cfg.ErrorTTL,
		now:      cfg.Now,
		metrics:  cfg.Metrics,
		logger:   cfg.Logger,
	}
}

// Do returns the outcome of fn for key, calling fn only when no live entry
// exists and no other call for key is in flight.
//
// fn runs detached from ctx's cancellation so that callers which give up do
// not abort the fetch for the ones still waiting; ctx only bounds how long
// this caller waits. A caller that stops waiting gets ctx.Err() as is; the
// Client methods turn it into a Connection error. A panic in fn is captured
// as a failure.
func (c *Coordinator[K, V]) Do(ctx context.Context, key K, fn func(context.Context) (V, error)) (V, error) {
	if entry, ok := c.lookup(key); ok {
		return entry.Value, entry.Err
	}

	v, err, shared := c.flights.Do(ctx, key, func(ctx context.Context) (v V, err error) {
		// The previous flight may have settled between lookup and Do.
		if entry, ok := c.lookup(key); ok {
			return entry.Value, entry.Err
		}

		c.metrics.RecordCacheMiss(c.name)
		c.logger.Debug("coordinator fetch started", "coordinator", c.name, "key", key)

		defer func() {
			if r := recover(); r != nil {
				var zero V
				v, err = zero, singleflight.NewPanicError(r)
			}
			c.commit(key, v, err)
		}()

		return fn(ctx)
	})
	if shared {
		c.metrics.RecordCoalesced(c.name)
		c.logger.Debug("coordinator joined in-flight fetch", "coordinator", c.name, "key", key)
	}
	return v, err
}

func (c *Coordinator[K, V]) lookup(key K) (Entry[V], bool) {
	entry, ok := c.store.Get(key)
	if !ok || entry.Expired(c.now()) {
		return Entry[V]{}, false
	}
	if entry.Err != nil {
		c.metrics.RecordCacheHit(c.name, "failure")
		c.logger.Debug("coordinator replayed failure", "coordinator", c.name, "key", key, "error", entry.Err)
	} else {
		c.metrics.RecordCacheHit(c.name, "success")
		c.logger.Debug("coordinator hit", "coordinator", c.name, "key", key)
	}
	return entry, true
}

func (c *Coordinator[K, V]) commit(key K, v V, err error) {
	entry := Entry[V]{Value: v, Err: err, CreatedAt: c.now(), TTL: c.ttl}
	if err != nil {
		entry.TTL = c.errorTTL
		c.logger.Debug("coordinator captured failure", "coordinator", c.name, "key", key, "ttl", entry.TTL, "error", err)
	} else {
		c.logger.Debug("coordinator stored value", "coordinator", c.name, "key", key, "ttl", entry.TTL)
	}
	c.store.Set(key, entry)
	c.metrics.RecordCacheSize(c.name, c.store.Len())
}

// InFlight reports whether a fetch for key is running.
func (c *Coordinator[K, V]) InFlight(key K) bool {
	return c.flights.InFlight(key)
}

// Forget drops the entry for key so the next call fetches again.
func (c *Coordinator[K, V]) Forget(key K) {
	c.store.Delete(key)
}

// Purge drops every entry.
func (c *Coordinator[K, V]) Purge() {
	c.store.Clear()
	c.metrics.RecordCacheSize(c.name, 0)
}

// Len returns the number of stored entries, expired ones included.
func (c *Coordinator[K, V]) Len() int {
	return c.store.Len()
}

// Key derives a coordinator key from an operation name and its arguments.
// Argument order and dynamic types are part of the key, so Key("op", 1) and
// Key("op", "1") differ.
func Key(op string, args ...interface{}) string {
	h := sha256.New()
	for i, arg := range args {
		fmt.Fprintf(h, "%d|%T|%#v;", i, arg, arg)
	}
	return op + ":" + hex.EncodeToString(h.Sum(nil))
}
