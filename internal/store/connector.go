// Package store owns the process-wide handle to the note collection.
package store

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/kuitang/quicknotes/internal/notes"
	"github.com/kuitang/quicknotes/internal/obs"
)

// DefaultDialTimeout bounds a single connection attempt.
const DefaultDialTimeout = 15 * time.Second

// DialFunc opens a new store handle.
type DialFunc func(ctx context.Context) (notes.Store, error)

type closer interface {
	Close(ctx context.Context) error
}

// Connector lazily dials a store and caches the handle for the life of the
// process. Concurrent first callers share one dial attempt. A failed attempt
// is not cached, so the next caller dials again.
type Connector struct {
	backend     string
	dial        DialFunc
	dialTimeout time.Duration

	group singleflight.Group

	mu     sync.RWMutex
	handle notes.Store
}

// Option configures a Connector.
type Option func(*Connector)

// WithDialTimeout overrides DefaultDialTimeout. Non-positive values are ignored.
func WithDialTimeout(d time.Duration) Option {
	return func(c *Connector) {
		if d > 0 {
			c.dialTimeout = d
		}
	}
}

// NewConnector creates a connector that uses dial on first use.
func NewConnector(backend string, dial DialFunc, opts ...Option) *Connector {
	c := &Connector{
		backend:     backend,
		dial:        dial,
		dialTimeout: DefaultDialTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Backend returns the configured backend name.
func (c *Connector) Backend() string {
	return c.backend
}

// Connect returns the cached handle, dialing if there is none yet.
// The dial itself is detached from ctx so one impatient caller cannot fail
// the attempt for everyone else waiting on it; ctx only bounds this
// caller's wait.
func (c *Connector) Connect(ctx context.Context) (notes.Store, error) {
	if h := c.cached(); h != nil {
		return h, nil
	}

	ch := c.group.DoChan("connect", func() (any, error) {
		if h := c.cached(); h != nil {
			return h, nil
		}

		dialCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.dialTimeout)
		defer cancel()

		log := obs.Pkg("store").With("backend", c.backend)
		start := time.Now()
		h, err := c.dial(dialCtx)
		if err != nil {
			log.Error("store connect failed", "error", err, "dur_ms", time.Since(start).Milliseconds())
			return nil, err
		}
		log.Info("store connected", "dur_ms", time.Since(start).Milliseconds())

		c.mu.Lock()
		c.handle = h
		c.mu.Unlock()
		return h, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(notes.Store), nil
	}
}

// Close releases the cached handle, if any. A later Connect dials again.
func (c *Connector) Close(ctx context.Context) error {
	c.mu.Lock()
	h := c.handle
	c.handle = nil
	c.mu.Unlock()

	if cl, ok := h.(closer); ok {
		return cl.Close(ctx)
	}
	return nil
}

func (c *Connector) cached() notes.Store {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.handle
}
