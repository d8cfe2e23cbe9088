package script

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/linsmod/webf/internal/host"
	"go.uber.org/zap"
)

// Pool manages reusable runtimes on one host. Each released runtime gets a
// fresh bridge context, so no document state leaks between executions.
type Pool struct {
	host     host.Host
	config   Config
	opts     []Option
	runtimes chan *Runtime
	size     int
	mu       sync.RWMutex
	closed   bool
}

// Stats describes pool occupancy.
type Stats struct {
	Size      int  `json:"size"`
	Available int  `json:"available"`
	InUse     int  `json:"in_use"`
	Closed    bool `json:"closed"`
}

// NewPool creates a pool of size runtimes.
func NewPool(h host.Host, config Config, size int, opts ...Option) (*Pool, error) {
	if size <= 0 {
		size = 4
	}

	pool := &Pool{
		host:     h,
		config:   config,
		opts:     opts,
		runtimes: make(chan *Runtime, size),
		size:     size,
	}

	// Pre-create runtimes
	for i := 0; i < size; i++ {
		rt, err := New(h, config, opts...)
		if err != nil {
			pool.Close(context.Background())
			return nil, err
		}
		pool.runtimes <- rt
	}

	return pool, nil
}

// Acquire gets a runtime from the pool, waiting at most AcquireTimeout.
func (p *Pool) Acquire(ctx context.Context) (*Runtime, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return nil, ErrPoolClosed
	}

	wait := p.config.AcquireTimeout
	if wait <= 0 {
		wait = 5 * time.Second
	}
	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case rt := <-p.runtimes:
		return rt, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-timer.C:
		return nil, ErrTimeout
	}
}

// Release resets rt and returns it to the pool.
func (p *Pool) Release(ctx context.Context, rt *Runtime) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return rt.Close(ctx)
	}

	if err := rt.Reset(ctx); err != nil {
		rt.logger.Warn("runtime reset failed, replacing it", zap.Error(err))
		_ = rt.Close(ctx)
		fresh, newErr := New(p.host, p.config, p.opts...)
		if newErr != nil {
			return errors.Join(err, newErr)
		}
		rt = fresh
	}

	select {
	case p.runtimes <- rt:
		return nil
	default:
		// Pool full, close runtime
		return rt.Close(ctx)
	}
}

// Execute runs script on a pooled runtime.
func (p *Pool) Execute(ctx context.Context, script string) (*Result, error) {
	rt, err := p.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer p.Release(context.WithoutCancel(ctx), rt)

	return rt.Execute(ctx, script)
}

// Close closes the pool and every idle runtime.
func (p *Pool) Close(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}

	p.closed = true
	close(p.runtimes)

	var errs []error
	for rt := range p.runtimes {
		errs = append(errs, rt.Close(ctx))
	}
	return errors.Join(errs...)
}

// Stats returns pool statistics
func (p *Pool) Stats() Stats {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return Stats{
		Size:      p.size,
		Available: len(p.runtimes),
		InUse:     p.size - len(p.runtimes),
		Closed:    p.closed,
	}
}
