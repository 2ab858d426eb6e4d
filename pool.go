package invoicepdf

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
)

// Pool sizing constants.
const (
	// MinPoolSize ensures at least one exporter is available.
	MinPoolSize = 1

	// MaxPoolSize caps browser instances to limit memory (~200MB each).
	MaxPoolSize = 8

	// cpuDivisor leaves headroom for Chrome child processes.
	cpuDivisor = 2
)

// ErrPoolClosed is returned by Acquire after Close.
var ErrPoolClosed = errors.New("exporter pool closed")

// ExporterPool hands out Exporters for parallel exports. Each exporter owns
// its own browser. Exporters are created lazily, all with the same options,
// and share one BlobStore so previews from any of them resolve in one place.
type ExporterPool struct {
	size  int
	opts  []Option
	blobs *BlobStore

	sem       chan *Exporter
	mu        sync.Mutex
	exporters []*Exporter
	created   int
	closed    bool
	done      chan struct{}
}

// NewExporterPool creates a pool with capacity for n exporters built from
// opts. Previews go to blobs, or to a default store when nil.
func NewExporterPool(n int, blobs *BlobStore, opts ...Option) *ExporterPool {
	if n < 1 {
		n = 1
	}
	if blobs == nil {
		blobs = NewBlobStore(DefaultBlobBaseURL)
	}

	p := &ExporterPool{
		size:      n,
		blobs:     blobs,
		sem:       make(chan *Exporter, n),
		exporters: make([]*Exporter, 0, n),
		done:      make(chan struct{}),
	}
	p.opts = append(append([]Option(nil), opts...), WithBlobStore(blobs))
	return p
}

// Acquire gets an exporter, creating one if the pool is not full.
// Blocks until one is released, ctx is done, or the pool is closed.
func (p *ExporterPool) Acquire(ctx context.Context) (*Exporter, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, ErrPoolClosed
	}

	// Try to get an idle exporter (non-blocking)
	select {
	case e := <-p.sem:
		p.mu.Unlock()
		return e, nil
	default:
	}

	if p.created < p.size {
		p.created++
		p.mu.Unlock()

		// Create outside the lock
		e, err := NewExporter(p.opts...)
		if err != nil {
			p.mu.Lock()
			p.created--
			p.mu.Unlock()
			return nil, fmt.Errorf("creating exporter: %w", err)
		}

		p.mu.Lock()
		if p.closed {
			p.mu.Unlock()
			_ = e.Close()
			return nil, ErrPoolClosed
		}
		p.exporters = append(p.exporters, e)
		p.mu.Unlock()
		return e, nil
	}
	p.mu.Unlock()

	select {
	case e := <-p.sem:
		return p.handOut(e)
	case <-p.done:
		return nil, ErrPoolClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// handOut returns e unless the pool closed while e was idle.
func (p *ExporterPool) handOut(e *Exporter) (*Exporter, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil, ErrPoolClosed
	}
	return e, nil
}

// Release returns an exporter to the pool. Releasing after Close is a no-op.
func (p *ExporterPool) Release(e *Exporter) {
	if e == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	// Never blocks: at most size exporters exist.
	p.sem <- e
}

// Close releases all browsers. Returns an aggregated error if several
// exporters fail to close.
func (p *ExporterPool) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.done)
	exporters := p.exporters
	for len(p.sem) > 0 {
		<-p.sem
	}
	p.mu.Unlock()

	var errs []error
	for _, e := range exporters {
		if err := e.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Size returns the pool capacity.
func (p *ExporterPool) Size() int {
	return p.size
}

// Blobs returns the preview store shared by the pool's exporters.
func (p *ExporterPool) Blobs() *BlobStore {
	return p.blobs
}

// ResolvePoolSize determines the pool size.
// Priority: explicit workers > GOMAXPROCS-based calculation.
func ResolvePoolSize(workers int) int {
	if workers > 0 {
		return workers
	}

	// GOMAXPROCS is adjusted by automaxprocs in containers
	n := runtime.GOMAXPROCS(0) / cpuDivisor

	if n < MinPoolSize {
		return MinPoolSize
	}
	if n > MaxPoolSize {
		return MaxPoolSize
	}
	return n
}
