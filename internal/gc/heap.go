package gc

import (
	"sync"

	"go.uber.org/zap"
)

// Traceable is an object the collector can walk.
type Traceable interface {
	Trace(v Visitor)
}

// Visitor receives the owned edges of a Traceable.
type Visitor interface {
	Visit(t Traceable)
}

// Finalizer is implemented by objects that must release resources when swept.
type Finalizer interface {
	Finalize()
}

// RootSource reports additional roots at the start of every collection.
type RootSource interface {
	Roots(v Visitor)
}

// RootFunc adapts a function to RootSource.
type RootFunc func(v Visitor)

// Roots implements RootSource.
func (f RootFunc) Roots(v Visitor) { f(v) }

// Stats describes one collection.
type Stats struct {
	Marked   int
	Swept    int
	Live     int
	Deferred bool
}

// Heap tracks bridge objects for one execution context.
//
// Track, Retain, Release and Collect run on the context's scripting
// goroutine. ReleaseLater may be called from any goroutine; queued releases
// are applied at the start of the next collection.
type Heap struct {
	logger *zap.Logger

	objects  map[Traceable]struct{}
	retained map[Traceable]int
	sources  []RootSource

	scopes   int
	deferred bool

	pendingMu sync.Mutex
	pending   []Traceable
}

// NewHeap creates an empty heap.
func NewHeap(logger *zap.Logger) *Heap {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Heap{
		logger:   logger,
		objects:  make(map[Traceable]struct{}),
		retained: make(map[Traceable]int),
	}
}

// Track registers t for collection. Tracking twice is a no-op.
func (h *Heap) Track(t Traceable) {
	h.objects[t] = struct{}{}
}

// IsTracked reports whether t is tracked and not yet swept.
func (h *Heap) IsTracked(t Traceable) bool {
	_, ok := h.objects[t]
	return ok
}

// Len returns the number of tracked objects.
func (h *Heap) Len() int {
	return len(h.objects)
}

// AddRoots registers an additional root source.
func (h *Heap) AddRoots(src RootSource) {
	h.sources = append(h.sources, src)
}

// Retain marks t as referenced from the scripting side. Retains nest.
func (h *Heap) Retain(t Traceable) {
	h.retained[t]++
}

// Release drops one scripting-side reference to t.
func (h *Heap) Release(t Traceable) {
	n := h.retained[t]
	switch {
	case n <= 1:
		delete(h.retained, t)
	default:
		h.retained[t] = n - 1
	}
}

// Retained reports the scripting-side reference count of t.
func (h *Heap) Retained(t Traceable) int {
	return h.retained[t]
}

// ReleaseLater queues a Release from any goroutine.
func (h *Heap) ReleaseLater(t Traceable) {
	h.pendingMu.Lock()
	h.pending = append(h.pending, t)
	h.pendingMu.Unlock()
}

// EnterScope opens a mutation scope. Collections requested while any scope
// is open are deferred. The returned function closes the scope.
func (h *Heap) EnterScope() func() {
	h.scopes++
	closed := false
	return func() {
		if closed {
			return
		}
		closed = true
		h.scopes--
	}
}

// InScope reports whether a mutation scope is open.
func (h *Heap) InScope() bool {
	return h.scopes > 0
}

// DeferredPending reports whether a collection was deferred by a scope.
func (h *Heap) DeferredPending() bool {
	return h.deferred
}

// Collect runs a full mark and sweep.
func (h *Heap) Collect() Stats {
	if h.scopes > 0 {
		h.deferred = true
		return Stats{Deferred: true, Live: len(h.objects)}
	}
	h.deferred = false
	h.drainPending()

	m := &marker{marked: make(map[Traceable]struct{}, len(h.objects))}
	for t := range h.retained {
		m.Visit(t)
	}
	for _, src := range h.sources {
		src.Roots(m)
	}
	m.drain()

	var garbage []Traceable
	for t := range h.objects {
		if _, ok := m.marked[t]; !ok {
			garbage = append(garbage, t)
		}
	}
	for _, t := range garbage {
		delete(h.objects, t)
	}
	// Finalizers run after the sweep so they observe a consistent heap.
	for _, t := range garbage {
		if f, ok := t.(Finalizer); ok {
			f.Finalize()
		}
	}

	stats := Stats{Marked: len(m.marked), Swept: len(garbage), Live: len(h.objects)}
	if stats.Swept > 0 {
		h.logger.Debug("collection swept objects",
			zap.Int("marked", stats.Marked),
			zap.Int("swept", stats.Swept),
			zap.Int("live", stats.Live),
		)
	}
	return stats
}

func (h *Heap) drainPending() {
	h.pendingMu.Lock()
	pending := h.pending
	h.pending = nil
	h.pendingMu.Unlock()

	for _, t := range pending {
		h.Release(t)
	}
}

// marker is the mark phase visitor. It uses an explicit stack so deep trees
// do not grow the goroutine stack.
type marker struct {
	marked map[Traceable]struct{}
	stack  []Traceable
}

func (m *marker) Visit(t Traceable) {
	if t == nil {
		return
	}
	if _, ok := m.marked[t]; ok {
		return
	}
	m.marked[t] = struct{}{}
	m.stack = append(m.stack, t)
}

func (m *marker) drain() {
	for len(m.stack) > 0 {
		t := m.stack[len(m.stack)-1]
		m.stack = m.stack[:len(m.stack)-1]
		t.Trace(m)
	}
}
