package local

import (
	"context"
	"sync"

	"github.com/linsmod/webf/internal/binding"
	"github.com/linsmod/webf/internal/command"
	"github.com/linsmod/webf/internal/host"
	"github.com/linsmod/webf/internal/infrastructure/monitoring"
	"github.com/linsmod/webf/internal/logging"
	"github.com/linsmod/webf/internal/native"
	"github.com/linsmod/webf/internal/shared/id"
	"go.uber.org/zap"
)

// Config sizes the viewport layout runs against.
type Config struct {
	ViewportWidth  float64
	ViewportHeight float64
}

// DefaultConfig returns a 1024x768 viewport.
func DefaultConfig() Config {
	return Config{ViewportWidth: 1024, ViewportHeight: 768}
}

// Observer is called after each applied record, outside the mirror lock.
// It may re-enter the host.
type Observer func(ctxID id.ContextID, seq uint64, op command.Opcode)

// Host implements host.Host in-process.
type Host struct {
	cfg      Config
	logger   *logging.Logger
	metrics  *monitoring.Metrics
	observer Observer

	mu      sync.Mutex
	mirrors map[id.ContextID]*Mirror
	closed  map[id.ContextID]bool

	snapshots sync.WaitGroup
}

var _ host.Host = (*Host)(nil)

// Option configures a Host.
type Option func(*Host)

func WithLogger(l *logging.Logger) Option      { return func(h *Host) { h.logger = l } }
func WithMetrics(m *monitoring.Metrics) Option { return func(h *Host) { h.metrics = m } }
func WithObserver(o Observer) Option           { return func(h *Host) { h.observer = o } }

// New creates a host.
func New(cfg Config, opts ...Option) *Host {
	if cfg.ViewportWidth <= 0 || cfg.ViewportHeight <= 0 {
		cfg = DefaultConfig()
	}
	h := &Host{
		cfg:     cfg,
		logger:  logging.NewNop(),
		mirrors: make(map[id.ContextID]*Mirror),
		closed:  make(map[id.ContextID]bool),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Mirror returns the mirror of ctxID, if the context has sent traffic.
func (h *Host) Mirror(ctxID id.ContextID) (*Mirror, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	m, ok := h.mirrors[ctxID]
	return m, ok
}

// Contexts returns the number of open contexts.
func (h *Host) Contexts() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.mirrors)
}

func (h *Host) mirror(ctxID id.ContextID) (*Mirror, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed[ctxID] {
		return nil, host.ErrContextClosed
	}
	m, ok := h.mirrors[ctxID]
	if !ok {
		m = newMirror(ctxID)
		h.mirrors[ctxID] = m
		h.logger.Debug("mirror created", zap.String("context", ctxID.String()))
	}
	return m, nil
}

// ScheduleUpdate counts the notification; the bridge decides when to flush.
func (h *Host) ScheduleUpdate(ctxID id.ContextID) {
	m, err := h.mirror(ctxID)
	if err != nil {
		h.logger.Warn("notification for closed context", zap.String("context", ctxID.String()))
		return
	}
	m.mu.Lock()
	m.notifications++
	m.mu.Unlock()
}

// Flush applies records in order. A flush arriving while another one is
// being applied for the same context, such as one made from the observer,
// is refused with host.ErrBusy and applies nothing.
func (h *Host) Flush(ctx context.Context, ctxID id.ContextID, records []command.Record) (err error) {
	timer := monitoring.NewTimer(h.metrics, "local", "flush")
	defer func() { timer.Stop(status(err)) }()

	m, err := h.mirror(ctxID)
	if err != nil {
		return err
	}

	m.mu.Lock()
	if m.applying {
		m.mu.Unlock()
		h.logger.Debug("flush refused during batch",
			zap.String("context", ctxID.String()),
			zap.Int("records", len(records)),
		)
		return &host.TransportError{Op: "flush", Err: host.ErrBusy}
	}
	m.applying = true
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		m.applying = false
		m.mu.Unlock()
	}()

	return h.apply(m, copyRecords(records))
}

func (h *Host) apply(m *Mirror, ops []op) error {
	for _, o := range ops {
		m.mu.Lock()
		if o.seq != 0 && o.seq <= m.lastSeq {
			m.mu.Unlock()
			continue
		}
		err := m.apply(o)
		if o.seq > m.lastSeq {
			m.lastSeq = o.seq
		}
		m.mu.Unlock()

		if err != nil {
			return err
		}
		if h.observer != nil {
			h.observer(m.id, o.seq, o.code)
		}
	}
	return nil
}

// Call answers a synchronous binding method.
func (h *Host) Call(ctx context.Context, ctxID id.ContextID, target binding.Handle, method native.Method, args []native.Value) (_ native.Value, err error) {
	timer := monitoring.NewTimer(h.metrics, "local", "call")
	defer func() { timer.Stop(status(err)) }()

	m, err := h.mirror(ctxID)
	if err != nil {
		return native.Null(), err
	}
	if err := ctx.Err(); err != nil {
		return native.Null(), err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.lookup(target)
	if !ok {
		return native.Null(), &host.ProtocolError{Context: ctxID, Handle: target, Op: method.String()}
	}
	return m.call(h.cfg, e, method, args)
}

// ToBlob renders target as a PNG on its own goroutine and calls done once.
func (h *Host) ToBlob(ctx context.Context, ctxID id.ContextID, target binding.Handle, params host.SnapshotParams, done host.Completion) {
	m, err := h.mirror(ctxID)
	if err != nil {
		done(nil, err.Error())
		return
	}

	m.mu.Lock()
	var (
		rect  native.Rect
		fill  string
		found bool
	)
	if e, ok := m.lookup(target); ok {
		rect, found = m.layout(h.cfg)[e.node], true
		fill = e.style.get("background-color")
	}
	m.mu.Unlock()

	h.snapshots.Add(1)
	go func() {
		defer h.snapshots.Done()
		if err := ctx.Err(); err != nil {
			done(nil, err.Error())
			return
		}
		if !found {
			done(nil, "unknown snapshot target "+target.String())
			return
		}
		data, err := renderPNG(rect, params.DevicePixelRatio, fill)
		if err != nil {
			done(nil, err.Error())
			return
		}
		done(data, "")
	}()
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// Wait blocks until every in-flight snapshot has completed.
func (h *Host) Wait() {
	h.snapshots.Wait()
}

// Close drops the mirror of ctxID. Later traffic for it fails with
// host.ErrContextClosed.
func (h *Host) Close(ctx context.Context, ctxID id.ContextID) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed[ctxID] {
		return host.ErrContextClosed
	}
	delete(h.mirrors, ctxID)
	h.closed[ctxID] = true
	h.logger.Debug("mirror closed", zap.String("context", ctxID.String()))
	return nil
}
