package binding

import "fmt"

// Ref is an owned reference to a handle. A pinned Ref keeps its object
// alive until Release; a weak Ref only carries the handle value.
type Ref struct {
	handle Handle
	table  *Table
	done   bool
}

// Pin returns an owned reference that keeps h's object reachable.
func (t *Table) Pin(h Handle) (*Ref, error) {
	e, ok := t.entries[h.ID]
	if !ok || e.kind != h.Kind {
		return nil, fmt.Errorf("pin %s: %w", h, ErrUnknownHandle)
	}
	e.pins++
	return &Ref{handle: h, table: t}, nil
}

// MustPin is Pin for handles the caller just allocated or otherwise knows are live.
func (t *Table) MustPin(h Handle) *Ref {
	r, err := t.Pin(h)
	if err != nil {
		panic(err)
	}
	return r
}

// Weak returns an unpinned reference, used for records about objects that are already gone.
func Weak(h Handle) *Ref {
	return &Ref{handle: h}
}

// Handle returns the referenced handle. It stays readable after Release.
func (r *Ref) Handle() Handle {
	if r == nil {
		return Handle{}
	}
	return r.handle
}

// IsWeak reports whether r does not pin its object.
func (r *Ref) IsWeak() bool {
	return r.table == nil
}

// Released reports whether Release has run.
func (r *Ref) Released() bool {
	return r.done
}

// Release unpins the handle exactly once. Further calls do nothing.
func (r *Ref) Release() {
	if r == nil || r.done {
		return
	}
	r.done = true
	if r.table == nil {
		return
	}
	if e, ok := r.table.entries[r.handle.ID]; ok && e.pins > 0 {
		e.pins--
	}
}
