// Package binding provides the handles the native host uses to address
// scripting-side objects.
//
// A Handle is a plain value: it never owns the object it names. The Table
// resolves handles back to objects while they are alive, and a Ref is the
// owned, pinned form a command record holds until the host has consumed it.
package binding

import (
	"errors"
	"fmt"

	"github.com/linsmod/webf/internal/gc"
)

var (
	// ErrUnknownHandle is returned for handles that were never issued or were released.
	ErrUnknownHandle = errors.New("unknown binding handle")
	// ErrPinned is returned when releasing a handle an undrained record still references.
	ErrPinned = errors.New("binding handle is pinned")
)

// Kind is the category of object a handle names.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindDocument
	KindElement
	KindText
	KindComment
	KindFragment
)

var kindNames = [...]string{
	KindInvalid:  "invalid",
	KindDocument: "document",
	KindElement:  "element",
	KindText:     "text",
	KindComment:  "comment",
	KindFragment: "fragment",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// ParseKind is the inverse of Kind.String.
func ParseKind(s string) (Kind, error) {
	for k, name := range kindNames {
		if name == s && k != int(KindInvalid) {
			return Kind(k), nil
		}
	}
	return KindInvalid, fmt.Errorf("unknown handle kind %q", s)
}

// Handle identifies a scripting-side object across the bridge.
type Handle struct {
	ID   uint64
	Kind Kind
}

// IsZero reports whether h is the zero handle.
func (h Handle) IsZero() bool {
	return h.ID == 0
}

func (h Handle) String() string {
	return fmt.Sprintf("%s#%d", h.Kind, h.ID)
}

type entry struct {
	obj  gc.Traceable
	kind Kind
	pins int
}

// Table maps handles to live objects for one execution context.
// It is used from the context's scripting goroutine only.
type Table struct {
	next    uint64
	entries map[uint64]*entry
}

// NewTable creates an empty table.
func NewTable() *Table {
	return &Table{entries: make(map[uint64]*entry)}
}

// Allocate issues a new handle for obj.
func (t *Table) Allocate(obj gc.Traceable, kind Kind) Handle {
	t.next++
	t.entries[t.next] = &entry{obj: obj, kind: kind}
	return Handle{ID: t.next, Kind: kind}
}

// Lookup resolves h. Both id and kind must match.
func (t *Table) Lookup(h Handle) (gc.Traceable, bool) {
	e, ok := t.entries[h.ID]
	if !ok || e.kind != h.Kind {
		return nil, false
	}
	return e.obj, true
}

// Valid reports whether h resolves.
func (t *Table) Valid(h Handle) bool {
	_, ok := t.Lookup(h)
	return ok
}

// Release invalidates h. It is called exactly when the object is collected.
func (t *Table) Release(h Handle) error {
	e, ok := t.entries[h.ID]
	if !ok || e.kind != h.Kind {
		return fmt.Errorf("release %s: %w", h, ErrUnknownHandle)
	}
	if e.pins > 0 {
		return fmt.Errorf("release %s: %w", h, ErrPinned)
	}
	delete(t.entries, h.ID)
	return nil
}

// Pinned returns the number of live Refs on h.
func (t *Table) Pinned(h Handle) int {
	if e, ok := t.entries[h.ID]; ok && e.kind == h.Kind {
		return e.pins
	}
	return 0
}

// Len returns the number of live handles.
func (t *Table) Len() int {
	return len(t.entries)
}

// Roots visits every pinned object. Register the table with gc.Heap.AddRoots.
func (t *Table) Roots(v gc.Visitor) {
	for _, e := range t.entries {
		if e.pins > 0 {
			v.Visit(e.obj)
		}
	}
}
