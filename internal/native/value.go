// Package native defines the closed set of values and methods that cross
// the binding invocation boundary.
package native

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/linsmod/webf/internal/binding"
)

// ErrKindMismatch is returned by accessors called on the wrong kind.
var ErrKindMismatch = errors.New("native value kind mismatch")

// Kind enumerates the value variants.
type Kind uint8

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindString
	KindPointer
	KindPointerList
)

var kindNames = [...]string{"null", "bool", "number", "string", "pointer", "pointers"}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "kind(" + strconv.Itoa(int(k)) + ")"
}

// ParseKind is the inverse of Kind.String.
func ParseKind(s string) (Kind, error) {
	for i, name := range kindNames {
		if name == s {
			return Kind(i), nil
		}
	}
	return KindNull, fmt.Errorf("unknown value kind %q", s)
}

// Value is one argument or result. The zero Value is null.
type Value struct {
	kind     Kind
	b        bool
	n        float64
	s        string
	ptr      binding.Handle
	pointers []binding.Handle
}

func Null() Value                    { return Value{} }
func Bool(b bool) Value              { return Value{kind: KindBool, b: b} }
func Number(n float64) Value         { return Value{kind: KindNumber, n: n} }
func String(s string) Value          { return Value{kind: KindString, s: s} }
func Pointer(h binding.Handle) Value { return Value{kind: KindPointer, ptr: h} }

// Pointers copies hs into a pointer list value.
func Pointers(hs []binding.Handle) Value {
	cp := make([]binding.Handle, len(hs))
	copy(cp, hs)
	return Value{kind: KindPointerList, pointers: cp}
}

// Kind returns the variant.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether v is null.
func (v Value) IsNull() bool { return v.kind == KindNull }

func (v Value) mismatch(want Kind) error {
	return fmt.Errorf("%w: want %s, have %s", ErrKindMismatch, want, v.kind)
}

func (v Value) AsBool() (bool, error) {
	if v.kind != KindBool {
		return false, v.mismatch(KindBool)
	}
	return v.b, nil
}

func (v Value) AsNumber() (float64, error) {
	if v.kind != KindNumber {
		return 0, v.mismatch(KindNumber)
	}
	return v.n, nil
}

func (v Value) AsString() (string, error) {
	if v.kind != KindString {
		return "", v.mismatch(KindString)
	}
	return v.s, nil
}

func (v Value) AsPointer() (binding.Handle, error) {
	if v.kind != KindPointer {
		return binding.Handle{}, v.mismatch(KindPointer)
	}
	return v.ptr, nil
}

// AsPointers returns a copy of the pointer list.
func (v Value) AsPointers() ([]binding.Handle, error) {
	if v.kind != KindPointerList {
		return nil, v.mismatch(KindPointerList)
	}
	out := make([]binding.Handle, len(v.pointers))
	copy(out, v.pointers)
	return out, nil
}

// Handles returns every handle v carries, for validation.
func (v Value) Handles() []binding.Handle {
	switch v.kind {
	case KindPointer:
		return []binding.Handle{v.ptr}
	case KindPointerList:
		return v.pointers
	default:
		return nil
	}
}

func (v Value) String() string {
	switch v.kind {
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindNumber:
		return strconv.FormatFloat(v.n, 'g', -1, 64)
	case KindString:
		return strconv.Quote(v.s)
	case KindPointer:
		return v.ptr.String()
	case KindPointerList:
		return fmt.Sprintf("%v", v.pointers)
	default:
		return "null"
	}
}
