package command

import (
	"unicode/utf16"

	"github.com/linsmod/webf/internal/binding"
)

// String is a record-owned UTF-16 payload.
type String []uint16

// NewString encodes s as UTF-16 code units.
func NewString(s string) String {
	return String(utf16.Encode([]rune(s)))
}

// String decodes the payload. Lone surrogates become U+FFFD.
func (s String) String() string {
	return string(utf16.Decode(s))
}

// Len returns the number of UTF-16 code units.
func (s String) Len() int {
	return len(s)
}

// Clone copies the payload so it survives the record's release.
func (s String) Clone() String {
	if s == nil {
		return nil
	}
	out := make(String, len(s))
	copy(out, s)
	return out
}

// Record is one mutation waiting for the host.
type Record struct {
	// Seq is the position in the log, assigned by Append.
	Seq    uint64
	Op     Opcode
	Target *binding.Ref
	Args   [2]String
	Argc   uint8
	Aux    *binding.Ref
}

// New builds a record. More than two payloads is a programming error.
func New(op Opcode, target *binding.Ref, args ...string) Record {
	if len(args) > len(Record{}.Args) {
		panic("command: a record carries at most two payloads")
	}
	r := Record{Op: op, Target: target, Argc: uint8(len(args))}
	for i, a := range args {
		r.Args[i] = NewString(a)
	}
	return r
}

// WithAux returns r with its auxiliary reference set.
func (r Record) WithAux(aux *binding.Ref) Record {
	r.Aux = aux
	return r
}

// Arg returns payload i decoded, or "" when absent.
func (r Record) Arg(i int) string {
	if i < 0 || i >= int(r.Argc) {
		return ""
	}
	return r.Args[i].String()
}

// TargetHandle returns the handle the record addresses.
func (r Record) TargetHandle() binding.Handle {
	return r.Target.Handle()
}

// AuxHandle returns the auxiliary handle, zero when absent.
func (r Record) AuxHandle() binding.Handle {
	return r.Aux.Handle()
}

// Release drops the record's references and payloads without delivering it.
func (r *Record) Release() {
	r.Target.Release()
	r.Aux.Release()
	r.Args = [2]String{}
}
