// Package blob provides the immutable byte container handed to scripts by
// async round trips.
package blob

import (
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// DefaultType is used when the content cannot be identified.
const DefaultType = "application/octet-stream"

// Blob wraps bytes with a MIME type. It never copies or mutates the bytes
// it was created from.
type Blob struct {
	data []byte
	typ  string
}

// New wraps data with an explicit type.
func New(data []byte, typ string) *Blob {
	return &Blob{data: data, typ: strings.ToLower(typ)}
}

// Detect wraps data and sniffs its type, falling back to fallback when the
// content is not recognized.
func Detect(data []byte, fallback string) *Blob {
	typ := fallback
	if len(data) > 0 {
		if m := mimetype.Detect(data); m.String() != DefaultType {
			typ = m.String()
		}
	}
	if typ == "" {
		typ = DefaultType
	}
	return New(data, typ)
}

// Size returns the length in bytes.
func (b *Blob) Size() int { return len(b.data) }

// Type returns the MIME type.
func (b *Blob) Type() string { return b.typ }

// Bytes returns the wrapped bytes.
func (b *Blob) Bytes() []byte { return b.data }

// Text returns the content as a string.
func (b *Blob) Text() string { return string(b.data) }

// Slice returns a view of [start, end) with Blob.slice semantics: negative
// offsets count from the end and out of range offsets are clamped.
func (b *Blob) Slice(start, end int, contentType string) *Blob {
	size := len(b.data)
	start = clamp(start, size)
	end = clamp(end, size)
	if end < start {
		end = start
	}
	return New(b.data[start:end:end], contentType)
}

func clamp(i, size int) int {
	if i < 0 {
		i += size
		if i < 0 {
			return 0
		}
	}
	if i > size {
		return size
	}
	return i
}
