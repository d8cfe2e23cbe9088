package blob

import (
	"bytes"
	"image"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectPNG(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 2, 2))))

	b := Detect(buf.Bytes(), "image/png")
	assert.Equal(t, "image/png", b.Type())
	assert.Equal(t, buf.Len(), b.Size())
}

func TestDetectFallsBack(t *testing.T) {
	assert.Equal(t, "image/png", Detect([]byte{0x00, 0x01, 0x02}, "image/png").Type())
	assert.Equal(t, "image/png", Detect(nil, "image/png").Type())
	assert.Equal(t, DefaultType, Detect(nil, "").Type())
}

func TestWrapsExactBytes(t *testing.T) {
	data := []byte("hello")
	b := New(data, "Text/Plain")

	assert.Equal(t, "text/plain", b.Type())
	assert.Same(t, &data[0], &b.Bytes()[0])
	assert.Equal(t, "hello", b.Text())
}

func TestSlice(t *testing.T) {
	b := New([]byte("0123456789"), "text/plain")

	tests := []struct {
		start, end int
		want       string
	}{
		{0, 3, "012"},
		{-3, 10, "789"},
		{5, 100, "56789"},
		{7, 2, ""},
		{-100, 2, "01"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, b.Slice(tt.start, tt.end, "").Text())
	}
}
