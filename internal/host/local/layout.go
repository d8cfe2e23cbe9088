package local

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"math"
	"strconv"
	"strings"

	"github.com/linsmod/webf/internal/native"
	"golang.org/x/net/html"
)

const (
	lineHeight = 16
	// maxSnapshotSide bounds a rendered snapshot in device pixels.
	maxSnapshotSide = 8192
)

// layout places every node reachable from the document. Nodes outside the
// document are absent from the result and measure as an empty rect.
func (m *Mirror) layout(cfg Config) map[*html.Node]native.Rect {
	boxes := make(map[*html.Node]native.Rect)
	if m.document == nil {
		return boxes
	}
	boxes[m.document] = native.Rect{Width: cfg.ViewportWidth, Height: cfg.ViewportHeight}
	y := 0.0
	for c := m.document.FirstChild; c != nil; c = c.NextSibling {
		y += m.place(c, 0, y, cfg.ViewportWidth, boxes)
	}
	return boxes
}

func (m *Mirror) place(n *html.Node, x, y, avail float64, boxes map[*html.Node]native.Rect) float64 {
	switch n.Type {
	case html.TextNode:
		h := 0.0
		if strings.TrimSpace(n.Data) != "" {
			h = float64(lineHeight * (strings.Count(strings.TrimRight(n.Data, "\n"), "\n") + 1))
		}
		boxes[n] = native.Rect{X: x, Y: y, Width: avail, Height: h}
		return h
	case html.ElementNode:
	default:
		boxes[n] = native.Rect{X: x, Y: y}
		return 0
	}

	var style declarations
	var scrollX, scrollY float64
	if e, ok := m.byNode[n]; ok {
		style, scrollX, scrollY = e.style, e.scrollX, e.scrollY
	}
	if style.get("display") == "none" {
		boxes[n] = native.Rect{}
		return 0
	}

	width, ok := pixels(style.get("width"))
	if !ok {
		width = avail
	}
	content := 0.0
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		content += m.place(c, x-scrollX, y-scrollY+content, width, boxes)
	}
	height, ok := pixels(style.get("height"))
	if !ok {
		height = content
	}
	boxes[n] = native.Rect{X: x, Y: y, Width: width, Height: height}
	return height
}

// pixels parses "12", "12px" or "12.5px".
func pixels(v string) (float64, bool) {
	v = strings.TrimSuffix(strings.TrimSpace(v), "px")
	if v == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f < 0 {
		return 0, false
	}
	return f, true
}

func renderPNG(rect native.Rect, dpr float64, fill string) ([]byte, error) {
	if dpr <= 0 {
		dpr = 1
	}
	w := int(math.Ceil(rect.Width * dpr))
	h := int(math.Ceil(rect.Height * dpr))
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("cannot snapshot an empty box (%gx%g)", rect.Width, rect.Height)
	}
	if w > maxSnapshotSide || h > maxSnapshotSide {
		return nil, fmt.Errorf("snapshot of %dx%d exceeds %d device pixels per side", w, h, maxSnapshotSide)
	}

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: parseColor(fill)}, image.Point{}, draw.Src)

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// parseColor understands #rgb and #rrggbb; anything else is white.
func parseColor(s string) color.RGBA {
	white := color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(s) == 3 {
		s = string([]byte{s[0], s[0], s[1], s[1], s[2], s[2]})
	}
	if len(s) != 6 {
		return white
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return white
	}
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xff}
}
