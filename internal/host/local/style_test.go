package local

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDeclarations(t *testing.T) {
	d := parseDeclarations("color: red; ; bogus; Width: 10px")
	assert.Equal(t, "color: red; width: 10px", d.String())

	d = d.set("backgroundColor", "#fff")
	assert.Equal(t, "#fff", d.get("background-color"))

	d = d.set("color", "")
	assert.Equal(t, "width: 10px; background-color: #fff", d.String())
}

func TestKebab(t *testing.T) {
	tests := map[string]string{
		"color":           "color",
		"backgroundColor": "background-color",
		"WebkitTransform": "-webkit-transform",
		"font-size":       "font-size",
	}
	for in, want := range tests {
		assert.Equal(t, want, kebab(in), in)
	}
}
