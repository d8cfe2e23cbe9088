package cli

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFiles(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for name, content := range files {
		p := filepath.Join(root, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	}
	return root
}

func TestDiscover(t *testing.T) {
	root := writeFiles(t, map[string]string{
		"a.js":          "1",
		"nested/b.js":   "2",
		"nested/c.txt":  "3",
		"deep/x/y/d.js": "4",
	})
	ctx := context.Background()

	tests := []struct {
		name    string
		args    []string
		pattern string
		want    []string
	}{
		{name: "directory", args: []string{root}, pattern: "**/*.js", want: []string{"a.js", "deep/x/y/d.js", "nested/b.js"}},
		{name: "narrow pattern", args: []string{root}, pattern: "nested/*", want: []string{"nested/b.js", "nested/c.txt"}},
		{name: "glob", args: []string{filepath.Join(root, "**", "*.txt")}, pattern: "**/*.js", want: []string{"nested/c.txt"}},
		{name: "file and duplicate", args: []string{filepath.Join(root, "a.js"), root}, pattern: "*.js", want: []string{"a.js"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := discover(ctx, tt.args, tt.pattern)
			require.NoError(t, err)
			want := make([]string, len(tt.want))
			for i, w := range tt.want {
				want[i] = filepath.Join(root, w)
			}
			assert.Equal(t, want, got)
		})
	}

	_, err := discover(ctx, []string{filepath.Join(root, "missing", "*.js")}, "**/*.js")
	assert.Error(t, err)
	_, err = discover(ctx, []string{root}, "[")
	assert.Error(t, err)
}

func TestDecode(t *testing.T) {
	src, charset, err := decode([]byte("\xef\xbb\xbfconst s = 'héllo';"))
	require.NoError(t, err)
	assert.Equal(t, "utf-8", charset)
	assert.Equal(t, "const s = 'héllo';", src)

	latin1 := strings.Repeat("// Le caf\xe9 est tr\xe8s chaud et la cr\xe8me br\xfbl\xe9e est d\xe9licieuse.\n", 8) + "1"
	src, charset, err = decode([]byte(latin1))
	require.NoError(t, err)
	assert.NotEqual(t, "utf-8", charset)
	assert.True(t, utf8.ValidString(src))
	assert.True(t, strings.HasSuffix(src, "1"))
}
