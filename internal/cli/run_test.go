package cli

import (
	"bytes"
	"context"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/linsmod/webf/internal/host/local"
	"github.com/linsmod/webf/internal/host/server"
	"github.com/linsmod/webf/internal/infrastructure/config"
	"github.com/linsmod/webf/internal/wire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRunCommand()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(append(args, "--log-level", "error"))
	err := cmd.ExecuteContext(context.Background())
	return buf.String(), err
}

const okScript = `
	const p = document.createElement('p');
	p.textContent = 'hi';
	document.appendChild(p);
	console.log(document.querySelector('p').textContent);
	1 + 1
`

func TestRunLocal(t *testing.T) {
	root := writeFiles(t, map[string]string{
		"ok.js":   okScript,
		"fail.js": "throw new Error('boom')",
	})

	out, err := execute(t, root, "--html")
	require.EqualError(t, err, "1 of 2 scripts failed")
	assert.Contains(t, out, "FAIL "+filepath.Join(root, "fail.js"))
	assert.Contains(t, out, "boom")
	assert.Contains(t, out, "ok   "+filepath.Join(root, "ok.js"))
	assert.Contains(t, out, "=> 2")
	assert.Contains(t, out, "  [log] hi")
	assert.Contains(t, out, "<p>hi</p>")
}

func TestRunOverHTTP(t *testing.T) {
	cfg := config.Default()
	codec, err := wire.NewCodec(cfg.Host.CompressThreshold)
	require.NoError(t, err)
	t.Cleanup(codec.Close)

	h := local.New(local.DefaultConfig())
	t.Cleanup(h.Wait)
	ts := httptest.NewServer(server.New(cfg, h, codec).Handler())
	t.Cleanup(ts.Close)

	root := writeFiles(t, map[string]string{"ok.js": okScript})
	out, err := execute(t, filepath.Join(root, "ok.js"), "--transport", "http", "--addr", ts.URL)
	require.NoError(t, err, out)
	assert.Contains(t, out, "=> 2")
	// Every context is closed once the pool shuts down.
	assert.Zero(t, h.Contexts())
}

func TestRunRejectsBadTransport(t *testing.T) {
	root := writeFiles(t, map[string]string{"ok.js": "1"})
	_, err := execute(t, root, "--transport", "carrier-pigeon")
	assert.ErrorContains(t, err, "unknown host transport")

	_, err = execute(t)
	assert.Error(t, err)
}
