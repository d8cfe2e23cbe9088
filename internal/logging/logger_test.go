package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewRejectsUnknownLevel(t *testing.T) {
	_, err := New(Config{Level: "loud"})
	assert.Error(t, err)
}

func TestNewWritesRotatedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bridge.log")

	cfg := DefaultConfig()
	cfg.OutputPaths = []string{os.DevNull}
	cfg.File = path

	logger, err := New(cfg)
	require.NoError(t, err)

	logger.For("ctx_test").Info("flush delivered", zap.Int("records", 3))
	_ = logger.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"context":"ctx_test"`)
	assert.Contains(t, string(data), `"records":3`)
}

func TestNopAndWrap(t *testing.T) {
	assert.NotNil(t, NewNop().Logger)
	assert.NotNil(t, Wrap(nil).Logger)
	assert.NotNil(t, Wrap(zap.NewExample()).Named("bridge"))
}
