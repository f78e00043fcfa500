package log

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONLogger(t *testing.T) {
	buf := &bytes.Buffer{}
	l := New(buf, InfoLevel).Named("proc")
	l.Debug("hidden")
	l.Info("iteration", Int("peaks", 3), Float64("flowRate", 0.25), ErrorField(errors.New("boom")))

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "iteration", entry["msg"])
	assert.Equal(t, "proc", entry["logger"])
	assert.InDelta(t, 3.0, entry["peaks"], 0)
	assert.Equal(t, "boom", entry["error"])
}

func TestSetLevel(t *testing.T) {
	buf := &bytes.Buffer{}
	l := DevLogger(buf, InfoLevel)
	l.Debug("first")
	assert.Zero(t, buf.Len())
	l.SetLevel(DebugLevel)
	l.Debug("second")
	assert.Contains(t, buf.String(), "second")
}

func TestContext(t *testing.T) {
	l := New(&bytes.Buffer{}, InfoLevel)
	ctx := AddToContext(context.Background(), l)
	assert.Same(t, l, GetFromContext(ctx))
	assert.Nil(t, GetFromContext(context.Background()))
	assert.Same(t, Default(), FromContextOrDefault(context.Background()))
}

func TestParseConfig(t *testing.T) {
	cfg, err := ParseConfig([]byte(`
defaultLevel: debug
zap:
  encoding: json
  outputPaths: [stderr]
  errorOutputPaths: [stderr]
`))
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.DefaultLevel)
	assert.Equal(t, "json", cfg.Zap.Encoding)

	l, err := NewFromConfig(cfg)
	require.NoError(t, err)
	assert.Equal(t, DebugLevel, l.Level())
}
