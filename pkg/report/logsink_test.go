package report

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mpapenbr/pipeflow/log"
)

func TestLogSink(t *testing.T) {
	buf := &bytes.Buffer{}
	s := NewLogSink(log.New(buf, log.InfoLevel))
	require.NoError(t, s.Report(testResult()))
	require.NoError(t, s.Close())

	entry := map[string]any{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "Measurement", entry["msg"])
	assert.Equal(t, "second", entry["branch"])
	assert.InDelta(t, 61.0, entry["waterLevel"], 1e-9)
}

func TestMulti(t *testing.T) {
	a, b := &bytes.Buffer{}, &bytes.Buffer{}
	m := Multi{NewTextWriter(a, false), NewCSVWriter(b)}
	require.NoError(t, m.Report(testResult()))
	require.NoError(t, m.Close())
	assert.Contains(t, a.String(), "Water level: 61.000000")
	assert.Contains(t, b.String(), "0.000,61,1.953125")
}
