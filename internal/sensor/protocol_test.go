package sensor

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		line      string
		wantKind  lineKind
		wantValue string
	}{
		{"Acconeer software version v2.14.0", lineBanner, "v2.14.0"},
		{"Start: 120 mm", lineStart, "120 mm"},
		{"Length: 100 mm\r", lineLength, "100 mm"},
		{"Pipe diameter: 90 mm", linePipeDiameter, "90 mm"},
		{"Data length: 207", lineDataLength, "207"},
		{"Step length: 0.484000 mm", lineStepLength, "0.484000 mm"},
		{"Envelope data:", lineEnvelope, ""},
		{"Number of peaks: 3", lineOther, ""},
		{"", lineOther, ""},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			kind, value := classify(tt.line)
			assert.Equal(t, tt.wantKind, kind)
			assert.Equal(t, tt.wantValue, value)
		})
	}
}

func TestParseMM(t *testing.T) {
	v, err := parseMM("120 mm")
	assert.NoError(t, err)
	assert.InDelta(t, 0.12, v, 1e-12)

	v, err = parseMM("0.484000 mm")
	assert.NoError(t, err)
	assert.InDelta(t, 0.000484, v, 1e-12)

	_, err = parseMM("abc mm")
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestParseSamples(t *testing.T) {
	got, ok := parseSamples(nil, "   123     4 65535")
	assert.True(t, ok)
	assert.Equal(t, []uint16{123, 4, 65535}, got)

	got, ok = parseSamples(got, "Distance to water surface: 150.000000")
	assert.False(t, ok)
	assert.Len(t, got, 3)

	_, ok = parseSamples(nil, "70000")
	assert.False(t, ok)
}
