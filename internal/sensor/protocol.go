// Package sensor reads envelope frames from the console output of the radar sensor board.
package sensor

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	ErrSampleCount = errors.New("unexpected number of envelope samples")
	ErrMalformed   = errors.New("malformed line")
)

// line prefixes written by the sensor board
const (
	bannerPrefix       = "Acconeer software version "
	startPrefix        = "Start:"
	lengthPrefix       = "Length:"
	pipeDiameterPrefix = "Pipe diameter:"
	dataLengthPrefix   = "Data length:"
	stepLengthPrefix   = "Step length:"
	envelopeHeader     = "Envelope data:"
)

type lineKind int

const (
	lineOther lineKind = iota
	lineBanner
	lineStart
	lineLength
	linePipeDiameter
	lineDataLength
	lineStepLength
	lineEnvelope
)

// classify returns the kind of line and the value part for metadata lines.
func classify(line string) (lineKind, string) {
	line = strings.TrimSpace(line)
	prefixes := []struct {
		prefix string
		kind   lineKind
	}{
		{bannerPrefix, lineBanner},
		{startPrefix, lineStart},
		{lengthPrefix, lineLength},
		{pipeDiameterPrefix, linePipeDiameter},
		{dataLengthPrefix, lineDataLength},
		{stepLengthPrefix, lineStepLength},
	}
	if line == envelopeHeader {
		return lineEnvelope, ""
	}
	for _, p := range prefixes {
		if strings.HasPrefix(line, p.prefix) {
			return p.kind, strings.TrimSpace(strings.TrimPrefix(line, p.prefix))
		}
	}
	return lineOther, ""
}

// parseMM parses values like "120 mm" or "0.483871 mm" and returns meters.
func parseMM(s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(strings.TrimSuffix(s, "mm")), 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q: %w", ErrMalformed, s, err)
	}
	return v / 1000, nil
}

func parseUint(s string) (int, error) {
	v, err := strconv.ParseUint(strings.TrimSpace(strings.TrimSuffix(s, "mm")), 10, 31)
	if err != nil {
		return 0, fmt.Errorf("%w: %q: %w", ErrMalformed, s, err)
	}
	return int(v), nil
}

// parseSamples appends the whitespace separated values of a data row to dst.
// ok is false if the line is not a data row.
func parseSamples(dst []uint16, line string) (ret []uint16, ok bool) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return dst, false
	}
	ret = dst
	for _, f := range fields {
		v, err := strconv.ParseUint(f, 10, 16)
		if err != nil {
			return dst, false
		}
		ret = append(ret, uint16(v))
	}
	return ret, true
}
