// Package envelope holds the data handed over by the radar acquisition.
package envelope

import (
	"context"
	"errors"
	"io"
	"time"
)

var ErrNoMetadata = errors.New("envelope metadata not yet available")

// Metadata describes the geometry of an acquired range window.
type Metadata struct {
	StartM      float64 `json:"startM"`
	LengthM     float64 `json:"lengthM"`
	StepLengthM float64 `json:"stepLengthM"`
	DataLength  int     `json:"dataLength"`
}

// Frame is one envelope acquisition. Samples are ordered by distance.
type Frame struct {
	Metadata
	Samples   []uint16
	Timestamp time.Time
}

// Clone returns a deep copy so the processor may smooth in place without touching the original.
func (f *Frame) Clone() *Frame {
	ret := *f
	ret.Samples = make([]uint16, len(f.Samples))
	copy(ret.Samples, f.Samples)
	return &ret
}

// Provider delivers envelope frames. Next blocks until a frame is available.
// Implementations return io.EOF once no more frames will be delivered.
type Provider interface {
	Next(ctx context.Context) (*Frame, error)
	Close() error
}

// SliceProvider hands out a fixed list of frames. Useful for tests and the flow command.
type SliceProvider struct {
	frames []*Frame
	pos    int
}

func NewSliceProvider(frames ...*Frame) *SliceProvider {
	return &SliceProvider{frames: frames}
}

func (s *SliceProvider) Next(ctx context.Context) (*Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.pos >= len(s.frames) {
		return nil, io.EOF
	}
	f := s.frames[s.pos]
	s.pos++
	return f, nil
}

func (s *SliceProvider) Close() error { return nil }
