//nolint:funlen // table driven tests
package processor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mpapenbr/pipeflow/internal/envelope"
	"github.com/mpapenbr/pipeflow/pkg/config"
)

var frameMetadata = envelope.Metadata{
	StartM:      0.12,
	LengthM:     0.1,
	StepLengthM: 0.001,
	DataLength:  100,
}

func fill(n int, v uint16) []uint16 {
	ret := make([]uint16, n)
	for i := range ret {
		ret[i] = v
	}
	return ret
}

// emptyFrame has a single echo at the far wall and a rising tail.
func emptyFrame() *envelope.Frame {
	s := fill(100, 10)
	s[79], s[80], s[81] = 500, 1000, 500
	return &envelope.Frame{Metadata: frameMetadata, Samples: s}
}

// fullFrame has a near wall echo, a surface echo at 149mm and a flat tail.
func fullFrame() *envelope.Frame {
	s := fill(100, 300)
	s[5] = 1000
	s[35] = 800
	return &envelope.Frame{Metadata: frameMetadata, Samples: s}
}

func quietFrame() *envelope.Frame {
	return &envelope.Frame{Metadata: frameMetadata, Samples: fill(100, 100)}
}

func newTestProcessor(t *testing.T, mod func(p *config.Params), opts ...OptionsFunc) *Processor {
	t.Helper()
	p := config.DefaultParams()
	p.MovingAverageWindow = 1
	if mod != nil {
		mod(p)
	}
	proc, err := NewProcessor(append([]OptionsFunc{WithParams(p)}, opts...)...)
	require.NoError(t, err)
	return proc
}

func TestNewProcessor_InvalidParams(t *testing.T) {
	p := config.DefaultParams()
	p.PipeDiameterM = 0
	_, err := NewProcessor(WithParams(p))
	assert.ErrorIs(t, err, config.ErrInvalidParams)
}

func TestProcessor_NewSession(t *testing.T) {
	proc := newTestProcessor(t, nil)
	s := proc.NewSession()
	assert.InDelta(t, 165.0, s.PreviousDistanceMM, 1e-9)
	assert.Equal(t, 0, s.Indicator.Value())
	assert.Equal(t, 5, s.Indicator.Limit())
	assert.Equal(t, 0, s.Iteration)
}

func TestProcessor_Process(t *testing.T) {
	type step struct {
		frame         func() *envelope.Frame
		wantIndicator int
		wantDistance  float64
		wantBranch    SurfaceBranch
		wantFiltered  int
	}
	tests := []struct {
		name      string
		rejection bool
		steps     []step
	}{
		{
			"empty pipe",
			true,
			[]step{
				{emptyFrame, -2, 210, SurfaceFarWall, 1},
				{emptyFrame, -4, 210, SurfaceFarWall, 1},
			},
		},
		{
			"full pipe survives single empty frame",
			true,
			[]step{
				{fullFrame, 2, 149, SurfaceSecond, 2},
				{fullFrame, 4, 149, SurfaceSecond, 2},
				{fullFrame, 5, 149, SurfaceSecond, 2},
				{emptyFrame, 3, 194, SurfaceFirst, 1},
				{emptyFrame, 1, 194, SurfaceFirst, 1},
				{emptyFrame, -1, 210, SurfaceFarWall, 1},
			},
		},
		{
			"no peaks falls back to the pipe center",
			true,
			[]step{
				{quietFrame, 2, 165, SurfaceCenter, 0},
				{fullFrame, 4, 149, SurfaceSecond, 2},
				{quietFrame, 5, 165, SurfaceCenter, 0},
			},
		},
		{
			"jump from the far wall is rejected",
			true,
			[]step{
				{emptyFrame, -2, 210, SurfaceFarWall, 1},
				{fullFrame, 0, 210, SurfaceRejected, 2},
			},
		},
		{
			"jump accepted without outlier rejection",
			false,
			[]step{
				{emptyFrame, -2, 210, SurfaceFarWall, 1},
				{fullFrame, 0, 149, SurfaceSecond, 2},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			proc := newTestProcessor(t, func(p *config.Params) { p.OutlierRejection = tt.rejection })
			s := proc.NewSession()
			for i, st := range tt.steps {
				res, err := proc.Process(s, st.frame())
				require.NoError(t, err, "step %d", i)
				assert.Equal(t, i+1, res.Iteration)
				assert.Equal(t, st.wantIndicator, res.Indicator, "step %d", i)
				assert.Equal(t, st.wantIndicator, s.Indicator.Value(), "step %d", i)
				assert.InDelta(t, st.wantDistance, res.DistanceMM, 1e-9, "step %d", i)
				assert.InDelta(t, st.wantDistance, s.PreviousDistanceMM, 1e-9, "step %d", i)
				assert.Equal(t, st.wantBranch, res.SurfaceBranch, "step %d", i)
				assert.Equal(t, st.wantFiltered, res.FilteredCount, "step %d", i)
				assert.Len(t, res.FilteredPeaks, st.wantFiltered)

				wantLevel := 210 - st.wantDistance
				assert.InDelta(t, wantLevel, res.WaterLevelMM, 1e-9, "step %d", i)
				geo, err := proc.Hydraulics().Flow(wantLevel)
				require.NoError(t, err)
				assert.True(t, res.FlowRateAvailable)
				assert.InDelta(t, geo.Rate, res.FlowRate, 1e-12, "step %d", i)
			}
		})
	}
}

func TestProcessor_FilteredPeaksAreCopied(t *testing.T) {
	proc := newTestProcessor(t, nil)
	s := proc.NewSession()
	first, err := proc.Process(s, fullFrame())
	require.NoError(t, err)
	_, err = proc.Process(s, emptyFrame())
	require.NoError(t, err)
	assert.Equal(t, []Peak{
		{DistanceMM: 119, Intensity: 1000, Index: 5},
		{DistanceMM: 149, Intensity: 800, Index: 35},
	}, first.FilteredPeaks)
	assert.Equal(t, "119,1000,5;149,800,35", FormatPeaks(first.FilteredPeaks))
}

func TestProcessor_SessionsAreIndependent(t *testing.T) {
	proc := newTestProcessor(t, nil)
	a := proc.NewSession()
	b := proc.NewSession()
	_, err := proc.Process(a, emptyFrame())
	require.NoError(t, err)
	res, err := proc.Process(b, fullFrame())
	require.NoError(t, err)
	assert.Equal(t, -2, a.Indicator.Value())
	assert.Equal(t, 2, res.Indicator)
	assert.Equal(t, 1, res.Iteration)
}

func TestProcessor_PeakOverflow(t *testing.T) {
	proc := newTestProcessor(t, nil)
	s := proc.NewSession()
	samples := make([]uint16, 300)
	for i := range samples {
		samples[i] = 300 + uint16(i%2)*500
	}
	md := frameMetadata
	md.DataLength = len(samples)
	res, err := proc.Process(s, &envelope.Frame{Metadata: md, Samples: samples})
	require.Error(t, err)
	assert.True(t, IsCapacityError(err))
	require.NotNil(t, res)
	assert.True(t, res.PeakOverflow)
	assert.Equal(t, PeakCapacity, res.PeakCount)
	assert.True(t, res.FlowRateAvailable)
	assert.Equal(t, 1, s.Iteration)
}

func TestProcessor_SmoothsInPlace(t *testing.T) {
	proc := newTestProcessor(t, func(p *config.Params) { p.MovingAverageWindow = 3 },
		WithKeepEnvelope(true),
		WithClock(func() time.Time { return time.Unix(1700000000, 500000000) }))
	s := proc.NewSession()
	frame := &envelope.Frame{Metadata: frameMetadata, Samples: []uint16{0, 1, 5, 9, 5, 1, 0, 0}}
	res, err := proc.Process(s, frame)
	require.NoError(t, err)
	want := []uint16{0, 2, 5, 6, 5, 2, 0, 0}
	assert.Equal(t, want, frame.Samples)
	assert.Equal(t, want, res.Envelope)
	assert.Equal(t, 1700000000.5, res.Timestamp)
	assert.Equal(t, time.Unix(1700000000, 500000000), res.Time())
	assert.Equal(t, 1, res.PeakCount)
	assert.Equal(t, 0, res.FilteredCount)
	assert.Equal(t, SurfaceCenter, res.SurfaceBranch)
}
