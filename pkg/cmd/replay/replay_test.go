package replay

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mpapenbr/pipeflow/internal/envelope"
	"github.com/mpapenbr/pipeflow/internal/processor"
	"github.com/mpapenbr/pipeflow/pkg/config"
	"github.com/mpapenbr/pipeflow/pkg/report"
)

func TestApplyReplayDefaults(t *testing.T) {
	tests := []struct {
		name       string
		filename   string
		args       []string
		wantWarmup int
		wantWindow int
	}{
		{"frames", "run.frames", nil, 0, 5},
		{"console log", "console.log", nil, 0, 1},
		{"console txt", "console.txt", nil, 0, 1},
		{"explicit window", "console.log", []string{"--window-size", "3"}, 0, 3},
		{"explicit warmup", "run.frames", []string{"--warmup", "4"}, 4, 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cli := config.NewCliArgs()
			params := config.DefaultParams()
			fs := pflag.NewFlagSet("replay", pflag.ContinueOnError)
			config.AddParamFlags(fs, params)
			config.AddRunFlags(fs, cli)
			require.NoError(t, fs.Parse(tt.args))

			applyReplayDefaults(fs, tt.filename, cli, params)
			assert.Equal(t, tt.wantWarmup, cli.Warmup)
			assert.Equal(t, tt.wantWindow, params.MovingAverageWindow)
		})
	}
}

func consoleFrames() []*envelope.Frame {
	md := envelope.Metadata{StartM: 0.12, LengthM: 0.1, StepLengthM: 0.001, DataLength: 100}
	shapes := []func(s []uint16){
		func(s []uint16) {
			s[20], s[21], s[22] = 1500, 2000, 1500
			s[50], s[51], s[52] = 1200, 1600, 1200
		},
		func(s []uint16) {
			s[20], s[21], s[22] = 1500, 2000, 1500
			s[55], s[56], s[57] = 900, 1400, 900
		},
		func(s []uint16) {
			for i := 60; i < 100; i++ {
				s[i] = uint16(10 * i)
			}
			s[79], s[80], s[81] = 1500, 3000, 1500
		},
	}
	ret := make([]*envelope.Frame, 0, len(shapes))
	for _, shape := range shapes {
		s := make([]uint16, md.DataLength)
		for i := range s {
			s[i] = 300
		}
		shape(s)
		ret = append(ret, &envelope.Frame{Metadata: md, Samples: s})
	}
	return ret
}

// a console log written during a live run replays to the same results
func TestReplay_ConsoleLogRoundTrip(t *testing.T) {
	clock := func() time.Time { return time.Unix(1700000000, 0) }
	live, err := processor.NewProcessor(
		processor.WithParams(config.DefaultParams()),
		processor.WithKeepEnvelope(true),
		processor.WithClock(clock))
	require.NoError(t, err)

	buf := &bytes.Buffer{}
	buf.WriteString("Start: 120 mm\nLength: 100 mm\nPipe diameter: 90 mm\n" +
		"Data length: 100\nStep length: 1.000000 mm\n")
	w := report.NewTextWriter(buf, true)
	session := live.NewSession()
	want := []*processor.Result{}
	for _, f := range consoleFrames() {
		res, err := live.Process(session, f)
		require.NoError(t, err)
		require.NoError(t, w.Report(res))
		res.Envelope = nil
		want = append(want, res)
	}
	require.NoError(t, w.Close())

	filename := filepath.Join(t.TempDir(), "console.log")
	require.NoError(t, os.WriteFile(filename, buf.Bytes(), 0o600))

	cli := config.NewCliArgs()
	params := config.DefaultParams()
	fs := pflag.NewFlagSet("replay", pflag.ContinueOnError)
	config.AddParamFlags(fs, params)
	config.AddRunFlags(fs, cli)
	require.NoError(t, fs.Parse(nil))
	applyReplayDefaults(fs, filename, cli, params)

	ctx := context.Background()
	provider, err := openProvider(ctx, filename, params)
	require.NoError(t, err)
	defer provider.Close()
	proc, err := processor.NewProcessor(processor.WithParams(params), processor.WithClock(clock))
	require.NoError(t, err)

	session = proc.NewSession()
	got := []*processor.Result{}
	for {
		f, err := provider.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		res, err := proc.Process(session, f)
		require.NoError(t, err)
		got = append(got, res)
	}
	assert.Equal(t, want, got)
}
