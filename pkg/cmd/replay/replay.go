package replay

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/mpapenbr/pipeflow/internal/envelope"
	"github.com/mpapenbr/pipeflow/internal/flowmeter"
	"github.com/mpapenbr/pipeflow/internal/sensor"
	"github.com/mpapenbr/pipeflow/log"
	"github.com/mpapenbr/pipeflow/pkg/cmd/pipeline"
	"github.com/mpapenbr/pipeflow/pkg/config"
	"github.com/mpapenbr/pipeflow/pkg/framelog"
)

const (
	FormatFrames = "frames"
	FormatText   = "text"
)

var (
	format         string
	recordedParams bool
)

func NewReplayCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "replay <file>",
		Short: "process recorded envelope frames or a captured sensor console log",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			applyReplayDefaults(cmd.Flags(), args[0],
				config.DefaultCliArgs(), config.DefaultPipelineParams())
			return replay(cmd.Context(), args[0])
		},
	}

	cmd.Flags().StringVar(&format,
		"format",
		"",
		"input format (frames, text). Default: text for *.log and *.txt, frames otherwise")
	cmd.Flags().BoolVar(&recordedParams,
		"recorded-params",
		false,
		"use the pipeline parameters stored in a frame recording")
	config.AddParamFlags(cmd.Flags(), config.DefaultPipelineParams())
	config.AddRunFlags(cmd.Flags(), config.DefaultCliArgs())
	return cmd
}

func replay(ctx context.Context, filename string) error {
	logger := pipeline.Logger(ctx)
	params := config.DefaultPipelineParams()
	cli := config.DefaultCliArgs()

	provider, err := openProvider(ctx, filename, params)
	if err != nil {
		return err
	}
	defer provider.Close()
	logger.Info("Replaying", log.String("file", filename), log.String("format", formatOf(filename)))

	var opts []flowmeter.ConfigFunc
	if fl, ok := provider.(*framelog.FrameLog); ok && fl.Run() != nil {
		opts = append(opts, flowmeter.WithFirmware(fl.Run().Firmware))
	}
	return pipeline.Run(ctx, provider, params, cli, opts...)
}

// applyReplayDefaults adjusts values whose live defaults do not fit a replay
// unless they were set on the command line.
func applyReplayDefaults(fs *pflag.FlagSet, filename string, cli *config.CliArgs, params *config.Params) {
	// recordings include the warm-up frames of the original run
	if !fs.Changed("warmup") {
		cli.Warmup = 0
	}
	// console logs contain the envelope after smoothing
	if formatOf(filename) == FormatText && !fs.Changed("window-size") {
		params.MovingAverageWindow = 1
	}
}

func formatOf(filename string) string {
	if format != "" {
		return format
	}
	if strings.HasSuffix(filename, ".log") || strings.HasSuffix(filename, ".txt") {
		return FormatText
	}
	return FormatFrames
}

func openProvider(ctx context.Context, filename string, params *config.Params) (envelope.Provider, error) {
	logger := pipeline.Logger(ctx)
	switch f := formatOf(filename); f {
	case FormatFrames:
		fl, err := framelog.Open(filename, framelog.WithLogger(logger.Named("framelog")))
		if err != nil {
			return nil, err
		}
		if recordedParams {
			if err := useRecordedParams(ctx, fl, params); err != nil {
				fl.Close()
				return nil, err
			}
		}
		return fl, nil
	case FormatText:
		file, err := os.Open(filename)
		if err != nil {
			return nil, err
		}
		p := sensor.NewStreamProvider(file, sensor.WithLogger(logger.Named("sensor")))
		p.UseMetadata(envelope.Metadata{
			StartM:  params.DistanceToPipeM,
			LengthM: params.RangeLengthM(),
		})
		return p, nil
	default:
		return nil, fmt.Errorf("unknown format %q", f)
	}
}

// useRecordedParams reads the run info at the start of the recording and
// replaces params with the recorded values.
func useRecordedParams(ctx context.Context, fl *framelog.FrameLog, params *config.Params) error {
	first, err := fl.Next(ctx)
	if err != nil {
		return err
	}
	if fl.Run() == nil {
		return fmt.Errorf("recording has no run info")
	}
	*params = fl.Run().Params
	pipeline.Logger(ctx).Info("Using recorded parameters", log.Any("params", params))
	fl.Unread(first)
	return nil
}
