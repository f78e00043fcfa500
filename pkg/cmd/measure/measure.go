package measure

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/mpapenbr/pipeflow/internal/envelope"
	"github.com/mpapenbr/pipeflow/internal/flowmeter"
	"github.com/mpapenbr/pipeflow/internal/sensor"
	"github.com/mpapenbr/pipeflow/log"
	"github.com/mpapenbr/pipeflow/pkg/cmd/pipeline"
	"github.com/mpapenbr/pipeflow/pkg/config"
	"github.com/mpapenbr/pipeflow/pkg/util"
)

var ErrDeviceNotFound = errors.New("sensor device not found")

func NewMeasureCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "measure",
		Short: "measure water level and flow rate with the sensor board",
		RunE: func(cmd *cobra.Command, args []string) error {
			return measure(cmd.Context())
		},
	}

	config.AddSerialFlags(cmd.Flags(), config.DefaultCliArgs())
	config.AddParamFlags(cmd.Flags(), config.DefaultPipelineParams())
	config.AddRunFlags(cmd.Flags(), config.DefaultCliArgs())
	cmd.Flags().StringVar(&config.DefaultCliArgs().RecordFile,
		"record",
		"",
		"record raw envelope frames to this file")
	return cmd
}

func measure(ctx context.Context) error {
	logger := pipeline.Logger(ctx)
	cli := config.DefaultCliArgs()
	params := config.DefaultPipelineParams()
	if err := params.Validate(); err != nil {
		return err
	}

	if !util.WaitForDevice(ctx, cli.Port, util.ParseDuration(logger, cli.WaitForDevice, 0)) {
		logger.Error("Sensor device not available", log.String("port", cli.Port))
		return ErrDeviceNotFound
	}
	p, err := sensor.OpenSerial(sensor.SerialConfig{
		Name:        cli.Port,
		Baud:        cli.Baud,
		ReadTimeout: util.ParseDuration(logger, cli.ReadTimeout, sensor.DefaultSerialConfig().ReadTimeout),
	}, sensor.WithLogger(logger.Named("sensor")))
	if err != nil {
		return err
	}
	defer p.Close()

	info, err := p.ReadHeader(ctx)
	if errors.Is(err, envelope.ErrNoMetadata) {
		// board was started before we connected
		p.UseMetadata(envelope.Metadata{
			StartM:  params.DistanceToPipeM,
			LengthM: params.RangeLengthM(),
		})
	} else if err != nil {
		return err
	}
	if info.PipeDiameterMM > 0 && float64(info.PipeDiameterMM) != params.PipeDiameterMM() {
		logger.Warn("Pipe diameter differs from sensor configuration",
			log.Int("sensor", info.PipeDiameterMM),
			log.Float64("configured", params.PipeDiameterMM()))
	}

	return pipeline.Run(ctx, p, params, cli, flowmeter.WithFirmware(info.Firmware))
}
