package status

import (
	"context"
	"errors"
	"time"

	"github.com/spf13/cobra"

	"github.com/mpapenbr/pipeflow/internal/envelope"
	"github.com/mpapenbr/pipeflow/internal/sensor"
	"github.com/mpapenbr/pipeflow/log"
	"github.com/mpapenbr/pipeflow/pkg/cmd/pipeline"
	"github.com/mpapenbr/pipeflow/pkg/config"
	"github.com/mpapenbr/pipeflow/pkg/util"
)

var (
	ErrDeviceNotAvailable = errors.New("sensor device not available")
	ErrNoHeader           = errors.New("sensor header not received")
)

var headerTimeout string

func NewStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "check the sensor board connection",
		RunE: func(cmd *cobra.Command, args []string) error {
			return checkSensorStatus(cmd.Context())
		},
	}

	config.AddSerialFlags(cmd.Flags(), config.DefaultCliArgs())
	cmd.Flags().StringVar(&headerTimeout,
		"timeout",
		"10s",
		"wait this long for the sensor header")
	return cmd
}

func checkSensorStatus(ctx context.Context) error {
	logger := pipeline.Logger(ctx)
	cli := config.DefaultCliArgs()
	if !util.WaitForDevice(ctx, cli.Port, util.ParseDuration(logger, cli.WaitForDevice, 0)) {
		logger.Error(ErrDeviceNotAvailable.Error(), log.String("port", cli.Port))
		return ErrDeviceNotAvailable
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

	ctx, cancel := context.WithTimeout(ctx, util.ParseDuration(logger, headerTimeout, 10*time.Second))
	defer cancel()
	info, err := p.ReadHeader(ctx)
	switch {
	case errors.Is(err, envelope.ErrNoMetadata):
		logger.Warn("Sensor is running but its header was missed. Reset the board to see it.",
			log.String("port", cli.Port))
		return nil
	case err != nil:
		logger.Error(ErrNoHeader.Error(), log.ErrorField(err))
		return ErrNoHeader
	}
	ok, _ := util.CheckFirmwareVersion(info.Firmware)
	logger.Info("Sensor board ready",
		log.String("port", cli.Port),
		log.String("firmware", info.Firmware),
		log.Bool("firmwareSupported", ok),
		log.Int("pipeDiameter", info.PipeDiameterMM),
		log.Any("metadata", info.Metadata))
	return nil
}
