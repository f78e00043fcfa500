// Package pipeline wires providers, processor and outputs for the commands.
package pipeline

import (
	"context"
	"errors"
	"os"
	"os/signal"

	"github.com/samber/lo"

	"github.com/mpapenbr/pipeflow/internal/envelope"
	"github.com/mpapenbr/pipeflow/internal/flowmeter"
	"github.com/mpapenbr/pipeflow/internal/processor"
	"github.com/mpapenbr/pipeflow/log"
	"github.com/mpapenbr/pipeflow/pkg/config"
	"github.com/mpapenbr/pipeflow/pkg/framelog"
	"github.com/mpapenbr/pipeflow/pkg/report"
)

// Logger returns the logger of the command context.
func Logger(ctx context.Context) *log.Logger {
	return log.FromContextOrDefault(ctx)
}

func NewProcessor(ctx context.Context, p *config.Params, cli *config.CliArgs) (*processor.Processor, error) {
	return processor.NewProcessor(
		processor.WithParams(p),
		processor.WithLogger(Logger(ctx).Named("proc")),
		processor.WithKeepEnvelope(cli.TextReport))
}

// BuildSinks creates the outputs requested by cli. Results are always logged.
func BuildSinks(ctx context.Context, cli *config.CliArgs) (report.Multi, error) {
	logger := Logger(ctx)
	sinks := report.Multi{report.NewLogSink(logger.Named("result"))}
	fail := func(err error) (report.Multi, error) {
		_ = sinks.Close()
		return nil, err
	}
	if cli.TextReport {
		sinks = append(sinks, report.NewTextWriter(os.Stdout, true))
	}
	if cli.CsvFile != "" {
		f, err := os.Create(cli.CsvFile)
		if err != nil {
			return fail(err)
		}
		sinks = append(sinks, report.NewCSVWriter(f))
	}
	if cli.MqttBroker != "" {
		pub, err := report.NewMQTTPublisher(ctx, report.MQTTConfig{
			Broker:   cli.MqttBroker,
			Topic:    cli.MqttTopic,
			ClientID: cli.MqttClientID,
		}, logger.Named("mqtt"))
		if err != nil {
			return fail(err)
		}
		sinks = append(sinks, pub)
	}
	return sinks, nil
}

// Run processes the frames of provider until it is exhausted, the iteration
// limit is reached or the process is interrupted.
//
//nolint:funlen // keep the wiring together
func Run(
	ctx context.Context,
	provider envelope.Provider,
	p *config.Params,
	cli *config.CliArgs,
	opts ...flowmeter.ConfigFunc,
) error {
	logger := Logger(ctx)
	ctx, cancel := context.WithCancel(ctx)
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt)
	defer func() {
		signal.Stop(sigChan)
		cancel()
	}()
	go func() {
		select {
		case <-sigChan:
			logger.Debug("interrupt signaled. Terminating")
			cancel()
		case <-ctx.Done():
		}
	}()

	proc, err := NewProcessor(ctx, p, cli)
	if err != nil {
		return err
	}
	sinks, err := BuildSinks(ctx, cli)
	if err != nil {
		return err
	}

	fmOpts := []flowmeter.ConfigFunc{
		flowmeter.WithContext(ctx),
		flowmeter.WithWarmup(cli.Warmup),
		flowmeter.WithIterations(cli.Iterations),
		flowmeter.WithSinks(sinks...),
	}
	var recorder *framelog.FrameLog
	if cli.RecordFile != "" {
		if recorder, err = framelog.Create(cli.RecordFile, framelog.WithLogger(logger.Named("framelog"))); err != nil {
			_ = sinks.Close()
			return err
		}
		fmOpts = append(fmOpts, flowmeter.WithRecorder(recorder))
	}

	fm := flowmeter.NewFlowmeter(provider, proc, append(fmOpts, opts...)...)
	stats, runErr := fm.Run()

	closeErrs := []error{runErr, sinks.Close()}
	if recorder != nil {
		closeErrs = append(closeErrs, recorder.Close())
		logger.Info("Frames recorded", log.String("file", cli.RecordFile), log.Int("frames", recorder.Count()))
	}
	issues := lo.PickBy(map[string]int{
		"acquireErrors": stats.AcquireErrors,
		"overflows":     stats.Overflows,
		"unavailable":   stats.Unavailable,
	}, func(_ string, v int) bool { return v > 0 })
	if len(issues) > 0 {
		logger.Warn("Run had incomplete iterations", log.Any("issues", issues))
	}
	return errors.Join(closeErrs...)
}
